package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jun/drivelookup/internal/adapter"
	"github.com/jun/drivelookup/internal/adapter/googledrive"
	"github.com/jun/drivelookup/internal/adapter/memory"
	"github.com/jun/drivelookup/internal/auth"
	"github.com/jun/drivelookup/internal/authserver"
	"github.com/jun/drivelookup/internal/config"
	"github.com/jun/drivelookup/internal/crypto"
	"github.com/jun/drivelookup/internal/extract"
	"github.com/jun/drivelookup/internal/handler"
	"github.com/jun/drivelookup/internal/highlight"
	"github.com/jun/drivelookup/internal/logging"
	"github.com/jun/drivelookup/internal/lookup"
	"github.com/jun/drivelookup/internal/secret"
	"github.com/jun/drivelookup/internal/session"
)

const sessionSweepInterval = time.Minute

// Services are the external clients an App is built from.
type Services struct {
	Resolver  secret.Resolver
	Encryptor crypto.Encryptor
	// Dynamo backs the demo corpus in dev mode. Nil keeps it in process.
	Dynamo *dynamodb.Client
	// Providers overrides the provider chosen from the configuration.
	Providers adapter.ProviderFactory
}

// App holds the dependencies for the Lambda function.
type App struct {
	cfg              config.Config
	lookupHandler    *handler.LookupHandler
	authHandler      *handler.AuthHandler
	controller       *auth.Controller
	store            *auth.Store
	sessions         *session.MemoryRegistry
	apiGatewaySecret string
	log              *zap.Logger
	stop             chan struct{}
}

// NewApp loads the configuration and AWS clients and builds the App.
func NewApp(ctx context.Context) *App {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("unable to load configuration, %v", err))
	}
	logging.Init(cfg.Log)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}

	svc := Services{}
	if cfg.DevMode {
		svc.Resolver = secret.NewEnvResolver()
		svc.Encryptor = crypto.NewMockEncryptor()
		svc.Dynamo = dynamodb.NewFromConfig(awsCfg)
		logging.L().Info("dev mode: env secrets, mock encryptor, demo corpus in DynamoDB")
	} else {
		svc.Resolver = secret.NewCached(secret.Chain{
			secret.NewSSMResolver(ssm.NewFromConfig(awsCfg)),
			secret.NewEnvResolver(),
		})
		keyID := cfg.Google.KMSKeyID
		if keyID == "" {
			keyID = crypto.DefaultKeyID
		}
		svc.Encryptor = crypto.NewKMSService(kms.NewFromConfig(awsCfg), keyID)
	}

	app, err := Build(ctx, cfg, svc)
	if err != nil {
		panic(fmt.Sprintf("unable to build app, %v", err))
	}
	return app
}

// Build wires the App from a loaded configuration.
func Build(ctx context.Context, cfg config.Config, svc Services) (*App, error) {
	log := logging.ForComponent(logging.CompHTTP)

	jwtSecret, err := secret.GetOr(ctx, svc.Resolver, cfg.API.JWTSecretParam, "")
	if err != nil {
		return nil, fmt.Errorf("resolve JWT secret: %w", err)
	}
	if jwtSecret == "" {
		if !cfg.DevMode {
			return nil, errors.New("JWT secret is not configured")
		}
		log.Warn("JWT secret not configured, using development secret")
		jwtSecret = "default-dev-secret"
	}

	apiGatewaySecret, err := secret.GetOr(ctx, svc.Resolver, secret.ParamAPIGatewaySecret, "")
	if err != nil {
		log.Warn("failed to resolve API gateway secret", zap.Error(err))
	}

	var oauthOpts *auth.ClientOptions
	if cfg.Google.UseOAuth && !cfg.DevMode {
		clientSecret, err := secret.GetOr(ctx, svc.Resolver, cfg.Google.ClientSecretParam, "")
		if err != nil {
			return nil, fmt.Errorf("resolve Google client secret: %w", err)
		}
		oauthOpts = &auth.ClientOptions{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: clientSecret,
			RedirectHost: cfg.Google.RedirectHost,
		}
	}

	providers := svc.Providers
	var serviceAccount oauth2.TokenSource
	switch {
	case cfg.DevMode:
		if providers == nil {
			providers = adapter.Static(memory.NewMemoryAdapter(svc.Dynamo, cfg.API.DemoTenant))
		}
		serviceAccount = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "demo"})
	default:
		if providers == nil {
			providers = googledrive.NewProvider(cfg.Google.RequestsPerSecond, cfg.Google.Burst, cfg.Google.MaxResults)
		}
		key, err := cfg.Google.ServiceAccountKey(ctx, svc.Encryptor, svc.Resolver)
		if err != nil {
			return nil, err
		}
		if key != nil {
			serviceAccount, err = auth.ServiceAccountTokenSource(ctx, key)
			if err != nil {
				return nil, err
			}
		} else if oauthOpts == nil {
			log.Warn("no service account key configured, lookups will fail until one is provided")
		}
	}

	store := auth.NewStore(auth.StoreConfig{
		StateTTL:   time.Duration(cfg.Auth.StateTTLSeconds) * time.Second,
		ExpiredTTL: time.Duration(cfg.Auth.ExpiredTTLSeconds) * time.Second,
	})
	controller := auth.NewController(store, nil)
	sessions := session.NewMemoryRegistry(time.Duration(cfg.API.SessionTTLMinutes) * time.Minute)

	searcher := lookup.New(lookup.Config{
		Auth:           controller,
		Engine:         highlight.NewEngine(extract.New(), highlight.DefaultStrategies),
		Providers:      providers,
		ServiceAccount: serviceAccount,
		Sessions:       sessions,
		Concurrency:    cfg.Search.Concurrency,
	})

	app := &App{
		cfg:              cfg,
		lookupHandler:    handler.NewLookupHandler(searcher, sessions, cfg.Search, oauthOpts, jwtSecret),
		authHandler:      handler.NewAuthHandler(controller, jwtSecret),
		controller:       controller,
		store:            store,
		sessions:         sessions,
		apiGatewaySecret: apiGatewaySecret,
		log:              log,
		stop:             make(chan struct{}),
	}
	go app.sweepSessions()
	return app, nil
}

// AuthServer returns the standalone OAuth callback server.
func (app *App) AuthServer() *authserver.Server {
	return authserver.New(app.cfg.AuthServer, app.controller)
}

// Close stops background work.
func (app *App) Close() {
	select {
	case <-app.stop:
	default:
		close(app.stop)
	}
	app.store.Close()
}

func (app *App) sweepSessions() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-app.stop:
			return
		case <-ticker.C:
			if n := app.sessions.Sweep(); n > 0 {
				app.log.Debug("evicted idle search sessions", zap.Int("count", n))
			}
		}
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	app.log.Debug("request", zap.String("method", method), zap.String("path", path))

	// CORS Preflight
	if method == http.MethodOptions {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	// Only CloudFront knows the origin secret; skipped in dev mode.
	if !app.cfg.DevMode {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			app.log.Warn("missing or invalid X-Origin-Verify header", zap.String("path", path))
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	path = strings.TrimPrefix(path, "/api")

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}
	if req.QueryStringParameters == nil {
		req.QueryStringParameters = make(map[string]string)
	}

	switch {
	case path == "/auth/verify" && method == http.MethodGet:
		return app.corsResponse(app.must(app.authHandler.Verify(ctx, req))), nil
	case (path == "/auth/callback" || path == auth.CallbackPath) && method == http.MethodGet:
		return app.must(app.authHandler.Callback(ctx, req)), nil
	case path == "/options/validate" && method == http.MethodPost:
		return app.corsResponse(app.must(app.lookupHandler.ValidateOptions(ctx, req))), nil
	case path == "/lookup" && method == http.MethodPost:
		return app.corsResponse(app.must(app.lookupHandler.Lookup(ctx, req))), nil
	}

	// /lookup/{searchId}[/...]
	if rest, ok := strings.CutPrefix(path, "/lookup/"); ok && rest != "" {
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		req.PathParameters["searchId"] = parts[0]

		switch {
		case len(parts) == 1 && method == http.MethodGet:
			return app.corsResponse(app.must(app.lookupHandler.GetState(ctx, req))), nil
		case len(parts) == 1 && method == http.MethodDelete:
			return app.corsResponse(app.must(app.lookupHandler.Release(ctx, req))), nil
		case len(parts) == 2 && parts[1] == "next" && method == http.MethodPost:
			return app.corsResponse(app.must(app.lookupHandler.Next(ctx, req))), nil
		case len(parts) == 2 && parts[1] == "previous" && method == http.MethodPost:
			return app.corsResponse(app.must(app.lookupHandler.Previous(ctx, req))), nil
		case len(parts) == 4 && parts[1] == "files" && parts[3] == "content" && method == http.MethodPost:
			req.PathParameters["index"] = parts[2]
			return app.corsResponse(app.must(app.lookupHandler.FetchFileContent(ctx, req))), nil
		}
	}

	return app.corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	origin := app.cfg.API.FrontendURL
	if origin == "" {
		origin = "http://localhost:3000"
	}
	resp.Headers["Access-Control-Allow-Origin"] = origin
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, logging the error.
func (app *App) must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		app.log.Error("handler error", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
