// Package lookup runs entity searches against the storage provider and
// assembles per-entity results.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jun/drivelookup/internal/adapter"
	"github.com/jun/drivelookup/internal/auth"
	"github.com/jun/drivelookup/internal/highlight"
	"github.com/jun/drivelookup/internal/logging"
	"github.com/jun/drivelookup/internal/model"
	"github.com/jun/drivelookup/internal/navigator"
	"github.com/jun/drivelookup/internal/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds per-file work for one entity.
const DefaultConcurrency = 10

// Options describes one lookup call.
type Options struct {
	UserID   string
	Username string
	// OAuth enables per-user authorization. Nil means service-account mode.
	OAuth             *auth.ClientOptions
	Scope             adapter.Scope
	ShowThumbnails    bool
	EagerContentFiles int
}

// Config wires a Searcher.
type Config struct {
	Auth      *auth.Controller
	Engine    *highlight.Engine
	Providers adapter.ProviderFactory
	// ServiceAccount authenticates calls made without OAuth.
	ServiceAccount  oauth2.TokenSource
	Sessions        session.Registry
	Concurrency     int
	ErrorClearDelay time.Duration
}

// Searcher runs lookups.
type Searcher struct {
	cfg Config
	log *zap.Logger
}

// New creates a Searcher.
func New(cfg Config) *Searcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Searcher{
		cfg: cfg,
		log: logging.ForComponent(logging.CompLookup),
	}
}

// Search looks up every entity and returns one result per entity, in input
// order. Under OAuth without a usable session it returns a single
// auth-required result instead.
func (s *Searcher) Search(ctx context.Context, entities []model.Entity, opts Options) ([]model.SearchResult, error) {
	if err := opts.Scope.Validate(); err != nil {
		return nil, model.NewError(model.KindValidation, "Invalid search options", err.Error(), 0, err)
	}

	if opts.OAuth != nil && !s.cfg.Auth.IsSessionValid(opts.UserID) {
		return s.authRequired(entities, opts)
	}

	ts, err := s.tokenSource(ctx, opts)
	if err != nil {
		return nil, err
	}
	token, err := ts.Token()
	if err != nil {
		if opts.OAuth != nil {
			s.log.Info("token refresh failed, asking user to authorize again", zap.String("user_id", opts.UserID), zap.Error(err))
			return s.authRequired(entities, opts)
		}
		return nil, model.NewError(model.KindAuth, "Failed to authenticate with Google Drive", err.Error(), adapter.StatusCode(err), err)
	}

	provider, err := s.cfg.Providers.NewProvider(ctx, ts)
	if err != nil {
		return nil, model.NewError(model.KindProvider, "Failed to create storage provider", err.Error(), 0, err)
	}

	results := make([]model.SearchResult, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	for i, entity := range entities {
		g.Go(func() error {
			r, err := s.searchEntity(gctx, provider, token.AccessToken, entity, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if opts.OAuth != nil && adapter.IsUnauthorized(err) {
			s.log.Info("provider rejected session, asking user to authorize again", zap.String("user_id", opts.UserID))
			return s.authRequired(entities, opts)
		}
		var mErr *model.Error
		if errors.As(err, &mErr) {
			return nil, mErr
		}
		return nil, model.NewError(model.KindProvider, "Search failed", err.Error(), adapter.StatusCode(err), err)
	}

	for _, r := range results {
		if r.Data != nil {
			s.register(r.Data, opts)
		}
	}
	return results, nil
}

func (s *Searcher) tokenSource(ctx context.Context, opts Options) (oauth2.TokenSource, error) {
	if opts.OAuth != nil {
		ts, err := s.cfg.Auth.TokenSource(ctx, opts.UserID)
		if err != nil {
			return nil, err
		}
		return ts, nil
	}
	if s.cfg.ServiceAccount == nil {
		return nil, model.NewError(model.KindAuth, "Failed to authenticate with Google Drive", "no service account credentials configured", 0, nil)
	}
	return s.cfg.ServiceAccount, nil
}

func (s *Searcher) authRequired(entities []model.Entity, opts Options) ([]model.SearchResult, error) {
	clientOpts := *opts.OAuth
	clientOpts.UserID = opts.UserID
	clientOpts.Username = opts.Username

	req, err := s.cfg.Auth.CreateAuthRequest(clientOpts)
	if err != nil {
		return nil, model.NewError(model.KindAuth, "Failed to create authorization request", err.Error(), 0, err)
	}

	var entity model.Entity
	if len(entities) > 0 {
		entity = entities[0]
	}
	return []model.SearchResult{{
		Entity:       entity,
		Summary:      []string{"Authentication Required"},
		AuthRequired: &model.AuthPrompt{AuthURL: req.AuthURL, StateToken: req.StateToken},
	}}, nil
}

type rawContent struct {
	text    string
	ok      bool
	fetched bool
}

func (s *Searcher) searchEntity(ctx context.Context, provider adapter.FileSearchProvider, accessToken string, entity model.Entity, opts Options) (model.SearchResult, error) {
	files, err := provider.ListFiles(ctx, strings.TrimSpace(entity.Value), opts.Scope)
	if err != nil {
		s.log.Error("listing files failed", zap.String("entity", entity.Value), zap.Error(err))
		return model.SearchResult{}, model.NewError(model.KindProvider, "Failed to list files", err.Error(), adapter.StatusCode(err), err)
	}
	if len(files) == 0 {
		return model.SearchResult{Entity: entity, Summary: []string{}}, nil
	}

	records := make([]model.FileRecord, len(files))
	raw := make([]rawContent, len(files))
	for i, f := range files {
		records[i] = newRecord(f, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i := range records {
		g.Go(func() error {
			rec := &records[i]
			if opts.ShowThumbnails && rec.HasThumbnail && rec.ThumbnailLink != "" {
				data, err := provider.DownloadThumbnail(gctx, rec.ThumbnailLink, accessToken)
				if err != nil {
					s.log.Warn("thumbnail download failed", zap.String("file_id", rec.ID), zap.Error(err))
					rec.ThumbnailError = err.Error()
				} else {
					rec.ThumbnailBase64 = ThumbnailDataURI(data)
				}
			}
			if i < opts.EagerContentFiles {
				text, ok, err := s.cfg.Engine.Fetch(gctx, provider, *rec)
				if err != nil {
					// Under OAuth a 401 means the session is gone and the whole call re-prompts.
					if opts.OAuth != nil || !adapter.IsUnauthorized(err) {
						return err
					}
					s.log.Warn("content fetch rejected", zap.String("file_id", rec.ID), zap.Error(err))
					rec.ContentError = err.Error()
					raw[i] = rawContent{fetched: true}
					return nil
				}
				raw[i] = rawContent{text: text, ok: ok, fetched: true}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.SearchResult{}, err
	}

	searchID := uuid.New().String()
	term := entity.SearchTerm()
	var total *int
	count := 0
	for i, rc := range raw {
		if !rc.fetched {
			continue
		}
		records[i], count = s.cfg.Engine.Apply(records[i], rc.text, rc.ok, term, searchID, count+1)
		total = &count
	}

	return model.SearchResult{
		Entity: entity,
		Data: &model.ResultDetails{
			Files:           records,
			SearchID:        searchID,
			SearchTerm:      term,
			TotalMatchCount: total,
		},
		Summary: SummaryTags(records),
	}, nil
}

// register makes the result navigable under its search id. Each fetch
// resolves credentials again, so a refreshed session is picked up.
func (s *Searcher) register(data *model.ResultDetails, opts Options) {
	if s.cfg.Sessions == nil {
		return
	}
	term, searchID := data.SearchTerm, data.SearchID
	fetch := func(ctx context.Context, file model.FileRecord, start int) (model.FileRecord, int, error) {
		ts, err := s.tokenSource(ctx, opts)
		if err != nil {
			return file, start - 1, err
		}
		provider, err := s.cfg.Providers.NewProvider(ctx, ts)
		if err != nil {
			return file, start - 1, fmt.Errorf("failed to create storage provider: %w", err)
		}
		return s.cfg.Engine.FetchAndHighlight(ctx, provider, file, term, searchID, start)
	}

	nav := navigator.New(searchID, data.Files, data.TotalMatchCount, fetch, navigator.Options{
		ErrorClearDelay: s.cfg.ErrorClearDelay,
	})
	s.cfg.Sessions.Register(searchID, opts.UserID, nav)
}
