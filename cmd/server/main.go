package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/drivelookup/internal/app"
	"github.com/jun/drivelookup/internal/logging"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.NewApp(ctx)
	defer application.Close()
	defer logging.Sync()
	log := logging.ForComponent(logging.CompHTTP)

	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	api := &http.Server{
		Addr:              addr,
		Handler:           bridge(application),
		ReadHeaderTimeout: 10 * time.Second,
	}

	callback := application.AuthServer()
	go func() {
		if err := callback.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("auth callback server stopped", zap.Error(err))
			stop()
		}
	}()
	go func() {
		log.Info("starting local API server", zap.String("addr", addr))
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = api.Shutdown(shutdownCtx)
	_ = callback.Shutdown(shutdownCtx)
}

// bridge turns plain HTTP requests into API Gateway events.
func bridge(application *app.App) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		headers := make(map[string]string)
		for k, v := range r.Header {
			headers[k] = v[0]
		}

		queryParams := make(map[string]string)
		for k, v := range r.URL.Query() {
			queryParams[k] = v[0]
		}

		req := events.APIGatewayProxyRequest{
			Path:                  r.URL.Path,
			HTTPMethod:            r.Method,
			Headers:               headers,
			QueryStringParameters: queryParams,
			Body:                  string(body),
		}

		resp, err := application.HandleRequest(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(resp.Body))
	})
}
