package googledrive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jun/drivelookup/internal/adapter"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Provider implements adapter.ProviderFactory for Google Drive.
// All adapters it creates share one rate limiter so concurrent lookups stay under the API quota.
type Provider struct {
	limiter     *rate.Limiter
	thumbClient *http.Client
	maxResults  int
}

// NewProvider creates a new Google Drive provider factory.
// requestsPerSecond <= 0 disables rate limiting.
func NewProvider(requestsPerSecond float64, burst, maxResults int) *Provider {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &Provider{
		limiter:     limiter,
		thumbClient: &http.Client{Timeout: 30 * time.Second},
		maxResults:  maxResults,
	}
}

// NewProvider returns a DriveAdapter authenticated by ts.
func (p *Provider) NewProvider(ctx context.Context, ts oauth2.TokenSource) (adapter.FileSearchProvider, error) {
	client := oauth2.NewClient(ctx, ts)
	storage, err := NewDriveAdapter(ctx, client, p.thumbClient, p.limiter, p.maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive adapter: %w", err)
	}
	return storage, nil
}
