package adapter

import (
	"context"

	"golang.org/x/oauth2"
)

// ProviderFactory builds a FileSearchProvider authenticated by a token source.
type ProviderFactory interface {
	NewProvider(ctx context.Context, ts oauth2.TokenSource) (FileSearchProvider, error)
}

// ProviderFactoryFunc adapts a function to ProviderFactory.
type ProviderFactoryFunc func(ctx context.Context, ts oauth2.TokenSource) (FileSearchProvider, error)

// NewProvider calls f.
func (f ProviderFactoryFunc) NewProvider(ctx context.Context, ts oauth2.TokenSource) (FileSearchProvider, error) {
	return f(ctx, ts)
}

// Static returns a factory that always hands out p, ignoring credentials.
func Static(p FileSearchProvider) ProviderFactory {
	return ProviderFactoryFunc(func(context.Context, oauth2.TokenSource) (FileSearchProvider, error) {
		return p, nil
	})
}
