package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jun/drivelookup/internal/crypto"
	"github.com/jun/drivelookup/internal/secret"
)

// ServiceAccountKey returns the service-account key JSON from, in order, the
// key file, the KMS ciphertext or the secret store. It returns nil without
// error when none is configured.
func (g GoogleConfig) ServiceAccountKey(ctx context.Context, dec crypto.Encryptor, resolver secret.Resolver) ([]byte, error) {
	if g.ServiceAccountKeyFile != "" {
		data, err := os.ReadFile(g.ServiceAccountKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read service account key: %w", err)
		}
		return data, nil
	}

	if g.ServiceAccountKeyCiphertext != "" {
		if dec == nil {
			return nil, errors.New("service account key is encrypted but no decryptor is configured")
		}
		data, err := dec.Decrypt(ctx, g.ServiceAccountKeyCiphertext)
		if err != nil {
			return nil, fmt.Errorf("decrypt service account key: %w", err)
		}
		return data, nil
	}

	if resolver == nil || g.ServiceAccountKeyParam == "" {
		return nil, nil
	}
	value, err := resolver.GetSecret(ctx, g.ServiceAccountKeyParam)
	if errors.Is(err, secret.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve service account key: %w", err)
	}
	return []byte(value), nil
}
