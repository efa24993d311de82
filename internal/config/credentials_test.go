package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jun/drivelookup/internal/crypto"
	"github.com/jun/drivelookup/internal/secret"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", secret.ErrNotFound
	}
	return v, nil
}

type failingResolver struct{}

func (failingResolver) GetSecret(context.Context, string) (string, error) {
	return "", errors.New("throttled")
}

func TestServiceAccountKey_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))

	key, err := GoogleConfig{ServiceAccountKeyFile: path, ServiceAccountKeyCiphertext: "ignored"}.
		ServiceAccountKey(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(key))
}

func TestServiceAccountKey_MissingFile(t *testing.T) {
	_, err := GoogleConfig{ServiceAccountKeyFile: filepath.Join(t.TempDir(), "nope.json")}.
		ServiceAccountKey(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestServiceAccountKey_Ciphertext(t *testing.T) {
	ctx := context.Background()
	enc := crypto.NewMockEncryptor()
	ciphertext, err := enc.Encrypt(ctx, []byte(`{"client_email":"svc@example.com"}`))
	require.NoError(t, err)

	key, err := GoogleConfig{ServiceAccountKeyCiphertext: ciphertext}.ServiceAccountKey(ctx, enc, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"client_email":"svc@example.com"}`, string(key))

	_, err = GoogleConfig{ServiceAccountKeyCiphertext: ciphertext}.ServiceAccountKey(ctx, nil, nil)
	assert.Error(t, err)
}

func TestServiceAccountKey_Resolver(t *testing.T) {
	ctx := context.Background()
	g := GoogleConfig{ServiceAccountKeyParam: secret.ParamServiceAccountKey}

	key, err := g.ServiceAccountKey(ctx, nil, mapResolver{secret.ParamServiceAccountKey: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(key))

	key, err = g.ServiceAccountKey(ctx, nil, mapResolver{})
	require.NoError(t, err)
	assert.Nil(t, key)

	_, err = g.ServiceAccountKey(ctx, nil, failingResolver{})
	assert.Error(t, err)
}
