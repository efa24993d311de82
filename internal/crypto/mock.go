package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

const mockPrefix = "mock:"

// MockEncryptor implements Encryptor for local development (no KMS required).
// Ciphertext is "mock:" followed by base64 plaintext.
type MockEncryptor struct{}

func NewMockEncryptor() *MockEncryptor {
	return &MockEncryptor{}
}

func (m *MockEncryptor) Encrypt(_ context.Context, plaintext []byte) (string, error) {
	return mockPrefix + base64.StdEncoding.EncodeToString(plaintext), nil
}

func (m *MockEncryptor) Decrypt(_ context.Context, ciphertext string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(strings.TrimSpace(ciphertext), mockPrefix)
	if !ok {
		return nil, fmt.Errorf("not a mock ciphertext")
	}
	plaintext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	return plaintext, nil
}
