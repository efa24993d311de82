package adapter

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sentinel", ErrUnauthorized, true},
		{"wrapped sentinel", fmt.Errorf("list: %w", ErrUnauthorized), true},
		{"provider 401", &ProviderError{Op: "list", Code: 401, Err: errors.New("invalid credentials")}, true},
		{"provider 403", &ProviderError{Op: "list", Code: 403, Err: errors.New("forbidden")}, false},
		{"not found", ErrNotFound, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnauthorized(tt.err); got != tt.want {
				t.Errorf("IsUnauthorized(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", &ProviderError{Op: "export", Code: 500, Err: errors.New("boom")})
	if got := StatusCode(err); got != 500 {
		t.Errorf("StatusCode = %d, want 500", got)
	}
	if got := StatusCode(errors.New("plain")); got != 0 {
		t.Errorf("StatusCode(plain) = %d, want 0", got)
	}
}

func TestScope_Validate(t *testing.T) {
	tests := []struct {
		scope   Scope
		wantErr bool
	}{
		{Scope{}, false},
		{Scope{Mode: ScopeDefault}, false},
		{Scope{Mode: ScopeAllDrives}, false},
		{Scope{Mode: ScopeDrive, DriveID: "0AF"}, false},
		{Scope{Mode: ScopeDrive}, true},
		{Scope{Mode: "mine"}, true},
	}
	for _, tt := range tests {
		err := tt.scope.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.scope, err, tt.wantErr)
		}
	}
	if err := (Scope{Mode: ScopeDrive}).Validate(); !errors.Is(err, ErrDriveIDRequired) {
		t.Errorf("Expected ErrDriveIDRequired, got %v", err)
	}
}
