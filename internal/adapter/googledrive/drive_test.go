package googledrive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jun/drivelookup/internal/adapter"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain value", "10.0.0.1", "10.0.0.1"},
		{"single quote", "o'brien@example.com", `o\'brien@example.com`},
		{"backslash", `dom\user`, `dom\\user`},
		{"both", `a\'b`, `a\\\'b`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeQuery(tt.in); got != tt.want {
				t.Errorf("escapeQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSearchQuery(t *testing.T) {
	got := searchQuery("evil.com")
	want := "fullText contains 'evil.com' and trashed = false"
	if got != want {
		t.Errorf("searchQuery = %q, want %q", got, want)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		unauthorized bool
		notFound     bool
		code         int
	}{
		{"401", &googleapi.Error{Code: 401, Message: "Invalid Credentials"}, true, false, 401},
		{"404", &googleapi.Error{Code: 404, Message: "File not found"}, false, true, 404},
		{"500", &googleapi.Error{Code: 500, Message: "Backend Error"}, false, false, 500},
		{"refresh rejected", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, true, false, 401},
		{"network", errors.New("connection reset"), false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("list files", tt.err)
			if got := adapter.IsUnauthorized(err); got != tt.unauthorized {
				t.Errorf("IsUnauthorized = %v, want %v (%v)", got, tt.unauthorized, err)
			}
			if got := errors.Is(err, adapter.ErrNotFound); got != tt.notFound {
				t.Errorf("Is(ErrNotFound) = %v, want %v", got, tt.notFound)
			}
			if got := adapter.StatusCode(err); got != tt.code {
				t.Errorf("StatusCode = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestDownloadThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			w.Write([]byte("PNGDATA"))
		case "Bearer expired-token":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	data, err := downloadThumbnail(ctx, srv.Client(), srv.URL+"/thumb", "good-token")
	if err != nil {
		t.Fatalf("downloadThumbnail failed: %v", err)
	}
	if string(data) != "PNGDATA" {
		t.Errorf("Expected thumbnail bytes 'PNGDATA', got %q", data)
	}

	_, err = downloadThumbnail(ctx, srv.Client(), srv.URL+"/thumb", "expired-token")
	if !adapter.IsUnauthorized(err) {
		t.Errorf("Expected unauthorized error, got %v", err)
	}

	_, err = downloadThumbnail(ctx, srv.Client(), srv.URL+"/thumb", "other")
	if adapter.StatusCode(err) != http.StatusForbidden {
		t.Errorf("Expected status 403, got %v", err)
	}
}

func TestNewProvider_RateLimiter(t *testing.T) {
	if p := NewProvider(0, 0, 0); p.limiter != nil {
		t.Error("Expected no limiter when requestsPerSecond is 0")
	}
	p := NewProvider(5, 0, 50)
	if p.limiter == nil {
		t.Fatal("Expected limiter to be configured")
	}
	if p.limiter.Burst() != 1 {
		t.Errorf("Expected burst to default to 1, got %d", p.limiter.Burst())
	}
}
