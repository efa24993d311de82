package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FileMetadata represents the provider's description of a file matching a search.
type FileMetadata struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	MIMEType              string    `json:"mimeType"`
	HasThumbnail          bool      `json:"hasThumbnail"`
	ThumbnailLink         string    `json:"thumbnailLink,omitempty"`
	IconLink              string    `json:"iconLink,omitempty"`
	WebViewLink           string    `json:"webViewLink,omitempty"`
	ModifiedTime          time.Time `json:"modifiedTime"`
	LastModifyingName     string    `json:"lastModifyingName,omitempty"`
	LastModifyingPhotoURL string    `json:"lastModifyingPhotoUrl,omitempty"`
}

// ScopeMode selects which part of the storage provider's content is searched.
type ScopeMode string

const (
	// ScopeDefault searches the files the credential can access directly.
	ScopeDefault ScopeMode = "default"
	// ScopeDrive searches one named shared drive.
	ScopeDrive ScopeMode = "drive"
	// ScopeAllDrives searches every shared drive the credential can see.
	ScopeAllDrives ScopeMode = "allDrives"
)

// Scope is the search scope passed to ListFiles.
type Scope struct {
	Mode    ScopeMode `json:"mode"`
	DriveID string    `json:"driveId,omitempty"`
}

// ErrDriveIDRequired is returned by Validate for a drive scope without a drive id.
var ErrDriveIDRequired = errors.New("You must provide a `Drive ID to Search` if you set a `Search Scope` of [drive]")

// Validate checks that the scope can be sent to the provider.
func (s Scope) Validate() error {
	switch s.Mode {
	case "", ScopeDefault, ScopeAllDrives:
		return nil
	case ScopeDrive:
		if s.DriveID == "" {
			return ErrDriveIDRequired
		}
		return nil
	}
	return fmt.Errorf("unknown search scope %q", s.Mode)
}

// FileSearchProvider is the storage capability the lookup core depends on.
// This abstraction keeps transport and auth mechanics of the provider out of the core.
type FileSearchProvider interface {
	// ListFiles returns files whose full text contains query, in provider order.
	ListFiles(ctx context.Context, query string, scope Scope) ([]FileMetadata, error)

	// ExportFile exports a native document to targetMIMEType.
	ExportFile(ctx context.Context, fileID, targetMIMEType string) ([]byte, error)

	// GetFileMedia downloads the raw bytes of a stored file.
	GetFileMedia(ctx context.Context, fileID string) ([]byte, error)

	// DownloadThumbnail fetches a thumbnail image using a bearer access token.
	DownloadThumbnail(ctx context.Context, url, accessToken string) ([]byte, error)
}
