package googledrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jun/drivelookup/internal/adapter"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const listFields = "nextPageToken, files(id, name, mimeType, hasThumbnail, thumbnailLink, iconLink, webViewLink, modifiedTime, lastModifyingUser(displayName, photoLink))"

const (
	defaultPageSize   = 100
	defaultMaxResults = 100
)

// DriveAdapter implements adapter.FileSearchProvider for Google Drive.
type DriveAdapter struct {
	service    *drive.Service
	httpClient *http.Client
	limiter    *rate.Limiter
	maxResults int
}

// NewDriveAdapter creates a new DriveAdapter.
// client should be an authenticated http.Client carrying the user's or service account's credentials.
// thumbClient is used for thumbnail downloads, which carry their own bearer header.
func NewDriveAdapter(ctx context.Context, client, thumbClient *http.Client, limiter *rate.Limiter, maxResults int) (*DriveAdapter, error) {
	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	if thumbClient == nil {
		thumbClient = &http.Client{Timeout: 30 * time.Second}
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &DriveAdapter{service: srv, httpClient: thumbClient, limiter: limiter, maxResults: maxResults}, nil
}

// escapeQuery escapes a value for use inside a single-quoted Drive query string.
func escapeQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

// searchQuery builds the full-text query for an entity value.
func searchQuery(value string) string {
	return fmt.Sprintf("fullText contains '%s' and trashed = false", escapeQuery(value))
}

func (d *DriveAdapter) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

// ListFiles runs a full-text search within the given scope.
func (d *DriveAdapter) ListFiles(ctx context.Context, query string, scope adapter.Scope) ([]adapter.FileMetadata, error) {
	files := []adapter.FileMetadata{}
	pageToken := ""
	for {
		if err := d.wait(ctx); err != nil {
			return nil, err
		}

		call := d.service.Files.List().
			Q(searchQuery(query)).
			Fields(googleapi.Field(listFields)).
			PageSize(defaultPageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)

		switch scope.Mode {
		case adapter.ScopeDrive:
			call = call.Corpora("drive").DriveId(scope.DriveID)
		case adapter.ScopeAllDrives:
			call = call.Corpora("allDrives")
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		r, err := call.Do()
		if err != nil {
			return nil, classify("list files", err)
		}

		for _, f := range r.Files {
			files = append(files, toMetadata(f))
			if len(files) >= d.maxResults {
				return files, nil
			}
		}

		if r.NextPageToken == "" {
			return files, nil
		}
		pageToken = r.NextPageToken
	}
}

func toMetadata(f *drive.File) adapter.FileMetadata {
	modTime, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	meta := adapter.FileMetadata{
		ID:            f.Id,
		Name:          f.Name,
		MIMEType:      f.MimeType,
		HasThumbnail:  f.HasThumbnail,
		ThumbnailLink: f.ThumbnailLink,
		IconLink:      f.IconLink,
		WebViewLink:   f.WebViewLink,
		ModifiedTime:  modTime,
	}
	if f.LastModifyingUser != nil {
		meta.LastModifyingName = f.LastModifyingUser.DisplayName
		meta.LastModifyingPhotoURL = f.LastModifyingUser.PhotoLink
	}
	return meta
}

// ExportFile exports a Google-native document to the requested MIME type.
func (d *DriveAdapter) ExportFile(ctx context.Context, fileID, targetMIMEType string) ([]byte, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := d.service.Files.Export(fileID, targetMIMEType).Context(ctx).Download()
	if err != nil {
		return nil, classify("export file", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read exported content: %w", err)
	}
	return data, nil
}

// GetFileMedia downloads the stored bytes of a file.
func (d *DriveAdapter) GetFileMedia(ctx context.Context, fileID string) ([]byte, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := d.service.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, classify("download file", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read file content: %w", err)
	}
	return data, nil
}

// DownloadThumbnail fetches a thumbnail link with the given bearer token.
func (d *DriveAdapter) DownloadThumbnail(ctx context.Context, url, accessToken string) ([]byte, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return downloadThumbnail(ctx, d.httpClient, url, accessToken)
}

func downloadThumbnail(ctx context.Context, client *http.Client, url, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build thumbnail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &adapter.ProviderError{Op: "download thumbnail", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode == http.StatusUnauthorized {
			err = fmt.Errorf("%w: %v", adapter.ErrUnauthorized, err)
		}
		return nil, &adapter.ProviderError{Op: "download thumbnail", Code: resp.StatusCode, Err: err}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read thumbnail: %w", err)
	}
	return data, nil
}

// classify converts Drive client errors into adapter errors.
func classify(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case http.StatusUnauthorized:
			return &adapter.ProviderError{Op: op, Code: gErr.Code, Err: fmt.Errorf("%w: %v", adapter.ErrUnauthorized, gErr)}
		case http.StatusNotFound:
			return &adapter.ProviderError{Op: op, Code: gErr.Code, Err: fmt.Errorf("%w: %v", adapter.ErrNotFound, gErr)}
		}
		return &adapter.ProviderError{Op: op, Code: gErr.Code, Err: gErr}
	}

	// A token refresh rejected by the authorization server means the session is gone.
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		return &adapter.ProviderError{Op: op, Code: http.StatusUnauthorized, Err: fmt.Errorf("%w: %v", adapter.ErrUnauthorized, rErr)}
	}
	return &adapter.ProviderError{Op: op, Err: err}
}
