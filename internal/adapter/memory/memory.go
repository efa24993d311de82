package memory

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/jun/drivelookup/internal/adapter"
)

const googleAppsPrefix = "application/vnd.google-apps."

const (
	maxDemoContentSize = 256 * 1024 // 256KB
	maxDemoItemCount   = 200
)

func getTableName() *string {
	name := os.Getenv("DEMO_FILES_TABLE")
	if name == "" {
		name = "DemoFiles"
	}
	return aws.String(name)
}

// StoredFile is one file of the demo corpus.
type StoredFile struct {
	adapter.FileMetadata
	// DriveID is the shared drive holding the file; empty for files owned by the credential.
	DriveID   string
	Content   []byte
	Thumbnail []byte
}

// FileItem is the DynamoDB representation of a StoredFile.
type FileItem struct {
	PK            string    `dynamodbav:"pk"`
	Tenant        string    `dynamodbav:"tenant"`
	ID            string    `dynamodbav:"id"`
	Name          string    `dynamodbav:"name"`
	MIMEType      string    `dynamodbav:"mime_type"`
	DriveID       string    `dynamodbav:"drive_id"`
	HasThumbnail  bool      `dynamodbav:"has_thumbnail"`
	ThumbnailLink string    `dynamodbav:"thumbnail_link"`
	ModifiedTime  time.Time `dynamodbav:"modified_time"`
	Content       []byte    `dynamodbav:"content"`
	Thumbnail     []byte    `dynamodbav:"thumbnail"`
	TTL           int64     `dynamodbav:"ttl"`
}

// MemoryAdapter implements adapter.FileSearchProvider over a demo corpus.
// If client is nil, it uses an in-memory slice (for tests).
// If client is set, it uses DynamoDB (for dev mode persistence).
type MemoryAdapter struct {
	client *dynamodb.Client
	tenant string

	files []*StoredFile
	mu    sync.RWMutex

	listErr        error
	thumbnailFails map[string]error
}

// NewMemoryAdapter creates a demo provider for tenant.
func NewMemoryAdapter(client *dynamodb.Client, tenant string) *MemoryAdapter {
	return &MemoryAdapter{
		client:         client,
		tenant:         tenant,
		thumbnailFails: make(map[string]error),
	}
}

// FailList makes every subsequent ListFiles call return err (nil clears it).
func (m *MemoryAdapter) FailList(err error) {
	m.mu.Lock()
	m.listErr = err
	m.mu.Unlock()
}

// FailThumbnail makes downloads of link return err.
func (m *MemoryAdapter) FailThumbnail(link string, err error) {
	m.mu.Lock()
	m.thumbnailFails[link] = err
	m.mu.Unlock()
}

// Put adds a file to the corpus. Missing IDs and modification times are filled in.
func (m *MemoryAdapter) Put(ctx context.Context, f StoredFile) (*adapter.FileMetadata, error) {
	if len(f.Content) > maxDemoContentSize {
		return nil, fmt.Errorf("content too large (max %d bytes)", maxDemoContentSize)
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.ModifiedTime.IsZero() {
		f.ModifiedTime = time.Now()
	}

	if m.client == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if len(m.files) >= maxDemoItemCount {
			return nil, fmt.Errorf("item limit reached for demo mode (max %d items)", maxDemoItemCount)
		}
		stored := f
		m.files = append(m.files, &stored)
		return &stored.FileMetadata, nil
	}

	item := FileItem{
		PK:            m.tenant + "#" + f.ID,
		Tenant:        m.tenant,
		ID:            f.ID,
		Name:          f.Name,
		MIMEType:      f.MIMEType,
		DriveID:       f.DriveID,
		HasThumbnail:  f.HasThumbnail,
		ThumbnailLink: f.ThumbnailLink,
		ModifiedTime:  f.ModifiedTime,
		Content:       f.Content,
		Thumbnail:     f.Thumbnail,
		TTL:           time.Now().Add(24 * time.Hour).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal demo file: %w", err)
	}
	_, err = m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: getTableName(),
		Item:      av,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save demo file to DynamoDB: %w", err)
	}
	return &f.FileMetadata, nil
}

func (m *MemoryAdapter) snapshot(ctx context.Context) ([]*StoredFile, error) {
	if m.client == nil {
		m.mu.RLock()
		defer m.mu.RUnlock()
		out := make([]*StoredFile, len(m.files))
		copy(out, m.files)
		return out, nil
	}

	// Scan and filter (inefficient but fine for dev)
	out, err := m.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        getTableName(),
		FilterExpression: aws.String("tenant = :tenant"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tenant": &types.AttributeValueMemberS{Value: m.tenant},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan demo files: %w", err)
	}

	var items []FileItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal demo files: %w", err)
	}

	files := make([]*StoredFile, 0, len(items))
	for _, item := range items {
		files = append(files, &StoredFile{
			FileMetadata: adapter.FileMetadata{
				ID:            item.ID,
				Name:          item.Name,
				MIMEType:      item.MIMEType,
				HasThumbnail:  item.HasThumbnail,
				ThumbnailLink: item.ThumbnailLink,
				ModifiedTime:  item.ModifiedTime,
			},
			DriveID:   item.DriveID,
			Content:   item.Content,
			Thumbnail: item.Thumbnail,
		})
	}
	return files, nil
}

func (m *MemoryAdapter) find(ctx context.Context, fileID string) (*StoredFile, error) {
	files, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.ID == fileID {
			return f, nil
		}
	}
	return nil, &adapter.ProviderError{Op: "get file", Code: http.StatusNotFound, Err: adapter.ErrNotFound}
}

func inScope(f *StoredFile, scope adapter.Scope) bool {
	switch scope.Mode {
	case adapter.ScopeDrive:
		return f.DriveID != "" && f.DriveID == scope.DriveID
	case adapter.ScopeAllDrives:
		return true
	default:
		return f.DriveID == ""
	}
}

// ListFiles returns files whose name or content contains query, case-insensitively.
func (m *MemoryAdapter) ListFiles(ctx context.Context, query string, scope adapter.Scope) ([]adapter.FileMetadata, error) {
	m.mu.RLock()
	listErr := m.listErr
	m.mu.RUnlock()
	if listErr != nil {
		return nil, listErr
	}

	files, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result := []adapter.FileMetadata{}
	for _, f := range files {
		if !inScope(f, scope) {
			continue
		}
		if containsIgnoreCase(string(f.Content), query) || containsIgnoreCase(f.Name, query) {
			result = append(result, f.FileMetadata)
		}
	}
	return result, nil
}

// ExportFile returns the content of Google-native files; other files cannot be exported.
func (m *MemoryAdapter) ExportFile(ctx context.Context, fileID, targetMIMEType string) ([]byte, error) {
	f, err := m.find(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(f.MIMEType, googleAppsPrefix) {
		return nil, &adapter.ProviderError{Op: "export file", Code: http.StatusForbidden, Err: fmt.Errorf("export only supports native documents, got %s", f.MIMEType)}
	}
	return f.Content, nil
}

// GetFileMedia returns the content of stored (non-native) files.
func (m *MemoryAdapter) GetFileMedia(ctx context.Context, fileID string) ([]byte, error) {
	f, err := m.find(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(f.MIMEType, googleAppsPrefix) {
		return nil, &adapter.ProviderError{Op: "download file", Code: http.StatusForbidden, Err: fmt.Errorf("only files with binary content can be downloaded")}
	}
	return f.Content, nil
}

// DownloadThumbnail returns the thumbnail registered under url.
func (m *MemoryAdapter) DownloadThumbnail(ctx context.Context, url, accessToken string) ([]byte, error) {
	m.mu.RLock()
	failErr := m.thumbnailFails[url]
	m.mu.RUnlock()
	if failErr != nil {
		return nil, failErr
	}

	files, err := m.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.ThumbnailLink == url && len(f.Thumbnail) > 0 {
			return f.Thumbnail, nil
		}
	}
	return nil, &adapter.ProviderError{Op: "download thumbnail", Code: http.StatusNotFound, Err: adapter.ErrNotFound}
}

// Helper for case-insensitive check
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
