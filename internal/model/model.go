package model

import (
	"fmt"
	"strings"
	"time"
)

// Entity is a single lookup input (IP, email, domain, hash or free text).
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SearchTerm returns the normalized term used for matching file content.
func (e Entity) SearchTerm() string {
	return strings.ToLower(strings.TrimSpace(e.Value))
}

// ContentStatus describes how far a file's content has been processed.
type ContentStatus string

const (
	// ContentPending means the content has not been fetched yet and is fetched on demand.
	ContentPending ContentStatus = "pending"
	// ContentReady means the content was extracted, sanitized and highlighted.
	ContentReady ContentStatus = "ready"
	// ContentUnavailable means a fetch was attempted and nothing could be extracted.
	ContentUnavailable ContentStatus = "unavailable"
)

// NoContentText is shown in place of content that could not be retrieved.
const NoContentText = "No Content Found"

// Range is the inclusive interval of match ids assigned to one file.
// A file without matches has Max == Min-1.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Count returns the number of matches covered by the range.
func (r Range) Count() int {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

// Contains reports whether match id n belongs to the range.
func (r Range) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// LastModifyingUser is the provider's description of the last editor.
type LastModifyingUser struct {
	DisplayName string `json:"displayName,omitempty"`
	PhotoLink   string `json:"photoLink,omitempty"`
}

// FileRecord is provider file metadata plus the fields derived during a lookup.
type FileRecord struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	MIMEType          string             `json:"mimeType"`
	HasThumbnail      bool               `json:"hasThumbnail"`
	ThumbnailLink     string             `json:"thumbnailLink,omitempty"`
	IconLink          string             `json:"iconLink,omitempty"`
	WebViewLink       string             `json:"webViewLink,omitempty"`
	ModifiedTime      time.Time          `json:"modifiedTime"`
	LastModifyingUser *LastModifyingUser `json:"lastModifyingUser,omitempty"`

	Icon            string        `json:"_icon"`
	TypeForURL      string        `json:"_typeForUrl"`
	ThumbnailBase64 string        `json:"_thumbnailBase64,omitempty"`
	ThumbnailError  string        `json:"_thumbnailError,omitempty"`
	Content         string        `json:"_content,omitempty"`
	ContentStatus   ContentStatus `json:"_contentStatus"`
	ContentError    string        `json:"_contentError,omitempty"`
	Range           *Range        `json:"range,omitempty"`
	Index           int           `json:"index"`
}

// Pending reports whether the file's content still has to be fetched.
func (f FileRecord) Pending() bool {
	return f.ContentStatus == ContentPending
}

// ResultDetails is the data block of a successful lookup for one entity.
type ResultDetails struct {
	Files      []FileRecord `json:"files"`
	SearchID   string       `json:"searchId"`
	SearchTerm string       `json:"searchTerm"`
	// TotalMatchCount is nil until the content of at least one file has been fetched.
	TotalMatchCount *int `json:"totalMatchCount"`
}

// AuthPrompt is returned instead of results when the user has to authorize first.
type AuthPrompt struct {
	AuthURL    string `json:"authUrl"`
	StateToken string `json:"stateToken"`
}

// SearchResult is the lookup outcome for one entity.
type SearchResult struct {
	Entity       Entity         `json:"entity"`
	Data         *ResultDetails `json:"data"`
	Summary      []string       `json:"summary"`
	AuthRequired *AuthPrompt    `json:"authRequired,omitempty"`
}

// ErrorKind classifies errors surfaced to callers.
type ErrorKind string

const (
	KindAuth       ErrorKind = "auth"
	KindProvider   ErrorKind = "provider"
	KindFile       ErrorKind = "file"
	KindValidation ErrorKind = "validation"
)

// Error is the fixed error record built where a capability failure is caught.
// The cause is reachable through Unwrap only; Detail already carries its text.
type Error struct {
	Kind   ErrorKind `json:"kind"`
	Title  string    `json:"title"`
	Detail string    `json:"detail,omitempty"`
	Code   int       `json:"code,omitempty"`
	Cause  error     `json:"-"`
}

// NewError builds an Error record.
func NewError(kind ErrorKind, title, detail string, code int, cause error) *Error {
	return &Error{Kind: kind, Title: title, Detail: detail, Code: code, Cause: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Title)
	if e.Detail != "" {
		b.WriteString(" - ")
		b.WriteString(e.Detail)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, ", Code: %d", e.Code)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}
