package lookup

import (
	"encoding/base64"
	"fmt"

	"github.com/jun/drivelookup/internal/adapter"
	"github.com/jun/drivelookup/internal/model"
)

const (
	defaultIcon     = "file"
	thumbnailPrefix = "data:image/png;charset=utf-8;base64,"
	summaryTagLimit = 5
)

var icons = map[string]string{
	"application/vnd.google-apps.audio":        "file-audio",
	"application/vnd.google-apps.document":     "file-alt",
	"application/vnd.google-apps.drawing":      "drawing",
	"application/vnd.google-apps.file":         "file",
	"application/vnd.google-apps.folder":       "folder",
	"application/vnd.google-apps.form":         "form",
	"application/vnd.google-apps.fusiontable":  "table",
	"application/vnd.google-apps.map":          "map",
	"application/vnd.google-apps.photo":        "image",
	"application/vnd.google-apps.presentation": "presentation",
	"application/vnd.google-apps.script":       "scroll",
	"application/vnd.google-apps.site":         "globe",
	"application/vnd.google-apps.spreadsheet":  "file-spreadsheet",
	"application/vnd.google-apps.unknown":      "file",
	"application/vnd.google-apps.video":        "file-video",
	"application/vnd.google-apps.drive-sdk":    "sdk",
	"application/pdf":                          "file-pdf",
	"text/plain":                               "file",
}

// IconFor returns the display icon key of a MIME type.
func IconFor(mimeType string) string {
	if icon, ok := icons[mimeType]; ok {
		return icon
	}
	return defaultIcon
}

// TypeForURL returns the path segment of the Google editor that opens mimeType.
func TypeForURL(mimeType string) string {
	switch mimeType {
	case "application/vnd.google-apps.presentation":
		return "presentation"
	case "application/vnd.google-apps.spreadsheet":
		return "spreadsheets"
	default:
		return "document"
	}
}

// ThumbnailDataURI encodes thumbnail bytes as a data URI.
func ThumbnailDataURI(data []byte) string {
	return thumbnailPrefix + base64.StdEncoding.EncodeToString(data)
}

// SummaryTags lists the first file names and how many more there are.
func SummaryTags(files []model.FileRecord) []string {
	tags := make([]string, 0, summaryTagLimit+1)
	for i := 0; i < len(files) && i < summaryTagLimit; i++ {
		tags = append(tags, files[i].Name)
	}
	if len(tags) != len(files) {
		tags = append(tags, fmt.Sprintf("+%d more files", len(files)-len(tags)))
	}
	return tags
}

func newRecord(f adapter.FileMetadata, index int) model.FileRecord {
	rec := model.FileRecord{
		ID:            f.ID,
		Name:          f.Name,
		MIMEType:      f.MIMEType,
		HasThumbnail:  f.HasThumbnail,
		ThumbnailLink: f.ThumbnailLink,
		IconLink:      f.IconLink,
		WebViewLink:   f.WebViewLink,
		ModifiedTime:  f.ModifiedTime,
		Icon:          IconFor(f.MIMEType),
		TypeForURL:    TypeForURL(f.MIMEType),
		ContentStatus: model.ContentPending,
		Index:         index,
	}
	if f.LastModifyingName != "" || f.LastModifyingPhotoURL != "" {
		rec.LastModifyingUser = &model.LastModifyingUser{
			DisplayName: f.LastModifyingName,
			PhotoLink:   f.LastModifyingPhotoURL,
		}
	}
	return rec
}
