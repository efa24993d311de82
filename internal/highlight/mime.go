package highlight

import "strings"

var exportTypes = map[string]string{
	"application/vnd.google-apps.presentation": "application/vnd.oasis.opendocument.presentation",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.document":     "application/vnd.oasis.opendocument.text",
	"application/vnd.google-apps.script":       "application/vnd.google-apps.script+json",
}

// ExportMIMEType maps a native Google type to the type it is exported as.
// Other types are returned unchanged.
func ExportMIMEType(mimeType string) string {
	if t, ok := exportTypes[mimeType]; ok {
		return t
	}
	return mimeType
}

// Skipped reports whether content of the resolved type is never fetched.
func Skipped(resolved string) bool {
	return strings.Contains(resolved, "image") || strings.Contains(resolved, "jam")
}
