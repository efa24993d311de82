// Package extract turns downloaded file bytes into plain text for matching.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/jun/drivelookup/internal/markdown"
)

// ErrUnsupported is returned for MIME types no extractor handles.
var ErrUnsupported = errors.New("unsupported content type")

const (
	mimeODT          = "application/vnd.oasis.opendocument.text"
	mimeODP          = "application/vnd.oasis.opendocument.presentation"
	mimeODS          = "application/vnd.oasis.opendocument.spreadsheet"
	mimeAppsScript   = "application/vnd.google-apps.script+json"
	maxODFContentXML = 32 << 20
)

// Extractor converts file bytes into text, keeping line breaks.
type Extractor struct {
	md *markdown.Renderer
}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{md: markdown.NewRenderer()}
}

// Extract returns the text of data interpreted as mimeType.
func (e *Extractor) Extract(data []byte, mimeType string) (string, error) {
	base := mimeType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	base = strings.ToLower(strings.TrimSpace(base))

	switch base {
	case "text/plain", "text/html", "application/json":
		return string(data), nil
	case "text/csv":
		return delimited(data, ',')
	case "text/tab-separated-values":
		return delimited(data, '\t')
	case "text/markdown", "text/x-markdown":
		out, err := e.md.Render(data)
		if err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		return string(out), nil
	case mimeODT, mimeODP, mimeODS:
		return openDocument(data)
	case mimeAppsScript:
		return appsScript(data)
	}
	// Uploaded source files (text/x-python, application/javascript, ...) are
	// searched as-is when a lexer claims their type.
	if lexers.MatchMimeType(base) != nil {
		return string(data), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
}

func delimited(data []byte, comma rune) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var b strings.Builder
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed rows still carry searchable text.
			return string(data), nil
		}
		b.WriteString(strings.Join(record, " "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// openDocument reads the text nodes of an ODF package's content.xml.
func openDocument(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open document package: %w", err)
	}
	var content *zip.File
	for _, f := range zr.File {
		if f.Name == "content.xml" {
			content = f
			break
		}
	}
	if content == nil {
		return "", fmt.Errorf("open document package: content.xml missing")
	}
	rc, err := content.Open()
	if err != nil {
		return "", fmt.Errorf("open content.xml: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxODFContentXML))
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse content.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			switch t.Name.Local {
			case "tab", "s":
				b.WriteByte(' ')
			case "line-break":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "h", "table-row":
				b.WriteByte('\n')
			case "table-cell":
				b.WriteByte(' ')
			}
		}
	}
	return b.String(), nil
}

type scriptProject struct {
	Files []struct {
		Name   string `json:"name"`
		Type   string `json:"type"`
		Source string `json:"source"`
	} `json:"files"`
}

func appsScript(data []byte) (string, error) {
	var p scriptProject
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("parse apps script project: %w", err)
	}
	var b strings.Builder
	for _, f := range p.Files {
		b.WriteString(f.Name)
		b.WriteByte('\n')
		b.WriteString(f.Source)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
