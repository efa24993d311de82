package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jun/drivelookup/internal/model"
)

var (
	bold       = lipgloss.NewStyle().Bold(true)
	dim        = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	success    = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563eb"))
	matchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706")).Bold(true)
)

// printResults writes a human-readable rendition of lookup results.
func printResults(w io.Writer, results []model.SearchResult) {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header := bold.Render(r.Entity.Value)
		if r.Entity.Type != "" {
			header += " " + dim.Render("("+r.Entity.Type+")")
		}
		fmt.Fprintln(w, header)

		if r.AuthRequired != nil {
			fmt.Fprintln(w, "  "+errStyle.Render("Authentication Required"))
			fmt.Fprintln(w, "  "+r.AuthRequired.AuthURL)
			continue
		}
		if r.Data == nil {
			fmt.Fprintln(w, "  "+dim.Render("no files found"))
			continue
		}

		tags := make([]string, len(r.Summary))
		for j, t := range r.Summary {
			tags[j] = tagStyle.Render(t)
		}
		fmt.Fprintln(w, "  "+strings.Join(tags, dim.Render(" | ")))

		for _, f := range r.Data.Files {
			fmt.Fprintf(w, "  %-8s %s  %s\n", dim.Render("["+f.Icon+"]"), f.Name, matchLabel(f))
			if f.WebViewLink != "" {
				fmt.Fprintln(w, "           "+dim.Render(f.WebViewLink))
			}
			if f.ThumbnailError != "" {
				fmt.Fprintln(w, "           "+errStyle.Render("thumbnail: "+f.ThumbnailError))
			}
		}
	}
}

func matchLabel(f model.FileRecord) string {
	switch f.ContentStatus {
	case model.ContentPending:
		return dim.Render("content not fetched")
	case model.ContentUnavailable:
		return dim.Render(model.NoContentText)
	}
	n := 0
	if f.Range != nil {
		n = f.Range.Count()
	}
	if n == 0 {
		return dim.Render("name match only")
	}
	return matchStyle.Render(fmt.Sprintf("%d content matches", n))
}
