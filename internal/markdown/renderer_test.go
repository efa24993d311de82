package markdown

import (
	"strings"
	"testing"
)

func TestRenderer_Render(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Heading",
			input:    "# Indicators",
			expected: "<h1>Indicators</h1>\n",
		},
		{
			name:     "GFM Table",
			input:    "| IP | Seen |\n|---|---|\n| 10.0.0.1 | yes |",
			expected: "<td>10.0.0.1</td>",
		},
		{
			name:     "GFM Strikethrough",
			input:    "~~false positive~~",
			expected: "<del>false positive</del>",
		},
		{
			name:     "GFM Autolink",
			input:    "Seen at https://evil.example.com today",
			expected: "<a href=\"https://evil.example.com\"",
		},
		{
			name:     "Fenced code keeps text",
			input:    "```\ncurl evil.com\n```",
			expected: "curl evil.com",
		},
		{
			name:     "Fenced code has no token markup",
			input:    "```sh\ncurl -s evil.com\n```",
			expected: "<code class=\"language-sh\">curl -s evil.com\n</code>",
		},
		{
			name:     "Empty Input",
			input:    "",
			expected: "",
		},
	}

	r := NewRenderer()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := r.Render([]byte(tt.input))
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if tt.expected == "" {
				if len(output) != 0 {
					t.Errorf("Expected empty output, got %q", output)
				}
				return
			}
			if !strings.Contains(string(output), tt.expected) {
				t.Errorf("Expected output to contain %q, got %q", tt.expected, output)
			}
		})
	}
}

func TestRenderer_DropsRawHTML(t *testing.T) {
	r := NewRenderer()
	output, err := r.Render([]byte("<script>alert(1)</script>\n\ntext"))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(string(output), "<script>") {
		t.Errorf("Expected raw HTML to be omitted, got %q", output)
	}
	if !strings.Contains(string(output), "text") {
		t.Errorf("Expected paragraph text to survive, got %q", output)
	}
}
