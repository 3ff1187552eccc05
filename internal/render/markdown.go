// Package render turns assistant answers, which are usually markdown, into
// HTML fragments for the front-end.
package render

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// The converter is stateless per call, so one instance is shared. Raw HTML
// from the endpoint is not passed through.
var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return markdownInstance
}

// HTML converts markdown to an HTML fragment. Blank input yields "".
func HTML(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(input), &buf); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
