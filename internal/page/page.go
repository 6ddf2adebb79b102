// Package page holds the embedded markup for the event list page. The
// markup and the selectors in config.DefaultSelectors are versioned
// together.
package page

import (
	_ "embed"
	"fmt"
	"os"

	"golang.org/x/net/html"

	"eventlist/internal/dom"
)

//go:embed index.html
var indexHTML string

// New parses a fresh copy of the embedded page.
func New() (*html.Node, error) {
	return dom.ParseString(indexHTML)
}

// FromFile parses page markup from disk, for deployments that restyle the
// page. The file must carry the elements named by the configured selectors.
func FromFile(path string) (*html.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("page: open %s: %w", path, err)
	}
	defer f.Close()
	return dom.Parse(f)
}
