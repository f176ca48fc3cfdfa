package view

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/metcalfc/leaf/internal/surface"
	"github.com/metcalfc/leaf/internal/toc"
)

// defaultBookName is used when the path has no usable last element.
const defaultBookName = "book.epub"

// LoadBook waits the configured load delay, fetches the book at path (an
// http(s) URL or a local file) and opens it in the surface. Failures are not
// retried.
func (m *Manager) LoadBook(ctx context.Context, path string) error {
	s := m.current()
	if s == nil {
		return ErrViewNotInitialized
	}

	if m.opts.LoadDelay > 0 {
		t := time.NewTimer(m.opts.LoadDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	data, err := m.fetch(ctx, path)
	if err != nil {
		return err
	}

	name := bookName(path)
	f := surface.File{
		Name:      name,
		MediaType: surface.MediaTypeFor(name, data),
		Data:      data,
	}

	m.relay.Reset()
	m.mu.Lock()
	m.sidebar = toc.NewSidebar()
	m.location = nil
	m.mu.Unlock()

	if err := s.Open(ctx, f); err != nil {
		return &LoadError{Path: path, Err: err}
	}

	var chapters []toc.Node
	if b := s.Book(); b != nil {
		chapters = toc.Map(b.TOC)
	}
	m.mu.Lock()
	m.sidebar.SetChapters(chapters)
	m.mu.Unlock()

	m.log.Info().Str("path", path).Str("media_type", f.MediaType).Int("bytes", len(data)).Msg("book loaded")
	return nil
}

func isRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func (m *Manager) fetch(ctx context.Context, p string) ([]byte, error) {
	if !isRemote(p) {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, &LoadError{Path: p, Err: err}
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, &LoadError{Path: p, Err: err}
	}
	resp, err := m.opts.Client.Do(req)
	if err != nil {
		return nil, &LoadError{Path: p, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Path: p, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{Path: p, Err: fmt.Errorf("reading body: %w", err)}
	}
	return data, nil
}

// bookName is the last path element, or book.epub when there is none.
func bookName(p string) string {
	if isRemote(p) {
		if u, err := url.Parse(p); err == nil {
			p = u.Path
		}
	}
	p = strings.ReplaceAll(p, "\\", "/")
	name := path.Base(p)
	if name == "" || name == "." || name == "/" {
		return defaultBookName
	}
	return name
}
