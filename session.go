package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/metcalfc/leaf/internal/bookmark"
	"github.com/metcalfc/leaf/internal/config"
	"github.com/metcalfc/leaf/internal/logging"
	"github.com/metcalfc/leaf/internal/state"
	"github.com/metcalfc/leaf/internal/surface"
	"github.com/metcalfc/leaf/internal/view"
)

// session is one open book: the view manager plus the stores that remember
// positions and bookmarks for it. Both front-ends drive a session.
type session struct {
	log       zerolog.Logger
	manager   *view.Manager
	states    *state.Store
	bookmarks bookmark.Service
	events    <-chan view.Event
	unsub     func()
	closers   []func() error

	path   string
	hash   string
	bookID int64
	fresh  bool
}

func newSession(ctx context.Context, cfg *config.Config, opts options, path string) (*session, error) {
	s := &session{
		log:    logging.Component(ctx, "session"),
		path:   path,
		bookID: opts.bookID,
		fresh:  opts.fresh,
	}

	states, err := state.NewStore(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}
	s.states = states

	if cfg.Bookmarks.URL != "" {
		s.bookmarks = bookmark.NewHTTPClient(cfg.Bookmarks.URL, nil)
	} else {
		store, err := bookmark.OpenStore(bookmarkDB(cfg))
		if err != nil {
			return nil, fmt.Errorf("opening bookmark store: %w", err)
		}
		s.bookmarks = store
		s.closers = append(s.closers, store.Close)
	}

	vopts := view.DefaultOptions()
	vopts.LoadDelay = cfg.Reader.LoadDelay
	s.manager = view.New(ctx, vopts)
	s.manager.CreateView(surface.NewPaged(ctx, surface.Options{PageWords: cfg.Reader.PageWords}))
	s.events, s.unsub = s.manager.Subscribe()
	return s, nil
}

func bookmarkDB(cfg *config.Config) string {
	if cfg.Bookmarks.DB != "" {
		return cfg.Bookmarks.DB
	}
	dir := cfg.State.Dir
	if dir == "" {
		dir = state.DefaultDir()
	}
	return filepath.Join(dir, "bookmarks.db")
}

// open loads the book and, unless starting fresh, returns to the saved
// position.
func (s *session) open(ctx context.Context) error {
	if err := s.manager.LoadBook(ctx, s.path); err != nil {
		return err
	}

	hash, err := bookHash(s.path)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", s.path, err)
	}
	s.hash = hash
	if s.bookID == 0 {
		s.bookID = state.BookID(hash)
	}

	if s.fresh {
		return nil
	}
	pos, ok := s.states.Get(hash)
	if !ok {
		return nil
	}
	if err := s.manager.GoTo(ctx, surface.Locator(pos.Locator)); err != nil {
		s.log.Debug().Err(err).Str("locator", pos.Locator).Msg("saved locator no longer resolves, using fraction")
		return s.manager.GoToFraction(ctx, pos.Fraction)
	}
	s.log.Info().Str("locator", pos.Locator).Msg("restored reading position")
	return nil
}

func bookHash(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return state.HashBytes([]byte(path)), nil
	}
	return state.ComputeHash(path)
}

// remember saves loc as the book's reading position.
func (s *session) remember(loc *surface.Location) {
	if loc == nil || s.hash == "" {
		return
	}
	err := s.states.Set(s.hash, state.Position{Locator: loc.Locator, Fraction: loc.Fraction})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to save reading position")
	}
}

// restart forgets the saved position and goes back to the first section.
func (s *session) restart(ctx context.Context) error {
	if s.hash != "" {
		if err := s.states.Clear(s.hash); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear reading position")
		}
	}
	return s.manager.GoToSection(ctx, 0)
}

// title is the book title, falling back to the file name.
func (s *session) title(ctx context.Context) string {
	if t := s.manager.Metadata(ctx)["title"]; t != "" {
		return t
	}
	return filepath.Base(s.path)
}

func (s *session) listBookmarks(ctx context.Context) ([]bookmark.Bookmark, error) {
	return s.bookmarks.List(ctx, s.bookID)
}

// addBookmark bookmarks the current location, titled after its chapter.
func (s *session) addBookmark(ctx context.Context) (bookmark.Bookmark, error) {
	loc := s.manager.Location()
	if loc == nil {
		return bookmark.Bookmark{}, errors.New("nothing to bookmark yet")
	}
	return s.bookmarks.Create(ctx, bookmark.CreateRequest{
		BookID: s.bookID,
		CFI:    loc.Locator,
		Title:  s.locationTitle(loc),
	})
}

func (s *session) locationTitle(loc *surface.Location) string {
	title := loc.Href
	if r := s.manager.Renderer(); r != nil {
		if page, ok := r.Page(); ok && page.Title != "" {
			title = page.Title
		}
	}
	return fmt.Sprintf("%s (%d%%)", title, int(loc.Fraction*100+0.5))
}

func (s *session) deleteBookmark(ctx context.Context, id int64) error {
	return s.bookmarks.Delete(ctx, id)
}

func (s *session) close() error {
	s.unsub()
	s.manager.Destroy()
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// logFile opens the TUI's log file, which lives beside the reading state
// since the terminal is taken.
func logFile(cfg *config.Config) (*os.File, error) {
	dir := cfg.State.Dir
	if dir == "" {
		dir = state.DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "leaf.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
