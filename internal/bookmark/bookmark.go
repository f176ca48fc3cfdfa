// Package bookmark stores named reading positions per book, either on a
// bookmark server or in a local SQLite database.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Bookmark is a saved position in a book. CFI holds the reader's locator.
type Bookmark struct {
	ID        int64  `json:"id"`
	BookID    int64  `json:"bookId"`
	CFI       string `json:"cfi"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

// CreateRequest describes a bookmark to add.
type CreateRequest struct {
	BookID int64  `json:"bookId"`
	CFI    string `json:"cfi"`
	Title  string `json:"title,omitempty"`
}

// Service lists, creates and deletes bookmarks.
type Service interface {
	List(ctx context.Context, bookID int64) ([]Bookmark, error)
	Create(ctx context.Context, req CreateRequest) (Bookmark, error)
	Delete(ctx context.Context, id int64) error
}

// ErrNotFound is returned when deleting a bookmark that does not exist.
var ErrNotFound = errors.New("bookmark not found")

// StatusError is a non-2xx response from the bookmark server.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	if b := strings.TrimSpace(e.Body); b != "" {
		msg += ": " + b
	}
	return msg
}

// Is matches ErrNotFound for 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == 404
}

func validate(req CreateRequest) error {
	if req.BookID <= 0 {
		return fmt.Errorf("invalid book id %d", req.BookID)
	}
	if strings.TrimSpace(req.CFI) == "" {
		return errors.New("bookmark locator cannot be empty")
	}
	return nil
}
