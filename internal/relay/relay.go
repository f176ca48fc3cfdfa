// Package relay carries input captured inside content documents to the host
// over a message channel. Content documents never call host code directly:
// their listeners post tagged messages, and the host loop drains them.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/metcalfc/leaf/internal/frame"
	"github.com/metcalfc/leaf/internal/logging"
)

// DefaultBuffer is the channel capacity used when New is given zero.
const DefaultBuffer = 64

// ErrNoHandler is returned by Dispatch for message types nobody handles.
var ErrNoHandler = errors.New("no handler registered for message type")

// HandlerFunc handles one decoded message on the host side.
type HandlerFunc func(ctx context.Context, msg Message) error

// Relay is the message channel between content documents and the host.
type Relay struct {
	ch  chan Message
	log zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	seenMu sync.Mutex
	seen   map[string]struct{}
}

// New creates a relay with the given channel capacity.
func New(ctx context.Context, buffer int) *Relay {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Relay{
		ch:       make(chan Message, buffer),
		log:      logging.Component(ctx, "relay"),
		handlers: make(map[string]HandlerFunc),
		seen:     make(map[string]struct{}),
	}
}

// Instrument attaches press, click and key listeners to doc. It is a no-op
// for a document that was already instrumented, so revisiting a section never
// doubles its listeners. It reports whether listeners were attached.
func (r *Relay) Instrument(doc frame.Document) bool {
	if doc == nil {
		return false
	}

	id := doc.ID()
	r.seenMu.Lock()
	if _, ok := r.seen[id]; ok {
		r.seenMu.Unlock()
		return false
	}
	r.seen[id] = struct{}{}
	r.seenMu.Unlock()

	doc.OnPointer(frame.PointerDown, func(ev frame.PointerEvent) {
		rect := doc.FrameRect()
		r.post(TypeFramePress, id, PressPayload{
			ClientX: rect.Left + ev.X,
			ClientY: rect.Top + ev.Y,
		})
	})

	doc.OnPointer(frame.PointerClick, func(ev frame.PointerEvent) {
		rect := doc.FrameRect()
		r.post(TypeFrameClick, id, ClickPayload{
			ClientX:    rect.Left + ev.X,
			ClientY:    rect.Top + ev.Y,
			FrameLeft:  rect.Left,
			FrameWidth: rect.Width,
			FrameX:     ev.X,
			Target:     ev.Target,
		})
	})

	doc.OnKey(func(ev frame.KeyEvent) {
		r.post(TypeFrameKey, id, KeyPayload{Key: ev.Key})
	})

	r.log.Debug().Str("doc_id", id).Msg("instrumented content document")
	return true
}

// Reset forgets every instrumented document. Called when a new book replaces
// the previous one and its documents are gone.
func (r *Relay) Reset() {
	r.seenMu.Lock()
	r.seen = make(map[string]struct{})
	r.seenMu.Unlock()
}

func (r *Relay) post(msgType, docID string, payload any) {
	msg, err := NewMessage(msgType, docID, payload)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to encode frame message")
		return
	}
	r.Post(msg)
}

// Post queues msg for the host without blocking. A full channel drops the
// message; it reports whether the message was queued.
func (r *Relay) Post(msg Message) bool {
	select {
	case r.ch <- msg:
		return true
	default:
		r.log.Warn().Str("type", msg.Type).Msg("relay channel full, dropping message")
		return false
	}
}

// Messages is the host side of the channel.
func (r *Relay) Messages() <-chan Message {
	return r.ch
}

// Handle registers the host handler for a message type.
func (r *Relay) Handle(msgType string, fn HandlerFunc) error {
	if msgType == "" {
		return errors.New("message type cannot be empty")
	}
	if fn == nil {
		return errors.New("message handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[msgType] = fn
	return nil
}

// Dispatch routes msg to its handler.
func (r *Relay) Dispatch(ctx context.Context, msg Message) error {
	r.mu.RLock()
	fn, ok := r.handlers[msg.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoHandler, msg.Type)
	}
	return fn(ctx, msg)
}
