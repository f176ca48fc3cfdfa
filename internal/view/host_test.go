package view

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/leaf/internal/frame"
	"github.com/metcalfc/leaf/internal/relay"
	"github.com/metcalfc/leaf/internal/surface"
)

// hostHarness drives the manager's message handling with a fake clock,
// without running the host loop.
type hostHarness struct {
	t     *testing.T
	m     *Manager
	s     *fakeSurface
	clock *fakeClock
}

func newHostHarness(t *testing.T) *hostHarness {
	t.Helper()
	clock := newFakeClock()
	m := New(context.Background(), Options{Clock: clock.Now})
	s := newFakeSurface()
	m.CreateView(s)
	m.SetBounds(frame.Rect{Width: 1000, Height: 800})
	t.Cleanup(m.Destroy)
	return &hostHarness{t: t, m: m, s: s, clock: clock}
}

func (h *hostHarness) send(msgType string, payload any) {
	h.t.Helper()
	msg, err := relay.NewMessage(msgType, "doc", payload)
	require.NoError(h.t, err)
	h.m.handle(context.Background(), msg)
}

// tap presses and clicks at x after a short press.
func (h *hostHarness) tap(x float64) {
	h.send(relay.TypeFramePress, relay.PressPayload{ClientX: x})
	h.clock.Add(50 * time.Millisecond)
	h.send(relay.TypeFrameClick, relay.ClickPayload{ClientX: x, FrameWidth: 1000, FrameX: x})
}

func (h *hostHarness) wait(d time.Duration) {
	h.clock.Add(d)
	h.m.advance(context.Background())
}

func TestTapRightTurnsForwardAfterWindow(t *testing.T) {
	h := newHostHarness(t)

	h.tap(900)
	_, next := h.s.turns()
	assert.Zero(t, next, "a tap must wait out the double click window")

	h.wait(299 * time.Millisecond)
	_, next = h.s.turns()
	assert.Zero(t, next)

	h.wait(time.Millisecond)
	_, next = h.s.turns()
	assert.Equal(t, 1, next)
}

func TestTapLeftTurnsBack(t *testing.T) {
	h := newHostHarness(t)
	h.tap(100)
	h.wait(300 * time.Millisecond)
	prev, _ := h.s.turns()
	assert.Equal(t, 1, prev)
}

func TestDoubleClickDoesNotTurn(t *testing.T) {
	h := newHostHarness(t)
	h.tap(900)
	h.clock.Add(100 * time.Millisecond)
	h.tap(900)
	h.wait(time.Second)

	prev, next := h.s.turns()
	assert.Zero(t, prev)
	assert.Zero(t, next)
}

func TestMiddleTapPublishesEvent(t *testing.T) {
	h := newHostHarness(t)
	events, cancel := h.m.Subscribe()
	defer cancel()

	h.tap(500)
	h.wait(300 * time.Millisecond)

	select {
	case ev := <-events:
		assert.Equal(t, EventMiddleTap, ev.Type)
	default:
		t.Fatal("no middle-single-tap event")
	}
	prev, next := h.s.turns()
	assert.Zero(t, prev+next)
}

func TestLongHoldDoesNotTurn(t *testing.T) {
	h := newHostHarness(t)
	h.send(relay.TypeFramePress, relay.PressPayload{ClientX: 900})
	h.wait(600 * time.Millisecond)
	h.send(relay.TypeFrameClick, relay.ClickPayload{ClientX: 900, FrameWidth: 1000})
	h.wait(time.Second)

	_, next := h.s.turns()
	assert.Zero(t, next)
}

func TestNavigationGuardDropsQuickSecondTurn(t *testing.T) {
	h := newHostHarness(t)

	h.tap(900)
	h.clock.Add(100 * time.Millisecond)
	h.tap(100) // different zone, not a double click

	h.wait(150 * time.Millisecond)
	_, next := h.s.turns()
	require.Equal(t, 1, next)

	h.wait(150 * time.Millisecond)
	prev, _ := h.s.turns()
	assert.Zero(t, prev, "second turn inside the guard is dropped")
}

func TestKeyMessageBypassesGuard(t *testing.T) {
	h := newHostHarness(t)
	h.tap(900)
	h.wait(300 * time.Millisecond)
	h.send(relay.TypeFrameKey, relay.KeyPayload{Key: "ArrowLeft"})

	prev, next := h.s.turns()
	assert.Equal(t, 1, next)
	assert.Equal(t, 1, prev)
}

func TestClickUsesFrameWhenBoundsUnknown(t *testing.T) {
	clock := newFakeClock()
	m := New(context.Background(), Options{Clock: clock.Now})
	s := newFakeSurface()
	m.CreateView(s)
	defer m.Destroy()

	msg, err := relay.NewMessage(relay.TypeFrameClick, "doc", relay.ClickPayload{
		ClientX: 450, FrameLeft: 400, FrameWidth: 200, FrameX: 50,
	})
	require.NoError(t, err)
	m.handle(context.Background(), msg)
	clock.Add(300 * time.Millisecond)
	m.advance(context.Background())

	prev, _ := s.turns()
	assert.Equal(t, 1, prev, "x=50 in a 200 wide frame is the left zone")
}

func TestUnknownMessageIsIgnored(t *testing.T) {
	h := newHostHarness(t)
	h.m.handle(context.Background(), relay.Message{Type: "frame-scroll"})
	prev, next := h.s.turns()
	assert.Zero(t, prev+next)
}

func TestRunEndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := New(ctx, Options{})
	p := surface.NewPaged(ctx, surface.Options{PageWords: 2})
	m.CreateView(p)
	defer m.Destroy()
	m.SetBounds(frame.Rect{Width: 1000, Height: 800})

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	events, unsubscribe := m.Subscribe()
	defer unsubscribe()

	path := filepath.Join(t.TempDir(), "book.md")
	require.NoError(t, os.WriteFile(path, []byte("# One\na b c d e f\n# Two\ng h\n"), 0o644))
	require.NoError(t, m.LoadBook(ctx, path))

	waitLoad(t, events, "book1-section0")
	require.Eventually(t, func() bool {
		loc := m.Location()
		return loc != nil && loc.Section == 0 && loc.Page == 0
	}, time.Second, 5*time.Millisecond)

	p.Pointer(frame.PointerDown, 900, 100)
	p.Pointer(frame.PointerClick, 900, 100)

	require.Eventually(t, func() bool {
		loc := m.Location()
		return loc != nil && loc.Page == 1
	}, 2*time.Second, 10*time.Millisecond, "right tap should turn the page")

	m.Key("ArrowLeft")
	require.Eventually(t, func() bool {
		loc := m.Location()
		return loc != nil && loc.Page == 0
	}, time.Second, 5*time.Millisecond, "a key in the document should turn back")

	assert.Empty(t, m.ExpandedChapters(), "a flat table of contents has nothing to expand")
	rows := m.SidebarRows()
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Active)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

// waitLoad waits until the document with id has been loaded and instrumented.
func waitLoad(t *testing.T, events <-chan Event, id string) {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed before %s loaded", id)
			if ev.Type == EventLoad && ev.DocumentID == id {
				return
			}
		case <-timeout:
			t.Fatalf("document %s never loaded", id)
		}
	}
}
