package frame

import "testing"

func TestRectContains(t *testing.T) {
	r := Rect{Left: 10, Top: 5, Width: 100, Height: 50}
	tests := []struct {
		name     string
		x, y     float64
		expected bool
	}{
		{"top left corner", 10, 5, true},
		{"inside", 60, 30, true},
		{"right edge excluded", 110, 30, false},
		{"bottom edge excluded", 60, 55, false},
		{"left of frame", 9.9, 30, false},
		{"above frame", 60, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.x, tt.y); got != tt.expected {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.expected)
			}
		})
	}
}

func TestPointerKindString(t *testing.T) {
	if PointerDown.String() != "down" || PointerClick.String() != "click" {
		t.Errorf("unexpected names %q %q", PointerDown, PointerClick)
	}
	if PointerKind(9).String() != "unknown" {
		t.Errorf("unknown kind should say so")
	}
}

func TestDocDispatch(t *testing.T) {
	d := NewDoc("section-1", Rect{Width: 200, Height: 100})

	var downs, clicks []PointerEvent
	var keys []string
	d.OnPointer(PointerDown, func(ev PointerEvent) { downs = append(downs, ev) })
	d.OnPointer(PointerClick, func(ev PointerEvent) { clicks = append(clicks, ev) })
	d.OnPointer(PointerClick, func(ev PointerEvent) { clicks = append(clicks, ev) })
	d.OnKey(func(ev KeyEvent) { keys = append(keys, ev.Key) })

	d.DispatchPointer(PointerEvent{Kind: PointerClick, X: 12, Y: 3, Target: "P"})
	if len(downs) != 0 {
		t.Errorf("click reached down listeners")
	}
	if len(clicks) != 2 || clicks[0].X != 12 || clicks[1].Target != "P" {
		t.Errorf("clicks = %+v", clicks)
	}

	d.DispatchKey(KeyEvent{Key: "ArrowLeft"})
	if len(keys) != 1 || keys[0] != "ArrowLeft" {
		t.Errorf("keys = %v", keys)
	}
}

func TestDocFrameRect(t *testing.T) {
	d := NewDoc("x", Rect{Width: 10})
	if d.ID() != "x" {
		t.Errorf("ID = %q", d.ID())
	}
	d.SetFrameRect(Rect{Left: 300, Width: 500, Height: 400})
	if got := d.FrameRect(); got.Left != 300 || got.Width != 500 {
		t.Errorf("FrameRect = %+v", got)
	}
}

func TestDocListenerCanRegisterDuringDispatch(t *testing.T) {
	d := NewDoc("x", Rect{})
	calls := 0
	d.OnKey(func(KeyEvent) {
		calls++
		d.OnKey(func(KeyEvent) { calls++ })
	})
	d.DispatchKey(KeyEvent{Key: "a"})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (listeners added mid-dispatch wait for the next event)", calls)
	}
}
