package gesture

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		width    float64
		expected Zone
	}{
		{"origin", 0, 1000, ZoneLeft},
		{"just left of threshold", 299, 1000, ZoneLeft},
		{"left threshold", 300, 1000, ZoneMiddle},
		{"center", 500, 1000, ZoneMiddle},
		{"right threshold", 700, 1000, ZoneMiddle},
		{"just right of threshold", 701, 1000, ZoneRight},
		{"far right", 999, 1000, ZoneRight},
		{"fractional left", 29.9, 100, ZoneLeft},
		{"fractional right", 70.1, 100, ZoneRight},
		{"zero width", 10, 0, ZoneMiddle},
		{"negative width", 10, -50, ZoneMiddle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.x, tt.width); got != tt.expected {
				t.Errorf("Classify(%v, %v) = %v, want %v", tt.x, tt.width, got, tt.expected)
			}
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	const width = 640
	for x := 0.0; x < width; x += 0.5 {
		got := Classify(x, width)
		var want Zone
		switch {
		case x < 0.3*width:
			want = ZoneLeft
		case x > 0.7*width:
			want = ZoneRight
		default:
			want = ZoneMiddle
		}
		if got != want {
			t.Fatalf("Classify(%v, %v) = %v, want %v", x, width, got, want)
		}
		if again := Classify(x, width); again != got {
			t.Fatalf("Classify(%v, %v) not deterministic: %v then %v", x, width, got, again)
		}
	}
}

func TestZoneString(t *testing.T) {
	tests := []struct {
		zone     Zone
		expected string
	}{
		{ZoneNone, "none"},
		{ZoneLeft, "left"},
		{ZoneMiddle, "middle"},
		{ZoneRight, "right"},
	}
	for _, tt := range tests {
		if got := tt.zone.String(); got != tt.expected {
			t.Errorf("Zone.String() = %q, want %q", got, tt.expected)
		}
	}
}

func TestKeyIntent(t *testing.T) {
	tests := []struct {
		key      string
		expected Intent
		ok       bool
	}{
		{KeyArrowLeft, IntentPrev, true},
		{"h", IntentPrev, true},
		{KeyPageUp, IntentPrev, true},
		{KeyArrowRight, IntentNext, true},
		{"l", IntentNext, true},
		{KeyPageDown, IntentNext, true},
		{"j", IntentNone, false},
		{"H", IntentNone, false},
		{"", IntentNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := KeyIntent(tt.key)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("KeyIntent(%q) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.expected, tt.ok)
			}
		})
	}
}
