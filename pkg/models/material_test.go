package models

import "testing"

func TestSegment(t *testing.T) {
	seg := Segment{ID: "s1", Text: "Hello.", StartTime: 2.0, EndTime: 5.0}

	t.Run("Contains", func(t *testing.T) {
		cases := []struct {
			t    float64
			want bool
		}{
			{1.9, false},
			{2.0, true}, // start inclusive
			{3.5, true},
			{5.0, false}, // end exclusive
			{5.1, false},
		}
		for _, tc := range cases {
			if got := seg.Contains(tc.t); got != tc.want {
				t.Errorf("Contains(%.1f) = %v, expected %v", tc.t, got, tc.want)
			}
		}
	})

	t.Run("Validate", func(t *testing.T) {
		if err := seg.Validate(); err != nil {
			t.Errorf("Expected valid segment, got %v", err)
		}
		bad := []Segment{
			{ID: "", StartTime: 0, EndTime: 1},
			{ID: "neg", StartTime: -1, EndTime: 1},
			{ID: "rev", StartTime: 2, EndTime: 1},
			{ID: "zero", StartTime: 2, EndTime: 2},
		}
		for _, s := range bad {
			if err := s.Validate(); err == nil {
				t.Errorf("Expected validation error for %+v", s)
			}
		}
	})
}

func TestMaterialValidate(t *testing.T) {
	m := &Material{
		ID:    "m1",
		Title: "Test",
		Segments: []Segment{
			{ID: "a", Text: "One.", StartTime: 0, EndTime: 2},
			{ID: "b", Text: "Two.", StartTime: 2.5, EndTime: 4}, // gap tolerated
			{ID: "c", Text: "Three.", StartTime: 3.9, EndTime: 6}, // small overlap tolerated
		},
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Expected gaps and small overlaps tolerated, got %v", err)
	}

	out := &Material{
		ID:    "m2",
		Title: "Out of order",
		Segments: []Segment{
			{ID: "a", Text: "One.", StartTime: 5, EndTime: 7},
			{ID: "b", Text: "Two.", StartTime: 1, EndTime: 3},
		},
	}
	if err := out.Validate(); err == nil {
		t.Error("Expected error for reversed segment order")
	}

	if err := (&Material{ID: "", Title: "x"}).Validate(); err == nil {
		t.Error("Expected error for missing id")
	}
	if err := (&Material{ID: "x", Title: ""}).Validate(); err == nil {
		t.Error("Expected error for missing title")
	}
}

func TestTrackDuration(t *testing.T) {
	m := &Material{ID: "m", Title: "t", Segments: []Segment{
		{ID: "a", StartTime: 0, EndTime: 3},
		{ID: "b", StartTime: 3, EndTime: 8.25},
	}}
	if got := m.TrackDuration(); got != 8.25 {
		t.Errorf("Expected 8.25, got %.2f", got)
	}
	if got := (&Material{}).TrackDuration(); got != 0 {
		t.Errorf("Expected 0 for empty material, got %.2f", got)
	}
}

func TestCycles(t *testing.T) {
	t.Run("LoopTarget", func(t *testing.T) {
		cases := []struct{ in, want int }{
			{1, 2}, {2, 3}, {3, LoopUnbounded}, {LoopUnbounded, 1}, {7, 1},
		}
		for _, tc := range cases {
			if got := CycleLoopTarget(tc.in); got != tc.want {
				t.Errorf("CycleLoopTarget(%d) = %d, expected %d", tc.in, got, tc.want)
			}
		}
	})

	t.Run("TextVisibility", func(t *testing.T) {
		cases := []struct{ in, want TextVisibility }{
			{TextFull, TextBlurred},
			{TextBlurred, TextHidden},
			{TextHidden, TextFull},
		}
		for _, tc := range cases {
			if got := CycleTextVisibility(tc.in); got != tc.want {
				t.Errorf("CycleTextVisibility(%s) = %s, expected %s", tc.in, got, tc.want)
			}
		}
	})
}
