package materials

import (
	"math"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			"LatinPunctuation",
			"Hello there. How are you? Fine!",
			[]string{"Hello there.", "How are you?", "Fine!"},
		},
		{
			"CJKPunctuation",
			"你好。今天天气很好！真的吗？",
			[]string{"你好。", "今天天气很好！", "真的吗？"},
		},
		{
			"TrailingFragmentKept",
			"First. And this never ends",
			[]string{"First.", "And this never ends"},
		},
		{
			"WhitespaceOnlyDropped",
			".  .  ",
			[]string{".", "."},
		},
		{
			"Empty",
			"   ",
			nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitSentences(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("Expected %d sentences, got %d: %q", len(tc.want), len(got), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("Sentence %d: expected %q, got %q", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestAllocateTimes(t *testing.T) {
	t.Run("ProportionalAndContiguous", func(t *testing.T) {
		sentences := []string{
			"A very long opening sentence with many many characters in it.",
			"Short one.",
			"A middling sentence here.",
		}
		segs, err := AllocateTimes(sentences, 60.0)
		if err != nil {
			t.Fatalf("AllocateTimes failed: %v", err)
		}
		if len(segs) != 3 {
			t.Fatalf("Expected 3 segments, got %d", len(segs))
		}

		if segs[0].StartTime != 0 {
			t.Errorf("Expected first segment at 0, got %.2f", segs[0].StartTime)
		}
		for i, seg := range segs {
			if seg.EndTime <= seg.StartTime {
				t.Errorf("Segment %d reversed: [%.2f, %.2f]", i, seg.StartTime, seg.EndTime)
			}
			if i > 0 && seg.StartTime != segs[i-1].EndTime {
				t.Errorf("Gap before segment %d", i)
			}
		}
		if last := segs[len(segs)-1]; math.Abs(last.EndTime-60.0) > 1e-9 {
			t.Errorf("Expected last segment to end at 60.0, got %.2f", last.EndTime)
		}
		// The long sentence gets the biggest share.
		if segs[0].Duration() <= segs[1].Duration() {
			t.Error("Expected character share to drive segment length")
		}
	})

	t.Run("MinimumLengthFloor", func(t *testing.T) {
		segs, err := AllocateTimes([]string{"Hi.", strings.Repeat("long sentence ", 50)}, 30.0)
		if err != nil {
			t.Fatalf("AllocateTimes failed: %v", err)
		}
		if segs[0].Duration() < 0.5 {
			t.Errorf("Expected minimum 0.5s segment, got %.3f", segs[0].Duration())
		}
	})

	t.Run("InvalidInputs", func(t *testing.T) {
		if _, err := AllocateTimes(nil, 10); err == nil {
			t.Error("Expected error for no sentences")
		}
		if _, err := AllocateTimes([]string{"Hi."}, 0); err == nil {
			t.Error("Expected error for zero duration")
		}
	})
}

func TestImportText(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. It then sits down. The end."

	t.Run("WithAudioDuration", func(t *testing.T) {
		m, err := ImportText("Fox Story", text, 12.0)
		if err != nil {
			t.Fatalf("ImportText failed: %v", err)
		}
		if m.Title != "Fox Story" {
			t.Errorf("Expected given title, got %q", m.Title)
		}
		if m.Category != "imported" {
			t.Errorf("Expected imported category, got %q", m.Category)
		}
		if len(m.Segments) != 3 {
			t.Fatalf("Expected 3 segments, got %d", len(m.Segments))
		}
		if got := m.Segments[2].EndTime; math.Abs(got-12.0) > 1e-9 {
			t.Errorf("Expected timings spread over 12s, got final end %.2f", got)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("Imported material invalid: %v", err)
		}
	})

	t.Run("EstimatesDurationWithoutAudio", func(t *testing.T) {
		m, err := ImportText("", text, 0)
		if err != nil {
			t.Fatalf("ImportText failed: %v", err)
		}
		// 15 words at 2.5 words/sec.
		want := 15.0 / 2.5
		if got := m.Segments[len(m.Segments)-1].EndTime; math.Abs(got-want) > 1e-9 {
			t.Errorf("Expected estimated duration %.2f, got %.2f", want, got)
		}
		if m.Title == "" {
			t.Error("Expected a title derived from the first sentence")
		}
	})

	t.Run("EmptyTranscript", func(t *testing.T) {
		if _, err := ImportText("x", "   ", 10); err == nil {
			t.Error("Expected error for empty transcript")
		}
	})
}
