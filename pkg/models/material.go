package models

import (
	"fmt"
	"time"
)

// Segment is one timed span of transcript text. Timestamps are seconds from
// the start of the material's audio track.
type Segment struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Contains reports whether t falls inside [StartTime, EndTime).
func (s Segment) Contains(t float64) bool {
	return t >= s.StartTime && t < s.EndTime
}

// Validate checks the timing invariant. Segments with StartTime >= EndTime
// are rejected at the provider boundary so the engine never sees them.
func (s Segment) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("segment missing id")
	}
	if s.StartTime < 0 {
		return fmt.Errorf("segment %s: negative start time %.3f", s.ID, s.StartTime)
	}
	if s.StartTime >= s.EndTime {
		return fmt.Errorf("segment %s: start %.3f not before end %.3f", s.ID, s.StartTime, s.EndTime)
	}
	return nil
}

// Material is a practice unit: a transcript split into ordered segments plus
// an optional audio track. An empty AudioPath means the player runs a
// simulated clock instead of real audio.
type Material struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Difficulty    string    `json:"difficulty,omitempty"`
	DurationLabel string    `json:"durationLabel,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	AudioPath     string    `json:"-"` // local path, not exposed to clients
	HasAudio      bool      `json:"hasAudio"`
	CreatedAt     time.Time `json:"createdAt"`
	Segments      []Segment `json:"segments"`
}

// TrackDuration returns the end time of the last segment, or 0 when the
// material has no segments.
func (m *Material) TrackDuration() float64 {
	if len(m.Segments) == 0 {
		return 0
	}
	return m.Segments[len(m.Segments)-1].EndTime
}

// SegmentByID returns the index of the segment with the given id, or -1.
func (m *Material) SegmentByID(id string) int {
	for i, seg := range m.Segments {
		if seg.ID == id {
			return i
		}
	}
	return -1
}

// Validate checks every segment and the ordering invariant. Small gaps and
// overlaps between neighbours are tolerated (import-time estimation is
// approximate); only reversed ordering is an error.
func (m *Material) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("material missing id")
	}
	if m.Title == "" {
		return fmt.Errorf("material %s: missing title", m.ID)
	}
	for i, seg := range m.Segments {
		if err := seg.Validate(); err != nil {
			return err
		}
		if i > 0 && seg.StartTime < m.Segments[i-1].StartTime {
			return fmt.Errorf("material %s: segment %s out of order", m.ID, seg.ID)
		}
	}
	return nil
}

// PlayMode selects continuous playback or per-sentence drilling.
type PlayMode string

const (
	PlayModeArticle  PlayMode = "article"
	PlayModeSentence PlayMode = "sentence"
)

// TextVisibility controls how much of the transcript the client should show.
type TextVisibility string

const (
	TextFull    TextVisibility = "full"
	TextBlurred TextVisibility = "blurred"
	TextHidden  TextVisibility = "hidden"
)

// CycleTextVisibility returns the next mode in the full → blurred → hidden cycle.
func CycleTextVisibility(v TextVisibility) TextVisibility {
	switch v {
	case TextFull:
		return TextBlurred
	case TextBlurred:
		return TextHidden
	default:
		return TextFull
	}
}

// LoopUnbounded is the LoopTarget value meaning "replay until the user stops".
const LoopUnbounded = 0

// CycleLoopTarget advances the loop target through 1 → 2 → 3 → unbounded.
func CycleLoopTarget(target int) int {
	switch target {
	case 1, 2:
		return target + 1
	case 3:
		return LoopUnbounded
	default:
		return 1
	}
}
