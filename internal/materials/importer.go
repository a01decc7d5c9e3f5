// Package materials supplies Material values to the engine: a directory
// catalog scanner, a text importer with estimated timings, and a generative
// producer. The engine consumes what these produce and validates nothing
// beyond the timing invariants.
package materials

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"shadowplay/pkg/models"

	"github.com/google/uuid"
)

// wordsPerSecond approximates a narrator's pace, used to synthesize a track
// length for imported text with no audio.
const wordsPerSecond = 2.5

// minSegmentSeconds keeps estimated segments long enough to drill.
const minSegmentSeconds = 0.5

// SplitSentences breaks transcript text into sentence strings on terminal
// punctuation (Latin and CJK). Whitespace-only pieces are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？', '；', ';':
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// AllocateTimes distributes totalDuration across the sentences in proportion
// to each sentence's share of the total character count. This is the
// documented import-estimation policy: it has no ground truth, so the
// resulting timestamps are approximate and downstream consumers must
// tolerate imprecise alignment.
func AllocateTimes(sentences []string, totalDuration float64) ([]models.Segment, error) {
	if len(sentences) == 0 {
		return nil, fmt.Errorf("no sentences to allocate")
	}
	if totalDuration <= 0 {
		return nil, fmt.Errorf("total duration must be positive, got %.3f", totalDuration)
	}

	totalChars := 0
	for _, s := range sentences {
		totalChars += utf8.RuneCountInString(s)
	}
	if totalChars == 0 {
		return nil, fmt.Errorf("sentences contain no characters")
	}

	segments := make([]models.Segment, 0, len(sentences))
	cursor := 0.0
	for i, s := range sentences {
		share := float64(utf8.RuneCountInString(s)) / float64(totalChars)
		length := totalDuration * share
		if length < minSegmentSeconds {
			length = minSegmentSeconds
		}
		end := cursor + length
		if i == len(sentences)-1 || end > totalDuration {
			end = totalDuration
		}
		if end <= cursor {
			// Duration exhausted by the minimum-length floor; stretch the
			// tail marginally rather than emitting a reversed segment.
			end = cursor + minSegmentSeconds
		}
		segments = append(segments, models.Segment{
			ID:        uuid.New().String(),
			Text:      s,
			StartTime: cursor,
			EndTime:   end,
		})
		cursor = end
	}
	return segments, nil
}

// EstimateDuration synthesizes a track length for text with no audio, from
// word count at a fixed narration pace.
func EstimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return minSegmentSeconds
	}
	return float64(words) / wordsPerSecond
}

// ImportText builds a Material from raw transcript text. With audioDuration
// > 0 the sentence timings are spread over the real track; otherwise a
// simulated duration is estimated from the text itself.
func ImportText(title, text string, audioDuration float64) (*models.Material, error) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, fmt.Errorf("transcript contains no sentences")
	}

	duration := audioDuration
	if duration <= 0 {
		duration = EstimateDuration(text)
	}

	segments, err := AllocateTimes(sentences, duration)
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = firstWords(sentences[0], 6)
	}
	m := &models.Material{
		ID:            uuid.New().String(),
		Title:         title,
		Category:      "imported",
		DurationLabel: durationLabel(duration),
		Segments:      segments,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func durationLabel(seconds float64) string {
	minutes := int(seconds) / 60
	if minutes < 1 {
		return "under 1 min"
	}
	return fmt.Sprintf("%d min", minutes)
}
