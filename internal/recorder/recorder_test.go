package recorder

import (
	"errors"
	"testing"
)

type pausePlayer struct {
	pauses int
}

func (p *pausePlayer) Pause() { p.pauses++ }

func TestRecorder(t *testing.T) {
	wavData := []byte("RIFF fake payload")

	t.Run("StartPausesPlayback", func(t *testing.T) {
		player := &pausePlayer{}
		rec := New(&StaticDevice{Data: wavData}, player, nil)

		if err := rec.Start("s1"); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if player.pauses != 1 {
			t.Errorf("Expected playback paused once, got %d", player.pauses)
		}
		if id, open := rec.Recording(); !open || id != "s1" {
			t.Errorf("Expected open session for s1, got %q open=%v", id, open)
		}
	})

	t.Run("ReentrantStartIsNoop", func(t *testing.T) {
		player := &pausePlayer{}
		rec := New(&StaticDevice{Data: wavData}, player, nil)

		if err := rec.Start("s1"); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := rec.Start("s2"); err != nil {
			t.Fatalf("Second Start should be ignored, got %v", err)
		}
		if id, _ := rec.Recording(); id != "s1" {
			t.Errorf("Expected session to stay tagged s1, got %q", id)
		}
		if player.pauses != 1 {
			t.Errorf("Expected only the first Start to pause, got %d pauses", player.pauses)
		}
	})

	t.Run("StopFilesClipUnderStartSegment", func(t *testing.T) {
		rec := New(&StaticDevice{Data: wavData}, nil, nil)

		if err := rec.Start("s3"); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		clip, err := rec.Stop()
		if err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
		if clip.SegmentID != "s3" {
			t.Errorf("Expected clip tagged s3, got %q", clip.SegmentID)
		}
		if !rec.Has("s3") {
			t.Error("Expected clip stored for s3")
		}
		if _, open := rec.Recording(); open {
			t.Error("Expected no open session after Stop")
		}
	})

	t.Run("UndecodableClipStillStored", func(t *testing.T) {
		rec := New(&StaticDevice{Data: []byte("not audio")}, nil, nil)
		rec.Start("s1")
		clip, err := rec.Stop()
		if err != nil {
			t.Fatalf("Stop failed: %v", err)
		}
		if clip.Buffer != nil {
			t.Error("Expected no decoded buffer for garbage bytes")
		}
		if !rec.Has("s1") {
			t.Error("Expected clip stored despite decode failure")
		}
	})

	t.Run("PermissionDeniedLeavesStateUntouched", func(t *testing.T) {
		player := &pausePlayer{}
		rec := New(&StaticDevice{Deny: true}, player, nil)

		err := rec.Start("s1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("Expected ErrPermissionDenied, got %v", err)
		}
		if _, open := rec.Recording(); open {
			t.Error("Expected no open session after denial")
		}
		if rec.Count() != 0 {
			t.Error("Expected no clips after denial")
		}
	})

	t.Run("StartWithoutSegmentFails", func(t *testing.T) {
		rec := New(&StaticDevice{Data: wavData}, nil, nil)
		if err := rec.Start(""); err == nil {
			t.Error("Expected error for empty segment id")
		}
	})

	t.Run("StopWithoutSessionIsNoop", func(t *testing.T) {
		rec := New(&StaticDevice{Data: wavData}, nil, nil)
		clip, err := rec.Stop()
		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
		if clip != nil {
			t.Error("Expected nil clip")
		}
	})

	t.Run("RerecordingReplacesClip", func(t *testing.T) {
		rec := New(&StaticDevice{Data: []byte("take one")}, nil, nil)
		rec.Start("s1")
		rec.Stop()

		rec.device = &StaticDevice{Data: []byte("take two")}
		rec.Start("s1")
		rec.Stop()

		if got := string(rec.Get("s1").Data); got != "take two" {
			t.Errorf("Expected latest take, got %q", got)
		}
		if rec.Count() != 1 {
			t.Errorf("Expected one clip, got %d", rec.Count())
		}
	})

	t.Run("DeleteIsolation", func(t *testing.T) {
		rec := New(&StaticDevice{Data: wavData}, nil, nil)
		for _, id := range []string{"s1", "s2", "s3"} {
			rec.Start(id)
			rec.Stop()
		}

		rec.Delete("s2")
		if rec.Has("s2") {
			t.Error("Expected s2 removed")
		}
		if !rec.Has("s1") || !rec.Has("s3") {
			t.Error("Expected other clips untouched")
		}
	})

	t.Run("ClearDropsEverything", func(t *testing.T) {
		rec := New(&StaticDevice{Data: wavData}, nil, nil)
		rec.Start("s1")
		rec.Stop()
		rec.Clear()
		if rec.Count() != 0 {
			t.Errorf("Expected empty store, got %d clips", rec.Count())
		}
	})

	t.Run("RestoreFilesClip", func(t *testing.T) {
		rec := New(nil, nil, nil)
		rec.Restore("s9", wavData)
		clip := rec.Get("s9")
		if clip == nil || clip.SegmentID != "s9" {
			t.Fatal("Expected restored clip for s9")
		}
		if _, open := rec.Recording(); open {
			t.Error("Expected Restore not to open a session")
		}
	})
}
