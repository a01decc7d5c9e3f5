package engine

import (
	"shadowplay/pkg/models"
)

// Play resumes playback and starts the scheduler loop. With no material
// loaded this is a no-op: an empty player is inert, not an error.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playLocked()
}

func (e *Engine) playLocked() error {
	if e.clock == nil || e.playing {
		return nil
	}
	if err := e.clock.Play(); err != nil {
		return err
	}
	e.playing = true
	e.startLoopLocked()
	e.notifyLocked()
	return nil
}

// Pause stops playback and cancels the scheduler loop.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseLocked()
}

func (e *Engine) pauseLocked() {
	if e.clock == nil || !e.playing {
		return
	}
	e.clock.Pause()
	e.playing = false
	e.stopLoopLocked()
	e.notifyLocked()
}

// TogglePlay flips between playing and paused.
func (e *Engine) TogglePlay() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playing {
		e.pauseLocked()
		return nil
	}
	return e.playLocked()
}

// SeekTo moves the clock to t (clamped by the clock to [0, duration]).
func (e *Engine) SeekTo(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock == nil {
		return
	}
	e.clock.Seek(t)
	e.notifyLocked()
}

// SeekBy moves the clock by delta seconds relative to the current position.
func (e *Engine) SeekBy(delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clock == nil {
		return
	}
	e.clock.Seek(e.clock.CurrentTime() + delta)
	e.notifyLocked()
}

// SelectSegment jumps directly to segment i (a transcript click). Like every
// manual navigation it resets the loop counter, updates the active index
// synchronously, and seeks to the segment's start.
func (e *Engine) SelectSegment(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gotoSegmentLocked(i)
}

// SkipNext advances to the next segment (or restarts the last one).
func (e *Engine) SkipNext() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == -1 {
		e.gotoSegmentLocked(0)
		return
	}
	e.gotoSegmentLocked(e.active + 1)
}

// SkipPrev behaves like a physical track-back button: when more than the
// dead-zone has elapsed since the active segment started it restarts the
// current sentence, otherwise it moves to the previous one.
func (e *Engine) SkipPrev() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == -1 {
		e.gotoSegmentLocked(0)
		return
	}
	if e.clock != nil {
		elapsed := e.clock.CurrentTime() - e.segments[e.active].StartTime
		if elapsed > e.cfg.PrevDeadZone {
			e.gotoSegmentLocked(e.active)
			return
		}
	}
	e.gotoSegmentLocked(e.active - 1)
}

// Replay restarts the active segment from its beginning.
func (e *Engine) Replay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == -1 {
		return
	}
	e.gotoSegmentLocked(e.active)
}

// gotoSegmentLocked is the single path for manual navigation. The index
// write happens before the seek so the very next scheduler tick observes the
// new segment; a stale read here would cost one loop iteration at the wrong
// boundary.
func (e *Engine) gotoSegmentLocked(i int) {
	if e.clock == nil || len(e.segments) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(e.segments) {
		i = len(e.segments) - 1
	}

	e.active = i
	e.loops = 0
	e.clock.Seek(e.segments[i].StartTime)

	// Drilling resumes automatically after navigation.
	if e.mode == models.PlayModeSentence && !e.playing {
		if err := e.clock.Play(); err == nil {
			e.playing = true
			e.startLoopLocked()
		}
	}
	e.notifyLocked()
}

// SetPlayMode switches between article and sentence playback. Engaging
// sentence mode adopts the segment under the playhead as the drill target
// when none is selected yet.
func (e *Engine) SetPlayMode(mode models.PlayMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mode != models.PlayModeArticle && mode != models.PlayModeSentence {
		return
	}
	e.mode = mode
	if mode == models.PlayModeSentence && e.active == -1 && e.clock != nil {
		if idx := e.segmentAtLocked(e.clock.CurrentTime()); idx != -1 {
			e.active = idx
			e.loops = 0
		}
	}
	e.notifyLocked()
}

// SetLoopTarget sets the drill loop count; models.LoopUnbounded loops until
// the user intervenes.
func (e *Engine) SetLoopTarget(target int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if target < 0 {
		return
	}
	e.loopTarget = target
	e.notifyLocked()
}

// CycleLoopTarget steps through 1 → 2 → 3 → unbounded.
func (e *Engine) CycleLoopTarget() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loopTarget = models.CycleLoopTarget(e.loopTarget)
	e.notifyLocked()
}

// CycleTextVisibility steps through full → blurred → hidden.
func (e *Engine) CycleTextVisibility() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visibility = models.CycleTextVisibility(e.visibility)
	e.notifyLocked()
}

// ActiveSegment returns the active segment and true, or false when none.
func (e *Engine) ActiveSegment() (models.Segment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active < 0 || e.active >= len(e.segments) {
		return models.Segment{}, false
	}
	return e.segments[e.active], true
}
