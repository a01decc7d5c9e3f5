package engine

import (
	"time"

	"shadowplay/pkg/models"

	"github.com/sirupsen/logrus"
)

// run is the boundary-scheduler loop: a high-frequency poll of the clock
// while playback is live. It is started by Play and cancelled through stopCh
// whenever playback stops or the material changes, so no loop ever outlives
// the segment list it was scheduled against.
func (e *Engine) run(stopCh chan struct{}) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.step()
		}
	}
}

func (e *Engine) step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepLocked()
}

// stepLocked is one scheduler tick. It must stay cheap: a clock read and a
// handful of comparisons.
func (e *Engine) stepLocked() {
	if !e.playing || e.clock == nil {
		return
	}
	t := e.clock.CurrentTime()

	// End of track stops playback and rewinds, regardless of mode.
	if d := e.clock.Duration(); d > 0 && t >= d {
		e.clock.Pause()
		e.clock.Seek(0)
		e.playing = false
		e.stopLoopLocked()
		e.notifyLocked()
		return
	}

	switch e.mode {
	case models.PlayModeArticle:
		// Track the containing segment; gaps between segments keep the
		// previous one highlighted.
		if idx := e.segmentAtLocked(t); idx != -1 && idx != e.active {
			e.active = idx
			e.loops = 0
			e.notifyLocked()
		}

	case models.PlayModeSentence:
		if e.active < 0 || e.active >= len(e.segments) {
			return // nothing selected; wait for the user
		}
		seg := e.segments[e.active]
		if seg.EndTime <= seg.StartTime {
			e.advanceDegenerateLocked()
			return
		}
		if t >= seg.EndTime-e.cfg.Epsilon {
			e.boundaryLocked(seg)
		}
	}
}

// boundaryLocked handles a sentence-boundary crossing: replay while under the
// loop target, otherwise pause just inside the segment so resuming does not
// immediately retrigger.
func (e *Engine) boundaryLocked(seg models.Segment) {
	e.loops++

	if e.loopTarget != models.LoopUnbounded && e.loops >= e.loopTarget {
		pos := seg.EndTime - e.cfg.Epsilon/2
		if pos < seg.StartTime {
			pos = seg.StartTime
		}
		e.clock.Seek(pos)
		e.clock.Pause()
		e.playing = false
		e.stopLoopLocked()
		e.logger.WithFields(logrus.Fields{
			"material_id": e.materialID,
			"segment":     seg.ID,
			"loops":       e.loops,
		}).Debug("Paused at sentence boundary")
		e.notifyLocked()
		return
	}

	e.clock.Seek(seg.StartTime)
	e.notifyLocked()
}

// advanceDegenerateLocked moves past a zero-length segment instead of
// spinning the tick loop on a boundary the clock can never cross.
func (e *Engine) advanceDegenerateLocked() {
	e.loops++
	if e.active+1 < len(e.segments) {
		e.active++
		e.loops = 0
		e.clock.Seek(e.segments[e.active].StartTime)
	} else {
		e.clock.Pause()
		e.playing = false
		e.stopLoopLocked()
	}
	e.notifyLocked()
}

// segmentAtLocked returns the index of the segment containing t, or -1.
func (e *Engine) segmentAtLocked(t float64) int {
	for i, seg := range e.segments {
		if seg.Contains(t) {
			return i
		}
	}
	return -1
}

func (e *Engine) startLoopLocked() {
	if e.stop != nil {
		return
	}
	stopCh := make(chan struct{})
	e.stop = stopCh
	go e.run(stopCh)
}

func (e *Engine) stopLoopLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}
