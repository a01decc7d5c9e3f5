// Package engine owns playback state for one material and runs the boundary
// scheduler that keeps the clock and the active sentence in lock-step.
package engine

import (
	"sync"
	"time"

	"shadowplay/internal/transport"
	"shadowplay/pkg/models"

	"github.com/sirupsen/logrus"
)

// Config tunes the scheduler's timing behavior.
type Config struct {
	// Epsilon is how far before a segment's end the boundary fires, so the
	// pause lands before the next sentence's audio is audible.
	Epsilon float64
	// TickInterval is the scheduler poll period while playing.
	TickInterval time.Duration
	// PrevDeadZone: skipping back restarts the current sentence when more
	// than this many seconds have elapsed since its start.
	PrevDeadZone float64
	// DefaultLoopTarget is the loop count a fresh engine starts with.
	DefaultLoopTarget int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Epsilon:           0.10,
		TickInterval:      15 * time.Millisecond,
		PrevDeadZone:      1.75,
		DefaultLoopTarget: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Epsilon <= 0 {
		c.Epsilon = d.Epsilon
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.PrevDeadZone <= 0 {
		c.PrevDeadZone = d.PrevDeadZone
	}
	if c.DefaultLoopTarget < 0 {
		c.DefaultLoopTarget = d.DefaultLoopTarget
	}
	return c
}

// State is a point-in-time snapshot of playback.
type State struct {
	MaterialID         string                `json:"materialId,omitempty"`
	CurrentTime        float64               `json:"currentTime"`
	Duration           float64               `json:"duration"`
	IsPlaying          bool                  `json:"isPlaying"`
	ActiveSegmentIndex int                   `json:"activeSegmentIndex"` // -1 = none
	PlayMode           models.PlayMode       `json:"playMode"`
	LoopTarget         int                   `json:"loopTarget"` // 0 = unbounded
	LoopsCompleted     int                   `json:"loopsCompleted"`
	TextVisibility     models.TextVisibility `json:"textVisibility"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

// Engine drives one material's playback. All mutation happens under one
// mutex so an index change is visible to the very next scheduler tick.
type Engine struct {
	cfg    Config
	logger *logrus.Logger

	mu         sync.Mutex
	clock      transport.Clock
	materialID string
	segments   []models.Segment
	mode       models.PlayMode
	visibility models.TextVisibility
	loopTarget int
	loops      int
	active     int // -1 = none
	playing    bool

	stop       chan struct{} // cancels the running tick loop; nil when idle
	generation int           // bumped on every material switch

	listeners []chan State
}

// New creates an idle engine with no material loaded.
func New(cfg Config, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		mode:       models.PlayModeArticle,
		visibility: models.TextFull,
		loopTarget: cfg.DefaultLoopTarget,
		active:     -1,
	}
}

// LoadMaterial swaps in a new material and clock as one atomic transition:
// the old tick loop is cancelled, every engine field resets, and nothing of
// the previous material's state survives. A nil clock gets a simulated timer
// sized from the last segment's end time.
func (e *Engine) LoadMaterial(m *models.Material, clock transport.Clock) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLoopLocked()
	if e.clock != nil {
		e.clock.Close()
	}

	e.generation++
	if m == nil {
		e.clock = nil
		e.materialID = ""
		e.segments = nil
	} else {
		if clock == nil {
			clock = transport.NewTimer(m.TrackDuration())
		}
		e.clock = clock
		e.materialID = m.ID
		e.segments = m.Segments
	}
	e.active = -1
	e.loops = 0
	e.playing = false

	e.logger.WithFields(logrus.Fields{
		"material_id": e.materialID,
		"segments":    len(e.segments),
	}).Info("Material loaded")
	e.notifyLocked()
}

// Close stops the tick loop and releases the clock.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLoopLocked()
	if e.clock != nil {
		e.clock.Close()
		e.clock = nil
	}
	e.playing = false
}

// State returns a snapshot of the current playback state (thread-safe).
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	s := State{
		MaterialID:         e.materialID,
		IsPlaying:          e.playing,
		ActiveSegmentIndex: e.active,
		PlayMode:           e.mode,
		LoopTarget:         e.loopTarget,
		LoopsCompleted:     e.loops,
		TextVisibility:     e.visibility,
		UpdatedAt:          time.Now(),
	}
	if e.clock != nil {
		s.CurrentTime = e.clock.CurrentTime()
		s.Duration = e.clock.Duration()
	}
	return s
}

// Subscribe adds a listener for state changes.
func (e *Engine) Subscribe() <-chan State {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan State, 10)
	e.listeners = append(e.listeners, ch)
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (e *Engine) Unsubscribe(ch <-chan State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, listener := range e.listeners {
		if listener == ch {
			close(listener)
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			break
		}
	}
}

// notifyLocked sends the current state to all subscribers. Slow or closed
// subscribers are dropped rather than blocking the scheduler.
func (e *Engine) notifyLocked() {
	snapshot := e.stateLocked()
	for i := 0; i < len(e.listeners); i++ {
		select {
		case e.listeners[i] <- snapshot:
		default:
			close(e.listeners[i])
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			i--
		}
	}
}
