package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"shadowplay/internal/audio"
	"shadowplay/internal/auth"
	"shadowplay/internal/cache"
	"shadowplay/internal/config"
	"shadowplay/internal/engine"
	"shadowplay/internal/export"
	"shadowplay/internal/materials"
	"shadowplay/internal/ngrok"
	"shadowplay/internal/recorder"
	"shadowplay/internal/store"
	"shadowplay/internal/transport"
	"shadowplay/pkg/models"

	"github.com/sirupsen/logrus"
)

// PracticeServer wires the playback engine, recorder, exporter, and material
// providers behind the HTTP control API.
type PracticeServer struct {
	config    *config.Config
	store     *store.Store
	catalog   *materials.Catalog
	watcher   *materials.Watcher
	generator *materials.Generator
	engine    *engine.Engine
	recorder  *recorder.Recorder
	exporter  *export.Exporter
	bufCache  *cache.BufferCache
	gate      *auth.Gate
	ngrok     *ngrok.Service
	logger    *logrus.Logger
	httpSrv   *http.Server

	// Session state for the currently loaded material. trackGen guards
	// async decode results against material switches.
	mu       sync.Mutex
	material *models.Material
	trackBuf *audio.Buffer
	trackGen int
}

// NewPracticeServer assembles the server from its parts.
func NewPracticeServer(cfg *config.Config, st *store.Store, logger *logrus.Logger) (*PracticeServer, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	gate, err := auth.NewGate(cfg.Server.AccessCode, logger)
	if err != nil {
		return nil, err
	}

	ngrokSvc, err := ngrok.NewService(&cfg.Ngrok)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		ngrokSvc = nil
	}

	eng := engine.New(engine.Config{
		Epsilon:           cfg.Engine.EpsilonSeconds,
		TickInterval:      time.Duration(cfg.Engine.TickMillis) * time.Millisecond,
		PrevDeadZone:      cfg.Engine.PrevDeadZoneSeconds,
		DefaultLoopTarget: cfg.Engine.DefaultLoopTarget,
	}, logger)

	var device recorder.Device
	if cfg.Recording.Backend != "none" {
		device = recorder.NewFFmpegDevice(cfg.Recording.SampleRate, cfg.Recording.Channels, cfg.Recording.TempDir)
	}

	var gen *materials.Generator
	if cfg.Generator.Enabled {
		gen = materials.NewGenerator(cfg.Generator.Model, logger)
	}

	ps := &PracticeServer{
		config:    cfg,
		store:     st,
		catalog:   materials.NewCatalog(&cfg.Materials, st, logger),
		generator: gen,
		engine:    eng,
		recorder:  recorder.New(device, eng, logger),
		exporter:  export.New(logger),
		bufCache:  cache.NewBufferCache(),
		gate:      gate,
		ngrok:     ngrokSvc,
		logger:    logger,
	}
	ps.watcher = materials.NewWatcher(ps.catalog, logger)
	return ps, nil
}

// ScanLibrary imports the materials directory into the store.
func (ps *PracticeServer) ScanLibrary() error {
	if !ps.config.Materials.ScanOnStartup {
		ps.logger.Info("Skipping library scan (disabled in config)")
		return nil
	}
	_, err := ps.catalog.ScanLibrary()
	return err
}

// Start runs the HTTP server; it blocks until Shutdown.
func (ps *PracticeServer) Start() error {
	if ps.config.Materials.WatchForChanges {
		if err := ps.watcher.Start(); err != nil {
			ps.logger.WithError(err).Warn("Could not start material watcher")
		}
	}

	mux := ps.routes()
	handler := ps.panicRecoveryMiddleware(ps.corsMiddleware(ps.requestLoggingMiddleware(ps.gateMiddleware(mux))))

	localAddress := "http://" + ps.config.GetAddress()
	ps.logger.WithFields(logrus.Fields{
		"address": localAddress,
	}).Info("Shadowplay server starting")

	if ps.ngrok != nil {
		if err := ps.ngrok.StartTunnel(context.Background(), localAddress); err != nil {
			ps.logger.WithError(err).Warn("Could not start ngrok tunnel")
		}
	}

	ps.httpSrv = &http.Server{
		Addr:        ps.config.GetAddress(),
		Handler:     handler,
		ReadTimeout: time.Duration(ps.config.Server.ReadTimeout) * time.Second,
	}
	err := ps.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (ps *PracticeServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", ps.handleHome)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(ps.config.Server.StaticDir))))
	mux.HandleFunc("/health", ps.handleHealthCheck)
	mux.HandleFunc("/api/login", ps.handleLogin)

	// Materials
	mux.HandleFunc("/api/materials", ps.handleListMaterials)
	mux.HandleFunc("/api/materials/import", ps.handleImportText)
	mux.HandleFunc("/api/materials/generate", ps.handleGenerateMaterial)
	mux.HandleFunc("/api/materials/", ps.handleMaterialByID) // GET one / DELETE / POST select

	// Player controls
	mux.HandleFunc("/api/player/state", ps.handlePlayerState)
	mux.HandleFunc("/api/player/play", ps.handlePlay)
	mux.HandleFunc("/api/player/pause", ps.handlePause)
	mux.HandleFunc("/api/player/toggle", ps.handleTogglePlay)
	mux.HandleFunc("/api/player/next", ps.handleSkipNext)
	mux.HandleFunc("/api/player/prev", ps.handleSkipPrev)
	mux.HandleFunc("/api/player/replay", ps.handleReplay)
	mux.HandleFunc("/api/player/seek", ps.handleSeek)
	mux.HandleFunc("/api/player/segment", ps.handleSelectSegment)
	mux.HandleFunc("/api/player/mode", ps.handleSetMode)
	mux.HandleFunc("/api/player/loop", ps.handleLoopTarget)
	mux.HandleFunc("/api/player/visibility", ps.handleTextVisibility)

	// Recording + comparison
	mux.HandleFunc("/api/recording/start", ps.handleRecordStart)
	mux.HandleFunc("/api/recording/stop", ps.handleRecordStop)
	mux.HandleFunc("/api/recordings/", ps.handleRecordingByID) // GET wav / DELETE
	mux.HandleFunc("/api/waveform/segment", ps.handleSegmentWaveform)
	mux.HandleFunc("/api/waveform/recording", ps.handleRecordingWaveform)

	// Export
	mux.HandleFunc("/api/export", ps.handleExport)

	// Audio streaming
	mux.HandleFunc("/stream/", ps.handleStreamAudio)

	return mux
}

// Shutdown gracefully shuts down the server and releases engine resources.
func (ps *PracticeServer) Shutdown() {
	ps.logger.Info("Shutting down shadowplay server...")

	ps.watcher.Stop()
	if ps.ngrok != nil {
		ps.ngrok.Stop()
	}
	if _, recording := ps.recorder.Recording(); recording {
		ps.recorder.Stop()
	}
	ps.engine.Close()
	if ps.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ps.httpSrv.Shutdown(ctx)
	}

	ps.logger.Info("Shutdown complete")
}

// loadMaterial makes m the active material: the engine is reset atomically,
// recordings are cleared, and a fresh async track decode kicks off for
// waveform comparison.
func (ps *PracticeServer) loadMaterial(m *models.Material) {
	ps.mu.Lock()
	ps.material = m
	ps.trackBuf = nil
	ps.trackGen++
	gen := ps.trackGen
	ps.mu.Unlock()

	var clock transport.Clock
	if m.HasAudio {
		track := transport.NewTrackTransport()
		track.SetDuration(m.TrackDuration())
		clock = transport.NewMedia(track)
		if buf, ok := ps.bufCache.GetTrackBuffer(m.ID); ok {
			// Revisiting a recently loaded material; skip the re-decode.
			ps.mu.Lock()
			ps.trackBuf = buf
			ps.mu.Unlock()
			track.SetDuration(buf.Duration())
		} else {
			go ps.decodeTrack(m, gen, track)
		}
	}
	ps.engine.LoadMaterial(m, clock)
	ps.recorder.Clear()
	ps.restoreRecordings(m)
}

// decodeTrack decodes the whole track off the timing-critical path and
// publishes the buffer for waveform display. Failures degrade to "no
// waveform"; playback is unaffected. Stale results from a superseded
// material switch are dropped.
func (ps *PracticeServer) decodeTrack(m *models.Material, gen int, track *transport.TrackTransport) {
	buf, err := audio.DecodeFile(m.AudioPath)
	if err != nil {
		ps.logger.WithError(err).WithField("material_id", m.ID).Warn("Track not decodable; waveform unavailable")
		return
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if gen != ps.trackGen {
		return // material changed while decoding
	}
	ps.trackBuf = buf
	ps.bufCache.SetTrackBuffer(m.ID, buf)
	track.SetDuration(buf.Duration())
	ps.logger.WithFields(logrus.Fields{
		"material_id": m.ID,
		"duration":    buf.Duration(),
		"sample_rate": buf.SampleRate,
	}).Info("Track decoded")
}

// segmentBuffer returns the active material's extracted buffer for one
// segment, memoized by (segment id, decode generation).
func (ps *PracticeServer) segmentBuffer(seg models.Segment) *audio.Buffer {
	ps.mu.Lock()
	trackBuf, gen := ps.trackBuf, ps.trackGen
	ps.mu.Unlock()
	if trackBuf == nil {
		return nil
	}

	if buf, ok := ps.bufCache.GetSegmentBuffer(seg.ID, gen); ok {
		return buf
	}
	buf := audio.ExtractSegment(trackBuf, seg.StartTime, seg.EndTime)
	ps.bufCache.SetSegmentBuffer(seg.ID, gen, buf)
	return buf
}

// restoreRecordings reloads saved clips for a material into the recorder's
// store so a practice session survives a restart.
func (ps *PracticeServer) restoreRecordings(m *models.Material) {
	clips, err := ps.store.GetRecordings(m.ID)
	if err != nil {
		ps.logger.WithError(err).WithField("material_id", m.ID).Warn("Could not restore recordings")
		return
	}
	for segmentID, data := range clips {
		ps.recorder.Restore(segmentID, data)
	}
	if len(clips) > 0 {
		ps.logger.WithFields(logrus.Fields{
			"material_id": m.ID,
			"clips":       len(clips),
		}).Info("Restored recordings")
	}
}
