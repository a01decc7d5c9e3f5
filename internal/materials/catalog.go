package materials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shadowplay/internal/audio"
	"shadowplay/internal/config"
	"shadowplay/internal/store"
	"shadowplay/pkg/models"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// descriptor is the on-disk material file (<name>.json in the library).
// Either explicit timed segments or raw text to run through the importer.
type descriptor struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Difficulty  string  `json:"difficulty"`
	ImageURL    string  `json:"imageUrl"`
	Text        string  `json:"text"`
	Segments    []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Catalog scans the materials library directory and keeps the store in sync
// with it. A material is a JSON descriptor with an optional audio file of
// the same basename next to it.
type Catalog struct {
	cfg    *config.MaterialsConfig
	store  *store.Store
	logger *logrus.Logger
}

// NewCatalog creates a catalog over the configured library path.
func NewCatalog(cfg *config.MaterialsConfig, st *store.Store, logger *logrus.Logger) *Catalog {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Catalog{cfg: cfg, store: st, logger: logger}
}

// ScanLibrary walks the library and imports every descriptor found.
func (c *Catalog) ScanLibrary() (int, error) {
	count := 0
	err := filepath.Walk(c.cfg.LibraryPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !IsDescriptorFile(path) {
			return nil
		}
		if _, err := c.ImportFile(path); err != nil {
			c.logger.WithError(err).WithField("file_path", path).Error("Error importing material")
			return nil // keep scanning
		}
		count++
		return nil
	})
	c.logger.WithField("materials", count).Info("Library scan complete")
	return count, err
}

// IsDescriptorFile reports whether path looks like a material descriptor.
func IsDescriptorFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// IsAudioFile reports whether path has a supported audio extension.
func (c *Catalog) IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range c.cfg.SupportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ImportFile loads one descriptor, resolves its companion audio file, fills
// in estimated timings where the descriptor carries none, and saves the
// result to the store.
func (c *Catalog) ImportFile(path string) (*models.Material, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", path, err)
	}

	audioPath, audioDuration := c.resolveAudio(path)

	m := &models.Material{
		ID:          materialIDForPath(path),
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Difficulty:  d.Difficulty,
		ImageURL:    d.ImageURL,
		AudioPath:   audioPath,
		HasAudio:    audioPath != "",
	}

	switch {
	case len(d.Segments) > 0:
		for _, seg := range d.Segments {
			m.Segments = append(m.Segments, models.Segment{
				ID:        uuid.New().String(),
				Text:      seg.Text,
				StartTime: seg.Start,
				EndTime:   seg.End,
			})
		}
	case d.Text != "":
		imported, err := ImportText(d.Title, d.Text, audioDuration)
		if err != nil {
			return nil, err
		}
		m.Segments = imported.Segments
		if m.Title == "" {
			m.Title = imported.Title
		}
	default:
		return nil, fmt.Errorf("descriptor %s has neither segments nor text", path)
	}

	if m.Title == "" {
		m.Title = c.titleFromAudio(audioPath, path)
	}
	if m.DurationLabel == "" {
		if d := m.TrackDuration(); d > 0 {
			m.DurationLabel = durationLabel(d)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := c.store.SaveMaterial(m); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"material_id": m.ID,
		"title":       m.Title,
		"segments":    len(m.Segments),
		"has_audio":   m.HasAudio,
	}).Info("Imported material")
	return m, nil
}

// resolveAudio looks for an audio file sharing the descriptor's basename and
// probes its duration. Probe failures degrade to an estimated duration.
func (c *Catalog) resolveAudio(descriptorPath string) (string, float64) {
	base := strings.TrimSuffix(descriptorPath, filepath.Ext(descriptorPath))
	for _, ext := range c.cfg.SupportedFormats {
		candidate := base + ext
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		duration, err := audio.ProbeDuration(candidate)
		if err != nil {
			c.logger.WithError(err).WithField("file_path", candidate).Warn("Could not probe audio duration")
			duration = 0
		}
		return candidate, duration
	}
	return "", 0
}

// titleFromAudio reads the audio file's tag metadata for a title, falling
// back to the descriptor's filename.
func (c *Catalog) titleFromAudio(audioPath, descriptorPath string) string {
	if audioPath != "" {
		if f, err := os.Open(audioPath); err == nil {
			defer f.Close()
			if meta, err := tag.ReadFrom(f); err == nil && meta.Title() != "" {
				return meta.Title()
			}
		}
	}
	name := filepath.Base(descriptorPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// RemoveByPath deletes the material belonging to a removed descriptor or
// audio file.
func (c *Catalog) RemoveByPath(path string) error {
	if IsDescriptorFile(path) {
		return c.store.DeleteMaterial(materialIDForPath(path))
	}
	return c.store.DeleteMaterialByAudioPath(path)
}

// materialIDForPath derives a stable id from the descriptor path so a rescan
// updates a material instead of duplicating it.
func materialIDForPath(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("shadowplay:"+filepath.Clean(path))).String()
}
