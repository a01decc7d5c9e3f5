// Package store persists materials, their segments, and saved recordings in
// SQLite. It is the "persisted container" behind the material providers; the
// playback engine itself never touches it.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"shadowplay/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps a *sql.DB with helpers for the material catalog. Safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Store struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for the hot paths
	insertMaterialStmt  *sql.Stmt
	insertSegmentStmt   *sql.Stmt
	getMaterialStmt     *sql.Stmt
	getSegmentsStmt     *sql.Stmt
	materialExistsStmt  *sql.Stmt
	saveRecordingStmt   *sql.Stmt
	deleteRecordingStmt *sql.Stmt
}

// Open opens (or creates) the SQLite database at path, ensures the schema
// exists, and applies the WAL/pragma tuning. Caller should Close it.
func Open(path string) (*Store, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", path+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with few connections.
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	s := &Store{conn: conn, logger: logger}
	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", path).Info("Store initialized")
	return s, nil
}

// createTables creates tables and indices if missing. Idempotent.
func (s *Store) createTables() error {
	materialsTable := `
	CREATE TABLE IF NOT EXISTS materials (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT,
		difficulty TEXT,
		duration_label TEXT,
		image_url TEXT,
		audio_path TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	segmentsTable := `
	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		material_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		FOREIGN KEY (material_id) REFERENCES materials(id) ON DELETE CASCADE
	);`

	recordingsTable := `
	CREATE TABLE IF NOT EXISTS recordings (
		segment_id TEXT PRIMARY KEY,
		material_id TEXT NOT NULL,
		data BLOB NOT NULL,
		duration REAL DEFAULT 0,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (material_id) REFERENCES materials(id) ON DELETE CASCADE
	);`

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_segments_material ON segments(material_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_materials_category ON materials(category);",
		"CREATE INDEX IF NOT EXISTS idx_recordings_material ON recordings(material_id);",
	}

	for _, stmt := range []string{materialsTable, segmentsTable, recordingsTable} {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	for _, index := range indices {
		if _, err := s.conn.Exec(index); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) prepareStatements() error {
	var err error

	s.insertMaterialStmt, err = s.conn.Prepare(`
		INSERT OR REPLACE INTO materials (id, title, description, category, difficulty, duration_label, image_url, audio_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert material statement: %w", err)
	}

	s.insertSegmentStmt, err = s.conn.Prepare(`
		INSERT OR REPLACE INTO segments (id, material_id, position, text, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert segment statement: %w", err)
	}

	s.getMaterialStmt, err = s.conn.Prepare(`
		SELECT id, title, description, category, difficulty, duration_label, image_url, audio_path, created_at
		FROM materials WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get material statement: %w", err)
	}

	s.getSegmentsStmt, err = s.conn.Prepare(`
		SELECT id, text, start_time, end_time FROM segments
		WHERE material_id = ? ORDER BY position`)
	if err != nil {
		return fmt.Errorf("failed to prepare get segments statement: %w", err)
	}

	s.materialExistsStmt, err = s.conn.Prepare(`SELECT COUNT(*) FROM materials WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare material exists statement: %w", err)
	}

	s.saveRecordingStmt, err = s.conn.Prepare(`
		INSERT OR REPLACE INTO recordings (segment_id, material_id, data, duration, recorded_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare save recording statement: %w", err)
	}

	s.deleteRecordingStmt, err = s.conn.Prepare(`DELETE FROM recordings WHERE segment_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete recording statement: %w", err)
	}

	return nil
}

// SaveMaterial upserts a material and its segments in one transaction.
func (s *Store) SaveMaterial(m *models.Material) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid material: %w", err)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := tx.Stmt(s.insertMaterialStmt).Exec(
		m.ID, m.Title, m.Description, m.Category, m.Difficulty,
		m.DurationLabel, m.ImageURL, m.AudioPath, createdAt,
	); err != nil {
		return fmt.Errorf("failed to insert material: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM segments WHERE material_id = ?", m.ID); err != nil {
		return fmt.Errorf("failed to clear old segments: %w", err)
	}
	for i, seg := range m.Segments {
		if _, err := tx.Stmt(s.insertSegmentStmt).Exec(
			seg.ID, m.ID, i, seg.Text, seg.StartTime, seg.EndTime,
		); err != nil {
			return fmt.Errorf("failed to insert segment %s: %w", seg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"material_id": m.ID,
		"title":       m.Title,
		"segments":    len(m.Segments),
	}).Info("Material saved")
	return nil
}

// GetMaterial loads one material with its ordered segments.
func (s *Store) GetMaterial(id string) (*models.Material, error) {
	m := &models.Material{}
	var description, category, difficulty, durationLabel, imageURL, audioPath sql.NullString
	err := s.getMaterialStmt.QueryRow(id).Scan(
		&m.ID, &m.Title, &description, &category, &difficulty,
		&durationLabel, &imageURL, &audioPath, &m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("material %s not found", id)
		}
		return nil, err
	}
	m.Description = description.String
	m.Category = category.String
	m.Difficulty = difficulty.String
	m.DurationLabel = durationLabel.String
	m.ImageURL = imageURL.String
	m.AudioPath = audioPath.String
	m.HasAudio = m.AudioPath != ""

	rows, err := s.getSegmentsStmt.Query(id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seg models.Segment
		if err := rows.Scan(&seg.ID, &seg.Text, &seg.StartTime, &seg.EndTime); err != nil {
			return nil, err
		}
		m.Segments = append(m.Segments, seg)
	}
	return m, rows.Err()
}

// ListMaterials returns all materials without their segments (catalog view).
func (s *Store) ListMaterials() ([]models.Material, error) {
	rows, err := s.conn.Query(`
		SELECT m.id, m.title, m.description, m.category, m.difficulty, m.duration_label,
		       m.image_url, m.audio_path, m.created_at,
		       (SELECT COUNT(*) FROM segments WHERE material_id = m.id)
		FROM materials m ORDER BY m.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []models.Material
	for rows.Next() {
		var m models.Material
		var description, category, difficulty, durationLabel, imageURL, audioPath sql.NullString
		var segmentCount int
		if err := rows.Scan(&m.ID, &m.Title, &description, &category, &difficulty,
			&durationLabel, &imageURL, &audioPath, &m.CreatedAt, &segmentCount); err != nil {
			return nil, err
		}
		m.Description = description.String
		m.Category = category.String
		m.Difficulty = difficulty.String
		m.DurationLabel = durationLabel.String
		m.ImageURL = imageURL.String
		m.AudioPath = audioPath.String
		m.HasAudio = m.AudioPath != ""
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

// MaterialExists reports whether a material id is present.
func (s *Store) MaterialExists(id string) (bool, error) {
	var count int
	if err := s.materialExistsStmt.QueryRow(id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteMaterial removes a material; segments and recordings cascade.
func (s *Store) DeleteMaterial(id string) error {
	_, err := s.conn.Exec("DELETE FROM materials WHERE id = ?", id)
	return err
}

// DeleteMaterialByAudioPath removes materials referencing a removed audio file.
func (s *Store) DeleteMaterialByAudioPath(path string) error {
	_, err := s.conn.Exec("DELETE FROM materials WHERE audio_path = ?", path)
	return err
}

// SaveRecording persists one segment's clip so a practice session survives a
// restart.
func (s *Store) SaveRecording(materialID, segmentID string, data []byte, duration float64) error {
	_, err := s.saveRecordingStmt.Exec(segmentID, materialID, data, duration, time.Now())
	return err
}

// GetRecordings returns the saved clips for a material, keyed by segment id.
func (s *Store) GetRecordings(materialID string) (map[string][]byte, error) {
	rows, err := s.conn.Query("SELECT segment_id, data FROM recordings WHERE material_id = ?", materialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clips := make(map[string][]byte)
	for rows.Next() {
		var segmentID string
		var data []byte
		if err := rows.Scan(&segmentID, &data); err != nil {
			return nil, err
		}
		clips[segmentID] = data
	}
	return clips, rows.Err()
}

// DeleteRecording removes one segment's saved clip.
func (s *Store) DeleteRecording(segmentID string) error {
	_, err := s.deleteRecordingStmt.Exec(segmentID)
	return err
}

// Close closes prepared statements and the connection.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.insertMaterialStmt, s.insertSegmentStmt, s.getMaterialStmt,
		s.getSegmentsStmt, s.materialExistsStmt, s.saveRecordingStmt,
		s.deleteRecordingStmt,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.conn.Close()
}
