package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const streamBufferSize = 64 * 1024

// handleStreamAudio serves /stream/{materialID}: the material's source audio
// file with byte-range support so clients can scrub.
func (ps *PracticeServer) handleStreamAudio(w http.ResponseWriter, r *http.Request) {
	materialID := strings.TrimPrefix(r.URL.Path, "/stream/")
	if materialID == "" || strings.Contains(materialID, "/") {
		ps.respondError(w, r, http.StatusBadRequest, "Missing material id", nil)
		return
	}

	m, err := ps.store.GetMaterial(materialID)
	if err != nil {
		ps.respondError(w, r, http.StatusNotFound, "Material not found", err)
		return
	}
	if m.AudioPath == "" {
		ps.respondError(w, r, http.StatusNotFound, "Material has no audio", nil)
		return
	}

	if err := ps.streamFile(w, r, m.AudioPath, contentTypeForAudio(m.AudioPath)); err != nil {
		ps.logger.WithError(err).WithField("material_id", materialID).Error("Streaming failed")
	}
}

// streamFile sends a file with buffered copying, ETag caching, and single
// byte-range support.
func (ps *PracticeServer) streamFile(w http.ResponseWriter, r *http.Request, path, contentType string) error {
	stat, err := os.Stat(path)
	if err != nil {
		http.Error(w, "Audio file unavailable", http.StatusNotFound)
		return fmt.Errorf("stat audio file: %w", err)
	}
	fileSize := stat.Size()
	modTime := stat.ModTime().Unix()

	file, err := os.Open(path)
	if err != nil {
		http.Error(w, "Audio file unavailable", http.StatusNotFound)
		return fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	w.Header().Set("Cache-Control", "public, max-age=3600")
	etag := fmt.Sprintf(`"%d-%d"`, modTime, fileSize)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		ps.serveRange(w, file, fileSize, rangeHeader)
		return nil
	}

	w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))
	bufferedReader := bufio.NewReaderSize(file, streamBufferSize)
	buffer := make([]byte, streamBufferSize)
	if _, err := io.CopyBuffer(w, bufferedReader, buffer); err != nil {
		return fmt.Errorf("stream audio file: %w", err)
	}
	return nil
}

// serveRange implements simple single-range byte serving for seeking.
func (ps *PracticeServer) serveRange(w http.ResponseWriter, file *os.File, fileSize int64, rangeHeader string) {
	ranges := strings.TrimPrefix(rangeHeader, "bytes=")
	rangeParts := strings.Split(ranges, "-")

	start, err := strconv.ParseInt(rangeParts[0], 10, 64)
	if err != nil {
		start = 0
	}

	var end int64
	if len(rangeParts) > 1 && rangeParts[1] != "" {
		end, err = strconv.ParseInt(rangeParts[1], 10, 64)
		if err != nil {
			end = fileSize - 1
		}
	} else {
		end = fileSize - 1
	}

	if start < 0 || end >= fileSize || start > end {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	contentLength := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", contentLength))
	w.WriteHeader(http.StatusPartialContent)

	file.Seek(start, io.SeekStart)
	io.CopyN(w, file, contentLength)
}

func contentTypeForAudio(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
