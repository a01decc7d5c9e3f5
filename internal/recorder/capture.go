package recorder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// ExecDevice captures the microphone by shelling out to an external recorder
// binary (ffmpeg or arecord) that writes a WAV file until interrupted. This
// keeps platform audio stacks out of the binary; any tool that can write WAV
// to a path will do.
type ExecDevice struct {
	Binary     string // recorder executable; resolved via PATH
	InputArgs  []string
	SampleRate int
	Channels   int
	TempDir    string
}

// NewFFmpegDevice builds an ExecDevice using ffmpeg's default input device
// for the current platform.
func NewFFmpegDevice(sampleRate, channels int, tempDir string) *ExecDevice {
	return &ExecDevice{
		Binary:     "ffmpeg",
		InputArgs:  []string{"-f", "pulse", "-i", "default"},
		SampleRate: sampleRate,
		Channels:   channels,
		TempDir:    tempDir,
	}
}

// Begin starts the recorder process. A missing binary or a device the OS
// refuses to open surfaces as ErrPermissionDenied so the caller can report
// it without corrupting playback state.
func (d *ExecDevice) Begin() (Session, error) {
	bin, err := exec.LookPath(d.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrPermissionDenied, d.Binary)
	}

	dir := d.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	outPath := filepath.Join(dir, "capture-"+uuid.New().String()+".wav")

	args := append([]string{}, d.InputArgs...)
	args = append(args,
		"-ar", strconv.Itoa(d.SampleRate),
		"-ac", strconv.Itoa(d.Channels),
		"-y", outPath,
	)

	cmd := exec.Command(bin, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	return &execSession{cmd: cmd, outPath: outPath}, nil
}

type execSession struct {
	cmd     *exec.Cmd
	outPath string
}

// Stop interrupts the recorder so it finalizes the WAV header, then reads
// the finished file back and removes it.
func (s *execSession) Stop() ([]byte, error) {
	if s.cmd.Process != nil {
		s.cmd.Process.Signal(syscall.SIGINT)
	}
	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case <-done:
		// ffmpeg exits non-zero on SIGINT; the output file is still valid.
	case <-time.After(5 * time.Second):
		s.cmd.Process.Kill()
		<-done
	}

	defer os.Remove(s.outPath)
	data, err := os.ReadFile(s.outPath)
	if err != nil {
		return nil, fmt.Errorf("read captured audio: %w", err)
	}
	return data, nil
}

// StaticDevice replays fixed WAV bytes as the "captured" audio. Used in
// tests and for rehearsing the pipeline without a microphone.
type StaticDevice struct {
	Data []byte
	// Deny simulates the user refusing microphone access.
	Deny bool
}

func (d *StaticDevice) Begin() (Session, error) {
	if d.Deny {
		return nil, ErrPermissionDenied
	}
	return &staticSession{data: d.Data}, nil
}

type staticSession struct {
	data []byte
}

func (s *staticSession) Stop() ([]byte, error) {
	return s.data, nil
}
