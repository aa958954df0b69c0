package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const helperScript = "hand_landmarks.py"

// ErrHelperNotFound is returned when the MediaPipe helper script is missing.
var ErrHelperNotFound = errors.New(helperScript + " not found")

// MediaPipeDetector implements Detector by piping JPEG frames to a Python
// MediaPipe helper. Frames are sent as a 4-byte big-endian length followed by
// the JPEG bytes; the helper answers with one JSON line per frame.
type MediaPipeDetector struct {
	config Config
	script string
	python string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	idleTimer *time.Timer
}

// NewMediaPipeDetector locates the helper script and interpreter.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := firstExisting(searchPaths(helperScript, "scripts")...)
	if script == "" {
		return nil, ErrHelperNotFound
	}

	python := firstExisting(searchPaths("python", "venv/bin")...)
	if python == "" {
		python = "python3"
	}

	if config.MaxHands <= 0 {
		config.MaxHands = 1
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
		python: python,
	}, nil
}

// Detect encodes the frame and returns the landmarks reported by the helper.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := d.writeFrame(buf.GetBytes()); err != nil {
		// A broken pipe leaves the helper unusable; restart on next call.
		d.shutdown()
		return nil, err
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("helper: %s", response.Error)
	}

	hands := make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		lm, ok := h.toHandLandmarks()
		if !ok {
			continue
		}
		hands = append(hands, lm)
		if len(hands) == d.config.MaxHands {
			break
		}
	}

	d.resetIdleTimer()
	return hands, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) writeFrame(data []byte) error {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))

	if _, err := d.stdin.Write(length[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.cmd != nil {
		return nil
	}

	cmd := exec.Command(d.python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start landmark helper: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if d.cmd == nil {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	d.stdin.Close()
	err := d.cmd.Wait()

	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// searchPaths lists candidate locations for name under dir, relative to the
// working directory, the executable and ~/.handcoach.
func searchPaths(name, dir string) []string {
	candidates := []string{
		filepath.Join(dir, name),
		filepath.Join("..", dir, name),
		filepath.Join("..", "..", dir, name),
	}
	if execPath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(execPath), dir, name))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".handcoach", dir, name))
	}
	return candidates
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// jsonHand represents the JSON structure from the Python helper.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toHandLandmarks() (HandLandmarks, bool) {
	if len(h.Points) != NumLandmarks {
		return HandLandmarks{}, false
	}
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	copy(lm.Points[:], h.Points)
	return lm, true
}
