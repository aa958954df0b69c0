package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Executor runs a hook process with a timeout.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor that kills hooks running longer than
// timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute writes ev to the hook's stdin and parses its stdout as a Response.
// The hook runs in its own directory.
func (e *Executor) Execute(ctx context.Context, h *Hook, ev *Event) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.Executable)
	cmd.Dir = h.Path
	// Children that inherit stdout would otherwise keep Run blocked past
	// the deadline.
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("hook %s timed out after %s", h.Manifest.Name, e.timeout)
	}
	if err != nil {
		if s := stderr.String(); s != "" {
			return nil, fmt.Errorf("hook %s failed: %w, stderr: %s", h.Manifest.Name, err, s)
		}
		return nil, fmt.Errorf("hook %s failed: %w", h.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse hook response: %w, stdout: %s", err, stdout.String())
	}
	return &resp, nil
}
