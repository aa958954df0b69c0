// Package main is an example completion hook. It appends every event it
// receives to a progress log and, on macOS, shows a notification when an
// exercise is finished.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/hook"
)

// logFileEnv overrides the log location. The default is progress.log in
// the hook directory, which is the working directory hooks run in.
const logFileEnv = "PROGRESS_LOG"

func main() {
	var ev hook.Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeResponse(hook.Response{Error: fmt.Sprintf("failed to decode event: %v", err)})
		return
	}

	path := os.Getenv(logFileEnv)
	if path == "" {
		path = "progress.log"
	}
	if err := appendLine(path, ev); err != nil {
		writeResponse(hook.Response{Error: fmt.Sprintf("failed to write log: %v", err)})
		return
	}

	if ev.Type == exercise.EventExerciseCompleted && runtime.GOOS == "darwin" {
		msg := fmt.Sprintf("%s complete: %d cycles", ev.ExerciseName, ev.TotalCycles)
		if err := notify(msg); err != nil {
			writeResponse(hook.Response{Error: fmt.Sprintf("notification failed: %v", err)})
			return
		}
	}

	data, _ := json.Marshal(map[string]string{"log": path})
	writeResponse(hook.Response{Success: true, Data: data})
}

// appendLine writes ev as one JSON line.
func appendLine(path string, ev hook.Event) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(ev); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// notify shows a macOS notification through AppleScript.
func notify(msg string) error {
	script := fmt.Sprintf(`display notification %q with title "Handcoach"`, msg)
	output, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(resp hook.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
