package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// FFprobe reads durations of formats without a native decoder by shelling out to ffprobe.
type FFprobe struct {
	path string
}

// NewFFprobe returns a prober for the given binary, or nil when it is not installed.
func NewFFprobe(path string) *FFprobe {
	if path == "" {
		return nil
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil
	}
	return &FFprobe{path: resolved}
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the container duration reported by ffprobe.
func (p *FFprobe) Duration(ctx context.Context, inputFile string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, p.path, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w (stderr: %s)", inputFile, err, bytes.TrimSpace(stderr.Bytes()))
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", inputFile, err)
	}
	return parseProbeDuration(probeData.Format.Duration)
}

func parseProbeDuration(s string) (time.Duration, error) {
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("duration not found in ffprobe output")
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", s, err)
	}
	return time.Duration(secs * float64(time.Second)).Round(time.Microsecond), nil
}
