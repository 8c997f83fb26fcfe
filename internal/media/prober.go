package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DurationProber reads playback duration from a video container.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// FFProbe shells out to ffprobe.
type FFProbe struct {
	Binary string
}

// NewFFProbe returns a prober using the given binary, defaulting to "ffprobe" on PATH.
func NewFFProbe(binary string) *FFProbe {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	return &FFProbe{Binary: binary}
}

func (p *FFProbe) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, p.Binary, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return 0, fmt.Errorf("ffprobe: %s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
		}
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeOutput(string(output))
}

func parseProbeOutput(output string) (time.Duration, error) {
	durationStr := strings.TrimSpace(output)
	if durationStr == "" || durationStr == "N/A" {
		return 0, errors.New("empty duration")
	}
	seconds, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", durationStr, err)
	}
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("invalid duration %q", durationStr)
	}
	return time.Duration(math.Round(seconds * float64(time.Second))), nil
}
