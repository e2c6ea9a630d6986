// Package transcoder implements Transcoder (spec §4.G): normalizing
// uploaded audio to the format SpeechClient accepts and measuring its
// duration, by shelling out to ffmpeg/ffprobe the way the teacher
// repo's transcription pipeline shelled out to WhisperX.
package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"voicecore/internal/apperr"
)

const defaultTimeout = 30 * time.Second

type Service struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
}

func New(ffmpegPath, ffprobePath string) *Service {
	return &Service{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, timeout: defaultTimeout}
}

// Normalize transcodes the file at srcPath into a 16kHz mono WAV at
// dstPath, the format SpeechClient's upstream API expects. Unsupported
// or unreadable input surfaces as apperr.UnsupportedFormat; a hung
// ffmpeg process surfaces as apperr.Timeout.
func (s *Service) Normalize(ctx context.Context, srcPath, dstPath string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.ffmpegPath,
		"-y",
		"-i", srcPath,
		"-ar", "16000",
		"-ac", "1",
		"-f", "wav",
		dstPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return apperr.New(apperr.Timeout, "ffmpeg normalization timed out", err)
		}
		return apperr.New(apperr.UnsupportedFormat, "ffmpeg failed to normalize audio", fmt.Errorf("%w: %s", err, stderr.String()))
	}
	return nil
}

// DurationSeconds reports the duration of the audio at path using
// ffprobe. If ffprobe itself is unavailable, errors out, or prints a
// duration that does not parse, it falls back to a byte-size heuristic
// (roughly 16KB/s for compressed voice audio) clamped to [5, 30]
// seconds, so a transient ffprobe failure doesn't block ingestion
// outright. An ffprobe run that hits the timeout returns apperr.Timeout
// instead of falling back.
func (s *Service) DurationSeconds(ctx context.Context, path string, sizeBytes int64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return 0, apperr.New(apperr.Timeout, "ffprobe timed out", err)
		}
		return fallbackDuration(sizeBytes), nil
	}

	durationStr := strings.TrimSpace(stdout.String())
	d, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return fallbackDuration(sizeBytes), nil
	}
	return d, nil
}

func fallbackDuration(sizeBytes int64) float64 {
	const bytesPerSecond = 16000
	d := float64(sizeBytes) / bytesPerSecond
	if d < 5 {
		return 5
	}
	if d > 30 {
		return 30
	}
	return d
}
