package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ErrConversionFailed is returned when re-encoding a recording fails
var ErrConversionFailed = errors.New("audio conversion failed")

// acceptedExtensions are formats the transcription backend takes as-is.
var acceptedExtensions = map[string]bool{
	"mp3":  true,
	"mp4":  true,
	"mpeg": true,
	"mpga": true,
	"m4a":  true,
	"wav":  true,
	"webm": true,
}

// NormalizerConfig holds audio conversion configuration.
type NormalizerConfig struct {
	// FFmpegPath is the ffmpeg binary; defaults to "ffmpeg" on PATH.
	FFmpegPath string

	// Bitrate for re-encoded output.
	Bitrate string
}

// Normalizer converts recordings into a transcription-compatible encoding.
type Normalizer struct {
	config NormalizerConfig
	logger ectologger.Logger
}

// NewNormalizer creates a new audio normalizer.
func NewNormalizer(config NormalizerConfig, logger ectologger.Logger) *Normalizer {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.Bitrate == "" {
		config.Bitrate = "64k"
	}
	return &Normalizer{
		config: config,
		logger: logger,
	}
}

// Normalize returns a path to a transcription-compatible audio file. Files
// already in an accepted format are returned unchanged. Otherwise the file
// is re-encoded to mono mp3 and the original is removed; on failure the
// original stays and any partial output is cleaned up.
func (n *Normalizer) Normalize(ctx context.Context, inputPath string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "audio.Normalizer.Normalize")
	defer span.End()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(inputPath), "."))
	if acceptedExtensions[ext] {
		return inputPath, nil
	}

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".mp3"

	cmd := exec.CommandContext(ctx, n.config.FFmpegPath,
		"-y",
		"-i", inputPath,
		"-ac", "1",
		"-b:a", n.config.Bitrate,
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outputPath)
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"input":  inputPath,
			"stderr": truncate(stderr.String(), 512),
		}).Error("ffmpeg conversion failed")
		return "", fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	if outputPath != inputPath {
		_ = os.Remove(inputPath)
	}

	n.logger.WithContext(ctx).WithFields(map[string]any{
		"input":  inputPath,
		"output": outputPath,
	}).Info("converted recording for transcription")

	return outputPath, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
