// Package audio downloads call recordings and normalizes them for the
// transcription backend.
package audio

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// DefaultExtension is used when neither content type nor URL gives one.
const DefaultExtension = ".mp3"

// contentTypeExtensions maps response content types to file extensions.
var contentTypeExtensions = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/wave":  ".wav",
	"audio/mp4":   ".m4a",
	"audio/m4a":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/ogg":   ".ogg",
	"audio/flac":  ".flac",
}

// FetcherConfig holds recording download configuration.
type FetcherConfig struct {
	// TempDir is where downloaded recordings land; empty means os.TempDir.
	TempDir string

	// MaxBytes is the download size budget.
	MaxBytes int64

	// AuthHeaders are sent with every recording request.
	AuthHeaders map[string]string
}

// Fetcher streams call recordings to local temp files.
type Fetcher struct {
	client *httpclient.Client
	config FetcherConfig
	logger ectologger.Logger
}

// NewFetcher creates a new recording fetcher.
func NewFetcher(client *httpclient.Client, config FetcherConfig, logger ectologger.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		config: config,
		logger: logger,
	}
}

// Fetch downloads a recording to a temp file and returns its path. The
// caller owns the returned file and must remove it; on error no file is
// left behind.
func (f *Fetcher) Fetch(ctx context.Context, recordingURL string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "audio.Fetcher.Fetch")
	defer span.End()

	tmp, err := os.CreateTemp(f.config.TempDir, "recording-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: creating temp file: %v", httpclient.ErrDownloadFailed, err)
	}

	result, err := f.client.DownloadToFile(ctx, recordingURL, f.config.AuthHeaders, tmp, f.config.MaxBytes)
	closeErr := tmp.Close()
	if err != nil {
		_ = os.Remove(tmp.Name())
		f.logger.WithContext(ctx).WithError(err).Error("failed to download recording")
		return "", err
	}
	if closeErr != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: closing temp file: %v", httpclient.ErrDownloadFailed, closeErr)
	}

	finalPath := strings.TrimSuffix(tmp.Name(), ".tmp") + extensionFor(result.ContentType, recordingURL)
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: renaming temp file: %v", httpclient.ErrDownloadFailed, err)
	}

	metrics.RecordingDownloadBytes.Observe(float64(result.Bytes))
	f.logger.WithContext(ctx).WithFields(map[string]any{
		"bytes":        result.Bytes,
		"content_type": result.ContentType,
		"path":         finalPath,
	}).Info("downloaded call recording")

	return finalPath, nil
}

// extensionFor picks a file extension from the content type, falling back
// to the URL's own suffix and then the default.
func extensionFor(contentType, recordingURL string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if ext, ok := contentTypeExtensions[ct]; ok {
		return ext
	}

	if u, err := url.Parse(recordingURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && ext != "." {
			return ext
		}
	}

	return DefaultExtension
}
