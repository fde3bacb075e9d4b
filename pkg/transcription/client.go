// Package transcription wraps the speech-to-text backend.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ErrTranscriptionFailed is returned on any backend error
var ErrTranscriptionFailed = errors.New("transcription failed")

// Config holds transcription backend configuration.
type Config struct {
	// Model is the speech-to-text model, e.g. whisper-1.
	Model string

	// Language is an optional ISO-639-1 language hint.
	Language string

	// Prompt optionally primes the model with domain vocabulary.
	Prompt string
}

// Client invokes the speech-to-text backend.
type Client struct {
	client openai.Client
	config Config
	logger ectologger.Logger
}

// NewClient creates a new transcription client.
func NewClient(client openai.Client, config Config, logger ectologger.Logger) *Client {
	return &Client{
		client: client,
		config: config,
		logger: logger,
	}
}

// verboseTranscription is the verbose_json response shape; the SDK's typed
// response only carries the text, so the body is decoded directly.
type verboseTranscription struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe sends a local audio file to the backend and returns the text
// with detected language and duration. The caller owns the file and must
// remove it afterward regardless of outcome.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*models.TranscriptionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "transcription.Client.Transcribe")
	defer span.End()

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening audio file: %v", ErrTranscriptionFailed, err)
	}
	defer file.Close()

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          openai.AudioModel(c.config.Model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if c.config.Language != "" {
		params.Language = openai.String(c.config.Language)
	}
	if c.config.Prompt != "" {
		params.Prompt = openai.String(c.config.Prompt)
	}

	var verbose verboseTranscription
	_, err = c.client.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&verbose))
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("transcription backend call failed")
		return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	if verbose.Text == "" {
		return nil, fmt.Errorf("%w: backend returned empty transcript", ErrTranscriptionFailed)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"language":         verbose.Language,
		"duration_seconds": verbose.Duration,
		"characters":       len(verbose.Text),
	}).Info("transcribed call recording")

	return &models.TranscriptionResult{
		Text:     verbose.Text,
		Language: verbose.Language,
		Duration: verbose.Duration,
	}, nil
}
