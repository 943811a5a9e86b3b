package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

// Synthesizer produces audio files via the OpenAI-compatible speech API and
// stores them under the configured media directory. It implements
// domain.Synthesizer: the returned reference is the file path relative to the
// media directory.
type Synthesizer struct {
	client   *openai.Client
	model    openai.SpeechModel
	voice    openai.SpeechVoice
	mediaDir string
	logger   *zap.Logger
}

// SynthConfig holds the speech provider settings.
type SynthConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Voice    string
	MediaDir string
	Logger   *zap.Logger
}

// NewSynthesizer creates an OpenAI-compatible speech provider.
func NewSynthesizer(cfg *SynthConfig) (*Synthesizer, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	if err := os.MkdirAll(filepath.Join(cfg.MediaDir, "synth"), 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	return &Synthesizer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    openai.SpeechModel(cfg.Model),
		voice:    openai.SpeechVoice(cfg.Voice),
		mediaDir: cfg.MediaDir,
		logger:   cfg.Logger,
	}, nil
}

// Synthesize renders text to speech and returns the audio reference. Files are
// content-addressed, so repeated text reuses the existing file.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	ref := filepath.Join("synth", audioName(text))
	path := filepath.Join(s.mediaDir, ref)

	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Voice:          s.voice,
		Input:          text,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return "", fmt.Errorf("speech request: %w", domain.ErrGeneratorFailure)
	}
	defer resp.Close()

	// Write through a temp file so a partial download never becomes a ref.
	tmp, err := os.CreateTemp(filepath.Dir(path), "synth-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(tmp, resp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close audio file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store audio file: %w", err)
	}

	s.logger.Debug("synthesized audio", zap.String("ref", ref), zap.Int("text_len", len(text)))
	return ref, nil
}

func audioName(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8]) + ".mp3"
}
