package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ManagerConfig struct {
	// Timeout in seconds for one provider call.
	Timeout int
	// MaxInputChars truncates overlong input before it reaches the
	// remote API. Zero disables truncation.
	MaxInputChars int
	// EmbeddingDim is the expected vector length; a response of any
	// other length is treated as malformed.
	EmbeddingDim int
}

// Manager fronts the configured generator and embedder with timeouts,
// input truncation, and response validation. Every provider failure
// comes back wrapped in ErrUnavailable so callers never need to know
// which provider is behind it.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{generator: generator, embedder: embedder, cfg: cfg}
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("%w: embedder not configured", ErrUnavailable)
	}
	text = m.truncate(strings.TrimSpace(text))
	if text == "" {
		return nil, fmt.Errorf("empty text for embedding")
	}
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	vec, err := m.embedder.Embed(ctx, text, taskType)
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	if m.cfg.EmbeddingDim > 0 && len(vec) != m.cfg.EmbeddingDim {
		return nil, fmt.Errorf("%w: embedding has %d values, want %d", ErrUnavailable, len(vec), m.cfg.EmbeddingDim)
	}
	return vec, nil
}

func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	if m.generator == nil {
		return "", fmt.Errorf("%w: generator not configured", ErrUnavailable)
	}
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	resp, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		return "", wrapUnavailable(err)
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty ai response", ErrUnavailable)
	}
	return text, nil
}

func (m *Manager) ModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) EmbeddingDim() int {
	return m.cfg.EmbeddingDim
}

func (m *Manager) MaxInputChars() int {
	return m.cfg.MaxInputChars
}

func (m *Manager) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
	}
	return ctx, func() {}
}

func (m *Manager) truncate(text string) string {
	if m.cfg.MaxInputChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= m.cfg.MaxInputChars {
		return text
	}
	return string(runes[:m.cfg.MaxInputChars])
}

func wrapUnavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
