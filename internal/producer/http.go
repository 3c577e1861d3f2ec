// Package producer talks to the remote translation service that fills the
// translation cache.
package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/ull/internal/projection"
)

const (
	defaultTimeout = 20 * time.Second
	maxErrorBody   = 512
)

// ErrNoEndpoint is returned by New when Config.Endpoint is empty.
var ErrNoEndpoint = errors.New("producer endpoint not configured")

// Config holds connection settings for the translation service.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// HTTPProducer implements projection.Producer over HTTP.
type HTTPProducer struct {
	config Config
	client *http.Client
	logger *zap.Logger
}

// New creates an HTTPProducer.
func New(cfg Config, logger *zap.Logger) (*HTTPProducer, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &HTTPProducer{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type translateRequest struct {
	Table        string `json:"table,omitempty"`
	RowID        string `json:"row_id,omitempty"`
	MeaningID    string `json:"meaning_id,omitempty"`
	Field        string `json:"field"`
	Text         string `json:"text"`
	SourceLocale string `json:"source_locale,omitempty"`
	TargetLocale string `json:"target_locale"`
}

type translateResponse struct {
	Text string `json:"text"`
}

// Translate asks the service to render req.Text into the key's locale.
func (p *HTTPProducer) Translate(ctx context.Context, req projection.Request) (string, error) {
	body, err := json.Marshal(translateRequest{
		Table:        req.Key.Table,
		RowID:        req.Key.RowID,
		MeaningID:    req.Key.MeaningID,
		Field:        req.Key.Field,
		Text:         req.Text,
		SourceLocale: req.SourceLocale,
		TargetLocale: req.Key.Locale,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.Endpoint+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("translate API error %d: %s", resp.StatusCode, string(respBody))
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	p.logger.Debug("translation produced",
		zap.String("key", req.Key.String()),
		zap.Int("chars", len(out.Text)))
	return out.Text, nil
}

var _ projection.Producer = (*HTTPProducer)(nil)
