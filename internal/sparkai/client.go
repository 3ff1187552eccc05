// Package sparkai talks to the external text endpoints: support chat,
// free chat, priority classification, translation and upgrade paths.
package sparkai

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

	"github.com/spec-kit/spark-support/internal/config"
	"github.com/spec-kit/spark-support/internal/jsonvalue"
	"github.com/spec-kit/spark-support/internal/observability"
	apperrors "github.com/spec-kit/spark-support/pkg/util/errorutil"
)

// Endpoint names used in errors, logs and metrics.
const (
	EndpointChat        = "chat"
	EndpointHomeChat    = "home-chat"
	EndpointPriority    = "priority"
	EndpointTranslate   = "translate"
	EndpointUpgradePath = "upgrade-path"
)

// maxErrorBody caps how much of a failed response is kept in errors.
const maxErrorBody = 2048

// maxResponseBody caps how much of any response is read.
const maxResponseBody = 4 << 20

type endpoint struct {
	name   string
	url    string
	envKey string
}

// Client posts JSON to the configured endpoints. A Client is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *observability.Metrics

	chat        endpoint
	homeChat    endpoint
	priority    endpoint
	translate   endpoint
	upgradePath endpoint
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records one upstream counter per call.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient builds a client for the configured endpoint addresses.
func NewClient(cfg config.EndpointsConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout()},
		logger:      logger,
		chat:        endpoint{EndpointChat, cfg.Chat, config.EnvChatEndpoint},
		homeChat:    endpoint{EndpointHomeChat, cfg.HomeChat, config.EnvHomeChatEndpoint},
		priority:    endpoint{EndpointPriority, cfg.Priority, config.EnvPriorityEndpoint},
		translate:   endpoint{EndpointTranslate, cfg.Translate, config.EnvTranslateEndpoint},
		upgradePath: endpoint{EndpointUpgradePath, cfg.UpgradePath, config.EnvUpgradePathEndpoint},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports which endpoints have an address.
func (c *Client) Configured() map[string]bool {
	out := make(map[string]bool, 5)
	for _, ep := range []endpoint{c.chat, c.homeChat, c.priority, c.translate, c.upgradePath} {
		out[ep.name] = ep.url != ""
	}
	return out
}

// postJSON sends body and returns the decoded answer as an ordered JSON
// value. A 2xx body that is not JSON is returned as a plain string.
func (c *Client) postJSON(ctx context.Context, ep endpoint, body any) (value any, err error) {
	if ep.url == "" {
		return nil, apperrors.NewConfigurationMissing(ep.name, ep.envKey)
	}

	start := time.Now()
	defer func() {
		outcome := "OK"
		if err != nil {
			outcome = apperrors.ToDomainError(err).Code
		}
		c.metrics.RecordUpstream(ep.name, outcome, time.Since(start))
	}()

	encoded, err := marshal(body)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("encode %s request: %w", ep.name, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(encoded))
	if err != nil {
		return nil, apperrors.NewUpstreamError(ep.name, 0, "", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			c.logger.Debug("endpoint call cancelled", zap.String("endpoint", ep.name))
			return nil, apperrors.NewCancelled(err)
		}
		c.logger.Warn("endpoint call failed", zap.String("endpoint", ep.name), zap.Error(err))
		return nil, apperrors.NewUpstreamError(ep.name, 0, "", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, apperrors.NewCancelled(err)
		}
		return nil, apperrors.NewUpstreamError(ep.name, 0, "", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("endpoint returned error status",
			zap.String("endpoint", ep.name),
			zap.Int("status", resp.StatusCode),
		)
		return nil, apperrors.NewUpstreamError(ep.name, resp.StatusCode, truncate(string(raw), maxErrorBody), nil)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	decoded, err := jsonvalue.Decode(raw)
	if err != nil {
		c.logger.Debug("endpoint answered with non-JSON body", zap.String("endpoint", ep.name))
		return string(raw), nil
	}
	return decoded, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
