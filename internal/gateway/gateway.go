package gateway

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

	"github.com/ppiankov/clientscore/internal/model"
	"github.com/ppiankov/clientscore/internal/util"
)

// ErrUnavailable matches every failure to obtain a usable answer from the scoring service
var ErrUnavailable = errors.New("scoring service unavailable")

// Scorer is the external scoring service
type Scorer interface {
	// Predict scores one feature set
	Predict(ctx context.Context, features *model.FeatureSet) (*model.PredictionResult, error)

	// Explain returns the service's explanation payload for one feature set
	Explain(ctx context.Context, features *model.FeatureSet) (model.Explanation, error)
}

// UnavailableError carries the upstream cause of a gateway failure.
// errors.Is(err, ErrUnavailable) holds for every UnavailableError.
type UnavailableError struct {
	Op         string // predict or explain
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: scoring service unavailable (HTTP %d): %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: scoring service unavailable: %v", e.Op, e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Config holds scoring service client configuration
type Config struct {
	// PredictURL receives prediction requests
	PredictURL string

	// ExplainURL receives explanation requests (optional)
	ExplainURL string

	// WrapFeatures sends {"features": {...}} instead of the bare mapping
	WrapFeatures bool

	// Timeout bounds each request, including reading the response
	Timeout time.Duration

	UserAgent    string
	MaxBodyBytes int64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts model.GatewayConfig to gateway.Config
func ConfigFromModel(c model.GatewayConfig) Config {
	return Config{
		PredictURL:   c.PredictURL,
		ExplainURL:   c.ExplainURL,
		WrapFeatures: c.WrapFeatures,
		Timeout:      c.Timeout,
		UserAgent:    c.UserAgent,
		MaxBodyBytes: c.MaxBodyBytes,
		HTTPProxy:    c.HTTPProxy,
		HTTPSProxy:   c.HTTPSProxy,
		NoProxy:      c.NoProxy,
	}
}

// HTTPGateway calls the scoring service over HTTP with one request per call
// and no retries
type HTTPGateway struct {
	httpClient *http.Client
	config     Config
}

// NewHTTPGateway creates a gateway. A prediction URL is required.
func NewHTTPGateway(config Config) (*HTTPGateway, error) {
	if config.PredictURL == "" {
		return nil, fmt.Errorf("scoring service predict URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}

	return &HTTPGateway{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
		config: config,
	}, nil
}

// PredictURL returns the configured prediction endpoint
func (g *HTTPGateway) PredictURL() string {
	return g.config.PredictURL
}

// Predict sends the features to the prediction endpoint and normalizes the answer
func (g *HTTPGateway) Predict(ctx context.Context, features *model.FeatureSet) (*model.PredictionResult, error) {
	body, err := g.call(ctx, "predict", g.config.PredictURL, features)
	if err != nil {
		return nil, err
	}
	return Normalize(body), nil
}

// Explain sends the features to the explanation endpoint and returns the body as is
func (g *HTTPGateway) Explain(ctx context.Context, features *model.FeatureSet) (model.Explanation, error) {
	if g.config.ExplainURL == "" {
		return nil, &UnavailableError{Op: "explain", Err: errors.New("explain endpoint not configured")}
	}
	body, err := g.call(ctx, "explain", g.config.ExplainURL, features)
	if err != nil {
		return nil, err
	}
	return model.Explanation(body), nil
}

// call performs one POST and returns the decoded JSON object
func (g *HTTPGateway) call(ctx context.Context, op, url string, features *model.FeatureSet) (map[string]any, error) {
	unavailable := func(status int, err error) error {
		return &UnavailableError{Op: op, URL: url, StatusCode: status, Err: err}
	}

	if features == nil {
		features = model.NewAttributes(0)
	}
	var payload any = features
	if g.config.WrapFeatures {
		payload = map[string]any{"features": features}
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, unavailable(0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.config.UserAgent != "" {
		req.Header.Set("User-Agent", g.config.UserAgent)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(0, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, g.config.MaxBodyBytes+1))
	if err != nil {
		return nil, unavailable(resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, unavailable(resp.StatusCode, fmt.Errorf("unexpected status %s: %s", resp.Status, snippet(respBody)))
	}
	if int64(len(respBody)) > g.config.MaxBodyBytes {
		return nil, unavailable(resp.StatusCode, fmt.Errorf("response exceeds %d bytes", g.config.MaxBodyBytes))
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, unavailable(resp.StatusCode, errors.New("empty response body"))
	}

	body, err := decodeObject(respBody)
	if err != nil {
		return nil, unavailable(resp.StatusCode, err)
	}
	return body, nil
}

// decodeObject decodes a single JSON object, keeping numbers as json.Number
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("malformed response: trailing data after JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("malformed response: expected a JSON object, got %s", jsonKind(v))
	}
	return obj, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}
