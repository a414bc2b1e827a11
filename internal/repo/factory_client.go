package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/factoryos/console-sync/internal/metrics"
	"github.com/factoryos/console-sync/internal/utils"
)

// Endpoint names used for logs, metrics and latency tracking.
const (
	EndpointFilters    = "filters"
	EndpointChat       = "chat"
	EndpointAlerts     = "alerts"
	EndpointResolve    = "resolve"
	EndpointSimulation = "simulation"
	EndpointWorkOrder  = "workorder"
	EndpointIngest     = "ingest"
	EndpointMachine    = "machine"
	EndpointTechnician = "technician"
	EndpointTask       = "task"
	EndpointStats      = "stats"
	EndpointGraph      = "graph"
)

const requestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of a failed response is read for its detail message.
const maxErrorBody = 4 << 10

// FactoryClient executes request/response cycles against the FactoryOS backend.
type FactoryClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	latencies  *utils.LatencyTracker
}

// NewFactoryClient constructs a client for baseURL. A zero timeout leaves requests bounded
// only by their context.
func NewFactoryClient(baseURL string, timeout time.Duration, logger *slog.Logger) *FactoryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactoryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		latencies:  utils.NewLatencyTracker(256),
	}
}

// Latencies exposes the per-endpoint latency samples.
func (c *FactoryClient) Latencies() *utils.LatencyTracker {
	return c.latencies
}

// multipartBody is a form upload with a single file part.
type multipartBody struct {
	fields    [][2]string
	fileField string
	fileName  string
	content   []byte
}

func (m multipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(m.fileField, m.fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(m.content); err != nil {
		return nil, "", err
	}
	for _, kv := range m.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Do performs one call. body may be nil, a JSON-marshalable value or a multipartBody;
// out, when non-nil, receives the decoded 2xx payload.
func (c *FactoryClient) Do(ctx context.Context, endpoint, method, p string, body any, out any) error {
	if c == nil {
		return errors.New("factory client not initialised")
	}
	start := time.Now()
	err := c.do(ctx, endpoint, method, p, body, out)
	duration := time.Since(start)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveRequest(endpoint, duration, outcome)
	c.latencies.Observe(endpoint, duration)
	return err
}

func (c *FactoryClient) do(ctx context.Context, endpoint, method, p string, body any, out any) error {
	fail := func(kind ErrorKind, err error) error {
		return &RequestError{Kind: kind, Endpoint: endpoint, Method: method, Path: p, Err: err}
	}
	if c.baseURL == "" {
		return fail(KindTransport, errors.New("backend base URL not configured"))
	}

	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case multipartBody:
		r, ct, err := b.encode()
		if err != nil {
			return fail(KindTransport, fmt.Errorf("encode multipart body: %w", err))
		}
		reader, contentType = r, ct
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fail(KindTransport, fmt.Errorf("marshal payload: %w", err))
		}
		reader, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolvePath(p), reader)
	if err != nil {
		return fail(KindTransport, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	c.logger.Debug("backend request", slog.String("endpoint", endpoint), slog.String("method", method), slog.String("path", p), slog.String("request_id", requestID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(KindTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RequestError{
			Kind:       KindStatus,
			Endpoint:   endpoint,
			Method:     method,
			Path:       p,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(data),
			Err:        fmt.Errorf("backend returned %s", resp.Status),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(KindDecode, err)
	}
	return nil
}

func (c *FactoryClient) resolvePath(p string) string {
	rel := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + rel
	}
	// Segments are appended verbatim; dot segments in ids are never cleaned away.
	u.RawPath = strings.TrimRight(u.EscapedPath(), "/") + rel
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return c.baseURL + rel
	}
	u.Path = unescaped
	return u.String()
}

// errorDetail extracts a readable message from an error body such as {"detail": "..."}.
func errorDetail(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
		return ""
	}
	text := string(data)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func decodeFailure(endpoint, method, p string, err error) error {
	return &RequestError{Kind: KindDecode, Endpoint: endpoint, Method: method, Path: p, Err: err}
}
