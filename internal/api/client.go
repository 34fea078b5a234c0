package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultTimeout = 15 * time.Second

// Config wires a Client. Token is read on every outgoing request so the
// client always sends the current session token; OnUnauthorized is the single
// place an expired/invalid token is reported from (the client itself never
// touches session state or navigation).
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	Token          func() string
	OnUnauthorized func()
	Logger         zerolog.Logger

	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
}

type Client struct {
	base           string
	http           *http.Client
	token          func() string
	onUnauthorized func()
	log            zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api: missing base URL")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("api: bad base URL %q: %w", cfg.BaseURL, err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		base:           base,
		http:           hc,
		token:          cfg.Token,
		onUnauthorized: cfg.OnUnauthorized,
		log:            cfg.Logger,
	}, nil
}

// reqOpts tweaks error classification per operation. classify lets login map
// 401 to InvalidCredentials instead of the cross-cutting Unauthorized.
type reqOpts struct {
	classify    func(status int) (Kind, bool)
	contentType string
}

func defaultKind(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	default:
		return KindServer
	}
}

// errorDetail is the FastAPI-style error envelope: {"detail": "..."} for
// hand-raised errors, {"message": "..."} for app-level ones.
type errorDetail struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func extractDetail(body []byte) string {
	var ed errorDetail
	if err := json.Unmarshal(body, &ed); err != nil {
		return ""
	}
	if len(ed.Detail) > 0 {
		var s string
		if json.Unmarshal(ed.Detail, &s) == nil {
			return s
		}
	}
	return ed.Message
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body io.Reader, o reqOpts) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, 0, &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if o.contentType != "" {
		req.Header.Set("Content-Type", o.contentType)
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindNetwork
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			kind = KindTimeout
		}
		c.log.Debug().Str("op", op).Str("request_id", reqID).Err(err).Msg("api request failed")
		return nil, 0, &Error{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &Error{Kind: KindNetwork, Op: op, Err: err}
	}

	c.log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("api request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, resp.StatusCode, nil
	}

	kind := defaultKind(resp.StatusCode)
	if o.classify != nil {
		if k, ok := o.classify(resp.StatusCode); ok {
			kind = k
		}
	}
	if kind == KindUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return nil, resp.StatusCode, &Error{
		Kind:    kind,
		Op:      op,
		Status:  resp.StatusCode,
		Message: extractDetail(data),
	}
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	data, _, err := c.roundTrip(ctx, op, http.MethodGet, path, nil, reqOpts{})
	if err != nil {
		return err
	}
	return c.decode(op, data, out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, in, out any, o reqOpts) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindUnknown, Op: op, Err: err}
		}
		body = bytes.NewReader(b)
		o.contentType = "application/json"
	}
	data, _, err := c.roundTrip(ctx, op, method, path, body, o)
	if err != nil {
		return err
	}
	return c.decode(op, data, out)
}

func (c *Client) decode(op string, data []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindServer, Op: op, Message: "unexpected response body", Err: err}
	}
	return nil
}
