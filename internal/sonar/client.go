// internal/sonar/client.go - GraphQL transport to the Sonar API
package sonar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"sonarboard/internal/metrics"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// Executor runs one catalog request and decodes its data block into out.
type Executor interface {
	Execute(ctx context.Context, req Request, out interface{}) error
}

// Client posts catalog requests to a single GraphQL endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent upstream.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Sonar client. A zero timeout uses the default.
func NewClient(endpoint, token string, timeout time.Duration, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		token:      token,
		userAgent:  "sonarboard",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

type graphQLRequest struct {
	Query         string    `json:"query"`
	OperationName string    `json:"operationName,omitempty"`
	Variables     Variables `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Execute sends req and decodes the data block into out. It fails with a
// TransportError or an UpstreamError and never returns partial data.
func (c *Client) Execute(ctx context.Context, req Request, out interface{}) error {
	start := time.Now()
	err := c.execute(ctx, req, out)
	metrics.ObserveUpstream(string(req.Kind), upstreamOutcome(err), time.Since(start))
	return err
}

func (c *Client) execute(ctx context.Context, req Request, out interface{}) error {
	payload, err := json.Marshal(graphQLRequest{
		Query:         req.Query,
		OperationName: req.OperationName,
		Variables:     req.Variables,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}

	requestID := uuid.New().String()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-Id", requestID)

	log := logrus.WithFields(logrus.Fields{
		"operation":  req.OperationName,
		"request_id": requestID,
	})
	log.Debug("Sending Sonar query")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.WithError(err).Warn("Sonar request failed")
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.WithField("status", resp.StatusCode).Warn("Sonar returned non-success status")
		return &TransportError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var gqlResp graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(gqlResp.Errors) > 0 {
		log.WithField("errors", len(gqlResp.Errors)).Warn("Sonar reported GraphQL errors")
		return &UpstreamError{Errors: gqlResp.Errors}
	}

	// An absent data block decodes as the zero value of out.
	if out != nil && len(gqlResp.Data) > 0 && !bytes.Equal(gqlResp.Data, []byte("null")) {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return &TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("decode data: %w", err)}
		}
	}

	log.Debug("Sonar query complete")
	return nil
}

func upstreamOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsUpstreamError(err):
		return "graphql_error"
	default:
		return "transport_error"
	}
}
