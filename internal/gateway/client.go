// Package gateway is the single configured transport for all GraphQL
// operations against the platform API. It performs no retries and no
// caching; failures surface to the calling screen as errors.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/rentfolio/portal-server-go/internal/errors"
)

// TokenSource returns the bearer token for the next request, or "" when the
// caller is anonymous. It is consulted at send time, never at construction,
// so a login or logout is reflected on the very next request.
type TokenSource func() string

type Client struct {
	endpoint    string
	client      *http.Client
	tokenSource TokenSource
}

func NewClient(baseURL string, timeout time.Duration, tokenSource TokenSource) *Client {
	if tokenSource == nil {
		tokenSource = func() string { return "" }
	}
	return &Client{
		endpoint:    strings.TrimRight(baseURL, "/") + "/graphql",
		client:      &http.Client{Timeout: timeout},
		tokenSource: tokenSource,
	}
}

// WithTokenSource returns a client that shares this client's transport but
// authenticates with the given source. Used to bind the shared client to
// one visitor's session for the duration of a request.
func (c *Client) WithTokenSource(tokenSource TokenSource) *Client {
	if tokenSource == nil {
		tokenSource = func() string { return "" }
	}
	return &Client{
		endpoint:    c.endpoint,
		client:      c.client,
		tokenSource: tokenSource,
	}
}

type gqlRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// Do executes one named operation and unmarshals the data payload into out.
// out may be nil for operations whose result the caller does not need.
func (c *Client) Do(ctx context.Context, operationName, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(gqlRequest{
		Query:         query,
		OperationName: operationName,
		Variables:     variables,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokenSource(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("operation", operationName).
			Dur("elapsed", elapsed).
			Msg("gateway request error")
		return apperrors.GatewayUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("operation", operationName).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("gateway request rejected")
		return apperrors.GatewayRejected(fmt.Sprintf("Platform API returned status %d", resp.StatusCode))
	}

	var gqlResp gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return apperrors.GatewayRejected("Platform API returned a malformed response").WithCause(err)
	}

	if len(gqlResp.Errors) > 0 {
		messages := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			messages = append(messages, e.Message)
		}
		log.Warn().
			Str("operation", operationName).
			Strs("errors", messages).
			Dur("elapsed", elapsed).
			Msg("gateway operation failed")
		return apperrors.GatewayRejected(strings.Join(messages, "; "))
	}

	log.Debug().
		Str("operation", operationName).
		Dur("elapsed", elapsed).
		Msg("gateway operation ok")

	if out == nil || gqlResp.Data == nil {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return apperrors.GatewayRejected("Platform API returned a malformed payload").WithCause(err)
	}
	return nil
}
