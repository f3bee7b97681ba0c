package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/profilebot/core/buildinfo"
	"github.com/m3rciful/profilebot/core/logger"
)

var (
	// ErrStatus matches any *StatusError.
	ErrStatus = errors.New("relayer: unexpected status")
	// ErrBadResponse is returned when a 2xx body lacks the profile address or
	// transaction hash.
	ErrBadResponse = errors.New("relayer: malformed response")
)

// maxErrorBody bounds how much of a failed response is kept for logs.
const maxErrorBody = 512

// StatusError reports a non-2xx relayer answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("relayer: status %d", e.Code)
	}
	return fmt.Sprintf("relayer: status %d: %s", e.Code, e.Body)
}

// Is makes errors.Is(err, ErrStatus) true for every StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Response is the relayer answer for a created profile.
type Response struct {
	UniversalProfileAddress string `json:"universalProfileAddress"`
	TransactionHash         string `json:"transactionHash"`
}

// Client calls the universal profile creation endpoint.
type Client struct {
	url    string
	apiKey string
	hc     *http.Client
}

// NewClient returns a Client posting to url with apiKey as bearer token.
// A nil httpClient uses http.DefaultClient.
func NewClient(url, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{url: url, apiKey: apiKey, hc: httpClient}
}

// CreateProfile submits req and returns the deployed profile on success.
func (c *Client) CreateProfile(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("relayer: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("relayer: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", buildinfo.UserAgent())

	start := time.Now()
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		logger.LogEvent(ctx, logger.Relayer, slog.LevelWarn, "create.fail",
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return Response{}, fmt.Errorf("relayer: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &StatusError{Code: resp.StatusCode, Body: logger.SanitizeLimit(strings.TrimSpace(string(snippet)), maxErrorBody)}
		logger.LogEvent(ctx, logger.Relayer, slog.LevelWarn, "create.fail",
			slog.String("status", "fail"),
			slog.Int("http_code", resp.StatusCode),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", statusErr.Error()),
		)
		return Response{}, statusErr
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if out.UniversalProfileAddress == "" || out.TransactionHash == "" {
		return Response{}, fmt.Errorf("%w: missing universalProfileAddress or transactionHash", ErrBadResponse)
	}

	logger.LogEvent(ctx, logger.Relayer, slog.LevelInfo, "create.ok",
		slog.String("status", "ok"),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
		slog.String("profile_address", out.UniversalProfileAddress),
		slog.String("tx_hash", out.TransactionHash),
	)
	return out, nil
}
