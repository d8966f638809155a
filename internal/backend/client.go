package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"balama-storefront/internal/storage"
)

// HTTPClient lets tests stand in for the real transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a server-reported failure: a reachable backend answered with a
// non-2xx status or a false success flag. Message is shown to the user
// verbatim when the server provided one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error (status %d)", e.Status)
}

// Client wraps the remote storefront REST API. Every call attaches the
// bearer token from the persisted session store and normalizes the
// backend's inconsistent response envelopes into canonical local shapes.
type Client struct {
	baseURL string
	http    HTTPClient
	store   storage.KV
}

func NewClient(baseURL string, httpClient HTTPClient, store storage.KV) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		store:   store,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	token, err := c.store.Get(ctx, storage.KeyAuthToken)
	if err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("ERROR: reading auth token from session store: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

// apiError builds the user-facing failure for a non-2xx or isSuccess:false
// response, preferring the server's own message, then flattened validation
// errors, then a generic fallback.
func apiError(status int, raw []byte) *APIError {
	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return &APIError{Status: status, Message: body.Message}
		}
		if len(body.Errors) > 0 {
			var parts []string
			for _, msgs := range body.Errors {
				parts = append(parts, msgs...)
			}
			return &APIError{Status: status, Message: strings.Join(parts, ", ")}
		}
	}
	return &APIError{Status: status}
}

// failed reports a well-formed failure envelope.
func failed(raw []byte) bool {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false
	}
	return env.IsSuccess != nil && !*env.IsSuccess
}
