package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trivia-night/internal/app"
	"trivia-night/internal/domain"
)

// DocumentStore talks to a trivia-night gateway so several processes share one store.
type DocumentStore struct {
	base   string
	client *http.Client
}

// NewDocumentStore returns a store for the gateway at baseURL. A nil client gets a 10s timeout.
func NewDocumentStore(baseURL string, client *http.Client) *DocumentStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DocumentStore{base: strings.TrimRight(baseURL, "/"), client: client}
}

type putBody struct {
	Value string `json:"value"`
}

type listBody struct {
	Keys []string `json:"keys"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *DocumentStore) Get(ctx context.Context, key string, shared bool) (app.Record, bool, error) {
	var rec app.Record
	status, err := s.do(ctx, http.MethodGet, s.documentURL(key, shared), nil, &rec)
	if status == http.StatusNotFound {
		return app.Record{}, false, nil
	}
	if err != nil {
		return app.Record{}, false, err
	}
	return rec, true, nil
}

func (s *DocumentStore) Set(ctx context.Context, key, value string, shared bool) (app.Record, error) {
	var rec app.Record
	if _, err := s.do(ctx, http.MethodPut, s.documentURL(key, shared), putBody{Value: value}, &rec); err != nil {
		return app.Record{}, err
	}
	return rec, nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string, shared bool) error {
	_, err := s.do(ctx, http.MethodDelete, s.documentURL(key, shared), nil, nil)
	return err
}

func (s *DocumentStore) List(ctx context.Context, prefix string, shared bool) ([]string, error) {
	q := url.Values{}
	q.Set("prefix", prefix)
	q.Set("shared", strconv.FormatBool(shared))
	var body listBody
	if _, err := s.do(ctx, http.MethodGet, s.base+"/v1/documents?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}
	if body.Keys == nil {
		body.Keys = []string{}
	}
	return body.Keys, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, s.base+"/healthz", nil, nil)
	return err
}

func (s *DocumentStore) documentURL(key string, shared bool) string {
	return s.base + "/v1/documents/" + url.PathEscape(key) + "?shared=" + strconv.FormatBool(shared)
}

// do sends one request. Non-2xx statuses map to the domain taxonomy; the status is
// returned alongside so callers can treat 404 as a miss.
func (s *DocumentStore) do(ctx context.Context, method, target string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%w: encode request: %w", domain.ErrBackend, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", domain.ErrBackend, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", domain.ErrBackend, method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorBody
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		switch resp.StatusCode {
		case http.StatusRequestEntityTooLarge:
			return resp.StatusCode, fmt.Errorf("%w: %s", domain.ErrTooLarge, e.Error)
		case http.StatusNotFound:
			return resp.StatusCode, fmt.Errorf("%w: %s", domain.ErrNotFound, e.Error)
		default:
			return resp.StatusCode, fmt.Errorf("%w: gateway returned %d: %s", domain.ErrBackend, resp.StatusCode, e.Error)
		}
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode response: %w", domain.ErrBackend, err)
	}
	return resp.StatusCode, nil
}
