package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/placekeeper/internal/client/collab"
	"github.com/dmitrijs2005/placekeeper/internal/client/transform"
	"github.com/dmitrijs2005/placekeeper/internal/common"
)

// errorBody is the wire shape of a non-2xx response.
type errorBody struct {
	Code          string          `json:"code"`
	Message       string          `json:"message"`
	ServerVersion int64           `json:"server_version,omitempty"`
	Document      json.RawMessage `json:"document,omitempty"`
}

const (
	codeAlreadyExists   = "already_exists"
	codeVersionConflict = "version_conflict"
	codeMissingVersion  = "missing_version"
)

// HTTPClient talks JSON over HTTP. Every call has a bounded timeout; a
// timeout classifies as the retryable ErrServerUnavailable, not a permanent
// failure.
type HTTPClient struct {
	baseURL  string
	http     *http.Client
	identity collab.IdentityProvider
}

// NewHTTPClient builds a client for baseURL. timeout bounds each call;
// zero means 15 seconds.
func NewHTTPClient(baseURL string, identity collab.IdentityProvider, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		identity: identity,
	}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/ping", nil, nil, &status); err != nil {
		return err
	}
	if status.Status != "OK" {
		return common.ErrServerUnavailable
	}
	return nil
}

func (c *HTTPClient) CreateEntity(ctx context.Context, doc *transform.RemoteEntity) (*transform.RemoteEntity, error) {
	var out transform.RemoteEntity
	err := c.do(ctx, http.MethodPost, "/api/entities", nil, doc, &out)
	if errors.Is(err, common.ErrAlreadyExists) {
		// reconcile instead of failing: the canonical copy wins
		return c.GetEntity(ctx, doc.EntityID)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetEntity(ctx context.Context, entityID string) (*transform.RemoteEntity, error) {
	var out transform.RemoteEntity
	if err := c.do(ctx, http.MethodGet, "/api/entities/"+url.PathEscape(entityID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateEntity(ctx context.Context, doc *transform.RemoteEntity, expectedVersion int64) (*transform.RemoteEntity, error) {
	var out transform.RemoteEntity
	hdr := versionHeader(expectedVersion)
	if err := c.do(ctx, http.MethodPut, "/api/entities/"+url.PathEscape(doc.EntityID), hdr, doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteEntity(ctx context.Context, entityID string, expectedVersion int64) error {
	return c.do(ctx, http.MethodDelete, "/api/entities/"+url.PathEscape(entityID), versionHeader(expectedVersion), nil, nil)
}

func (c *HTTPClient) ListEntities(ctx context.Context, f ListFilter) (*EntityPage, error) {
	var out EntityPage
	path := "/api/entities?" + listQuery(f).Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateCuration(ctx context.Context, doc *transform.RemoteCuration) (*transform.RemoteCuration, error) {
	var out transform.RemoteCuration
	err := c.do(ctx, http.MethodPost, "/api/curations", nil, doc, &out)
	if errors.Is(err, common.ErrAlreadyExists) {
		return c.GetCuration(ctx, doc.CurationID)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetCuration(ctx context.Context, curationID string) (*transform.RemoteCuration, error) {
	var out transform.RemoteCuration
	if err := c.do(ctx, http.MethodGet, "/api/curations/"+url.PathEscape(curationID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateCuration(ctx context.Context, doc *transform.RemoteCuration, expectedVersion int64) (*transform.RemoteCuration, error) {
	var out transform.RemoteCuration
	hdr := versionHeader(expectedVersion)
	if err := c.do(ctx, http.MethodPut, "/api/curations/"+url.PathEscape(doc.CurationID), hdr, doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteCuration(ctx context.Context, curationID string, expectedVersion int64) error {
	return c.do(ctx, http.MethodDelete, "/api/curations/"+url.PathEscape(curationID), versionHeader(expectedVersion), nil, nil)
}

func (c *HTTPClient) ListCurations(ctx context.Context, f ListFilter) (*CurationPage, error) {
	var out CurationPage
	path := "/api/curations?" + listQuery(f).Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func versionHeader(v int64) http.Header {
	h := http.Header{}
	h.Set(common.ExpectedVersionHeader, strconv.FormatInt(v, 10))
	return h
}

func listQuery(f ListFilter) url.Values {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.CuratorID != "" {
		q.Set("curator", f.CuratorID)
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format(time.RFC3339Nano))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format(time.RFC3339Nano))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

// do performs one request and decodes the response into out (when non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, hdr http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// No identity means an anonymous request. Protected routes answer 401,
	// which lets register, login and ping work before a session exists.
	if token, err := c.identity.CurrentIdentity(ctx); err == nil && token != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return mapStatusError(resp)
}

func mapTransportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %w", common.ErrServerUnavailable, err)
	}
	return fmt.Errorf("%w: %w", common.ErrNetwork, err)
}

func mapStatusError(resp *http.Response) error {
	var eb errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &eb)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return common.ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusConflict:
		if eb.Code == codeAlreadyExists {
			return common.ErrAlreadyExists
		}
		return &VersionConflictError{ServerVersion: eb.ServerVersion, ServerDoc: eb.Document}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if eb.Code == codeMissingVersion {
			return fmt.Errorf("%w: %s", common.ErrMissingVersion, eb.Message)
		}
		return fmt.Errorf("%w: %s", common.ErrValidation, eb.Message)
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", common.ErrServerUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("%w: unexpected status %d", common.ErrNetwork, resp.StatusCode)
	}
}
