package api

import (
	"context"
	"net/http"
	"net/url"
)

// AuthResult is what the server hands back on a successful register or
// login. Token is opaque to the client; it is only ever forwarded.
type AuthResult struct {
	Token     string `json:"token"`
	CuratorID string `json:"curator_id"`
	Name      string `json:"name"`
}

type credentials struct {
	Login    string `json:"login"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

// Register creates a curator account and returns a fresh token.
func (c *HTTPClient) Register(ctx context.Context, login, name, password string) (*AuthResult, error) {
	var out AuthResult
	in := credentials{Login: login, Name: name, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates an existing curator.
func (c *HTTPClient) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	var out AuthResult
	in := credentials{Login: login, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PresignedURL is a time-limited link for a direct photo transfer against the
// blob store, so image bytes never travel through the API server.
type PresignedURL struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PhotoUploadURL asks the server for a presigned PUT link for one photo of
// the given entity.
func (c *HTTPClient) PhotoUploadURL(ctx context.Context, entityID, filename string) (*PresignedURL, error) {
	var out PresignedURL
	in := struct {
		EntityID string `json:"entity_id"`
		Filename string `json:"filename"`
	}{entityID, filename}
	if err := c.do(ctx, http.MethodPost, "/api/media/upload-url", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PhotoDownloadURL asks the server for a presigned GET link for a stored
// photo key.
func (c *HTTPClient) PhotoDownloadURL(ctx context.Context, key string) (*PresignedURL, error) {
	var out PresignedURL
	path := "/api/media/download-url?key=" + url.QueryEscape(key)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
