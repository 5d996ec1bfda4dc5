// Package api - HTTP-Client fuer den GQCNN-Server.
// Die Methoden des [Client] entsprechen der REST-API des Servers; das
// CLI benutzt ausschliesslich dieses Package fuer Server-Zugriffe.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/moliushang/gqcnn/envconfig"
)

// Client kapselt den Zugriff auf den GQCNN-Server.
// Neue Clients entstehen ueber [ClientFromEnvironment].
type Client struct {
	base *url.URL
	http *http.Client
}

// ClientFromEnvironment erstellt einen Client aus GQCNN_HOST.
// Format: <scheme>://<host>:<port>; ohne Variable gilt der Default-Host.
func ClientFromEnvironment() (*Client, error) {
	return &Client{
		base: envconfig.Host(),
		http: http.DefaultClient,
	}, nil
}

func NewClient(base *url.URL, http *http.Client) *Client {
	return &Client{
		base: base,
		http: http,
	}
}

func checkError(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiError := StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	if err := json.Unmarshal(body, &apiError); err != nil {
		// Ohne dekodierbare Antwort wird der Body zur Meldung.
		apiError.ErrorMessage = string(body)
	}
	return apiError
}

func (c *Client) do(ctx context.Context, method, path string, reqData, respData any) error {
	var reqBody io.Reader
	if reqData != nil {
		data, err := json.Marshal(reqData)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	requestURL := c.base.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, method, requestURL.String(), reqBody)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if err := checkError(response, respBody); err != nil {
		return err
	}

	if respData != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, respData); err != nil {
			return err
		}
	}
	return nil
}

// Compile kompiliert eine YAML-Konfiguration auf dem Server.
func (c *Client) Compile(ctx context.Context, req *CompileRequest) (*CompileResponse, error) {
	var resp CompileResponse
	if err := c.do(ctx, http.MethodPost, "/api/compile", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Validate prueft eine YAML-Konfiguration strukturell.
func (c *Client) Validate(ctx context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	var resp ValidateResponse
	if err := c.do(ctx, http.MethodPost, "/api/validate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List liefert alle registrierten Architekturen.
func (c *Client) List(ctx context.Context) (*ListResponse, error) {
	var resp ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/architectures", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Show liefert eine registrierte Architektur samt Kompilat.
func (c *Client) Show(ctx context.Context, name string) (*ShowResponse, error) {
	var resp ShowResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/architectures/%s", name), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete entfernt eine registrierte Architektur.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/architectures/%s", name), nil, nil)
}

// Heartbeat prueft, ob der Server erreichbar ist.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodHead, "/", nil, nil)
}

// Version liefert die Server-Version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp VersionResponse
	if err := c.do(ctx, http.MethodGet, "/api/version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}
