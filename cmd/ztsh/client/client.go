// Package client is the HTTP client ztsh speaks to the daemon with.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var ErrConnectionFailed = errors.New("failed to reach server")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// QueryResponse mirrors the server's query result shape.
type QueryResponse struct {
	Results []QueryRow `json:"results"`
	Count   int        `json:"count"`
}

type QueryRow struct {
	ID       string         `json:"id"`
	Fields   map[string]any `json:"fields,omitempty"`
	Returned map[string]any `json:"returned,omitempty"`
}

func (c *Client) Create(collection, docID string, fields map[string]any) (map[string]any, error) {
	path := fmt.Sprintf("/v1/collections/%s/documents", url.PathEscape(collection))
	if docID != "" {
		path += "?documentId=" + url.QueryEscape(docID)
	}
	return c.doJSON(http.MethodPost, path, fields)
}

func (c *Client) Get(collection, docID string) (map[string]any, error) {
	path := fmt.Sprintf("/v1/collections/%s/documents/%s", url.PathEscape(collection), url.PathEscape(docID))
	return c.doJSON(http.MethodGet, path, nil)
}

func (c *Client) Update(collection, docID string, fields map[string]any, where string) (map[string]any, error) {
	path := fmt.Sprintf("/v1/collections/%s/documents/%s", url.PathEscape(collection), url.PathEscape(docID))
	body := map[string]any{"fields": fields}
	if where != "" {
		body["where"] = where
	}
	return c.doJSON(http.MethodPut, path, body)
}

func (c *Client) Delete(collection, docID, where string) error {
	path := fmt.Sprintf("/v1/collections/%s/documents/%s", url.PathEscape(collection), url.PathEscape(docID))
	if where != "" {
		path += "?where=" + url.QueryEscape(where)
	}
	_, err := c.doJSON(http.MethodDelete, path, nil)
	return err
}

func (c *Client) Query(collection, query string, bindings map[string]any) (*QueryResponse, error) {
	path := fmt.Sprintf("/v1/collections/%s/query", url.PathEscape(collection))
	body := map[string]any{"query": query}
	if len(bindings) > 0 {
		body["bindings"] = bindings
	}
	raw, err := c.do(http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	resp := &QueryResponse{}
	if err := json.Unmarshal(raw, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) SetSchema(collection string, schema map[string]any) error {
	path := fmt.Sprintf("/v1/collections/%s/schema", url.PathEscape(collection))
	_, err := c.doJSON(http.MethodPut, path, schema)
	return err
}

func (c *Client) GetSchema(collection string) (map[string]any, error) {
	path := fmt.Sprintf("/v1/collections/%s/schema", url.PathEscape(collection))
	return c.doJSON(http.MethodGet, path, nil)
}

func (c *Client) DeleteSchema(collection string) error {
	path := fmt.Sprintf("/v1/collections/%s/schema", url.PathEscape(collection))
	_, err := c.doJSON(http.MethodDelete, path, nil)
	return err
}

func (c *Client) Health() error {
	_, err := c.doJSON(http.MethodGet, "/healthz", nil)
	return err
}

func (c *Client) doJSON(method, path string, body any) (map[string]any, error) {
	raw, err := c.do(method, path, body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			return nil, fmt.Errorf("%s (http %d)", errBody.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return raw, nil
}
