package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client communicates with the Qdrant HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Point is a single vector with its payload, addressed by a UUID.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScoredPoint is a search or scroll hit.
type ScoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// CollectionInfo summarizes a collection's state.
type CollectionInfo struct {
	Status      string `json:"status"`
	PointsCount int64  `json:"points_count"`
}

type filter struct {
	Must []condition `json:"must,omitempty"`
}

type condition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value any `json:"value"`
}

func docTypeFilter(docType string) *filter {
	if docType == "" {
		return nil
	}
	return &filter{Must: []condition{{Key: "doc_type", Match: matchValue{Value: docType}}}}
}

// EnsureCollection creates the collection if it does not already exist.
func (c *Client) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	exists, err := c.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	if err := c.do(ctx, http.MethodPut, "/collections/"+name, body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

func (c *Client) collectionExists(ctx context.Context, name string) (bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections/"+name, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("get collection: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("get collection %s: status %d", name, resp.StatusCode)
	}
}

// GetCollectionInfo returns point counts for a collection.
func (c *Client) GetCollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	var info CollectionInfo
	if err := c.do(ctx, http.MethodGet, "/collections/"+name, nil, &info); err != nil {
		return nil, fmt.Errorf("collection info %s: %w", name, err)
	}
	return &info, nil
}

// Upsert writes points to the collection and waits for them to be indexed.
func (c *Client) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	if err := c.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search returns the limit nearest points to vector, optionally restricted
// to payloads whose doc_type matches.
func (c *Client) Search(ctx context.Context, collection string, vector []float64, limit int, docType string) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if f := docTypeFilter(docType); f != nil {
		body["filter"] = f
	}

	var hits []ScoredPoint
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body, &hits); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// Scroll pages through every point in the collection, optionally restricted
// by doc_type. Intended for corpus-wide retrieval, not hot paths.
func (c *Client) Scroll(ctx context.Context, collection string, docType string) ([]ScoredPoint, error) {
	const pageSize = 256

	var all []ScoredPoint
	var offset any
	for {
		body := map[string]any{
			"limit":        pageSize,
			"with_payload": true,
		}
		if f := docTypeFilter(docType); f != nil {
			body["filter"] = f
		}
		if offset != nil {
			body["offset"] = offset
		}

		var page struct {
			Points         []ScoredPoint `json:"points"`
			NextPageOffset any           `json:"next_page_offset"`
		}
		if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", body, &page); err != nil {
			return nil, fmt.Errorf("scroll: %w", err)
		}

		all = append(all, page.Points...)
		if page.NextPageOffset == nil || len(page.Points) == 0 {
			return all, nil
		}
		offset = page.NextPageOffset
	}
}

// DeleteBySource removes all points whose payload source matches, used when
// re-ingesting a guideline document.
func (c *Client) DeleteBySource(ctx context.Context, collection, source string) error {
	body := map[string]any{
		"filter": filter{Must: []condition{{Key: "source", Match: matchValue{Value: source}}}},
	}
	if err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body, nil); err != nil {
		return fmt.Errorf("delete by source %s: %w", source, err)
	}
	return nil
}

// do performs one API call and decodes the "result" field of the response
// envelope into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var reader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("qdrant: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
