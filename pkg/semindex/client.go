package semindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the content-index search service.
type Client struct {
	BaseURL string
	APIKey  string
	httpDo  *http.Client
}

// NewClient builds a search client. timeout bounds every query; similarity
// queries are expected to answer in single-digit seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		httpDo:  &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"topK"`
	Namespace string `json:"namespace"`
}

type searchResponse struct {
	Matches []Match `json:"matches"`
}

// Search queries one namespace of the index and returns ranked matches.
func (c *Client) Search(ctx context.Context, query string, topK int, namespace string) ([]Match, error) {
	if c.BaseURL == "" {
		return nil, errors.New("semindex base url is empty")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	if topK <= 0 {
		topK = 10
	}
	data, err := json.Marshal(searchRequest{Query: query, TopK: topK, Namespace: namespace})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/search", c.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpDo.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errMap map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errMap)
		return nil, fmt.Errorf("semindex http %d: %v", resp.StatusCode, errMap)
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	// Defend against scores outside the advertised [0,1] scale.
	for i := range out.Matches {
		if out.Matches[i].Score < 0 {
			out.Matches[i].Score = 0
		}
		if out.Matches[i].Score > 1 {
			out.Matches[i].Score = 1
		}
	}
	return out.Matches, nil
}

// Ping checks the index health endpoint; used by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	if c.BaseURL == "" {
		return errors.New("semindex base url is empty")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpDo.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("semindex health http %d", resp.StatusCode)
	}
	return nil
}
