// Package airtable fetches event records from the Airtable REST API.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Source is the read surface the sync path depends on.
type Source interface {
	FetchAll(ctx context.Context) ([]Record, error)
}

// Record is one Airtable row. Fields holds the raw cell values keyed by the
// Airtable field names.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

type Config struct {
	Token    string
	BaseID   string
	Table    string
	BaseURL  string
	PageSize int
	Timeout  time.Duration
}

type Client struct {
	token    string
	tableURL string
	pageSize int
	client   *http.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("airtable token is required")
	}
	if strings.TrimSpace(cfg.BaseID) == "" {
		return nil, fmt.Errorf("airtable base id is required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("airtable table name is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.airtable.com/v0"
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		token:    strings.TrimSpace(cfg.Token),
		tableURL: fmt.Sprintf("%s/%s/%s", baseURL, url.PathEscape(strings.TrimSpace(cfg.BaseID)), url.PathEscape(strings.TrimSpace(cfg.Table))),
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// FetchAll walks the offset cursor until the API stops returning one. Any
// failed page aborts the whole fetch; no partial result is returned.
func (c *Client) FetchAll(ctx context.Context) ([]Record, error) {
	var all []Record
	offset := ""
	for {
		page, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

type recordPage struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

func (c *Client) fetchPage(ctx context.Context, offset string) (recordPage, error) {
	u, err := url.Parse(c.tableURL)
	if err != nil {
		return recordPage{}, fmt.Errorf("parse table url: %w", err)
	}
	q := u.Query()
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	if offset != "" {
		q.Set("offset", offset)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return recordPage{}, fmt.Errorf("build records request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return recordPage{}, fmt.Errorf("request records page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return recordPage{}, fmt.Errorf("read records response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return recordPage{}, fmt.Errorf("records page failed status=%d body=%s", resp.StatusCode, snippet(body))
	}

	var page recordPage
	if err := json.Unmarshal(body, &page); err != nil {
		return recordPage{}, fmt.Errorf("decode records page: %w", err)
	}
	return page, nil
}

func snippet(body []byte) string {
	const max = 512
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
