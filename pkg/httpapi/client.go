package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modoterra/logcap/pkg/core"
)

// Client reads logs from a running logcapd.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient accepts a base URL or a listen address such as ":3333" or
// "host:3333".
func NewClient(addr string) *Client {
	return &Client{
		BaseURL: baseURL(addr),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

// ListLogs fetches every record, newest first.
func (c *Client) ListLogs(ctx context.Context) ([]core.LogRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/logs", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return DecodeRows(body)
}

// DecodeRows parses the [[id, timestamp, message], ...] wire format.
func DecodeRows(data []byte) ([]core.LogRecord, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}

	records := make([]core.LogRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("decode logs: row %d has %d fields, want 3", i, len(row))
		}
		var rec core.LogRecord
		if err := json.Unmarshal(row[0], &rec.ID); err != nil {
			return nil, fmt.Errorf("decode logs: row %d id: %w", i, err)
		}
		// Timestamp and message are nullable in the table.
		var ts, msg *string
		if err := json.Unmarshal(row[1], &ts); err != nil {
			return nil, fmt.Errorf("decode logs: row %d timestamp: %w", i, err)
		}
		if err := json.Unmarshal(row[2], &msg); err != nil {
			return nil, fmt.Errorf("decode logs: row %d message: %w", i, err)
		}
		if ts != nil {
			rec.Timestamp = *ts
		}
		if msg != nil {
			rec.Message = *msg
		}
		records = append(records, rec)
	}
	return records, nil
}
