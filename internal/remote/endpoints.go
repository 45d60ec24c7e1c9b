package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hpungsan/lcsync/internal/errors"
	"github.com/hpungsan/lcsync/internal/record"
)

// tablePayload is the get-table response. Rows are decoded one by one so a
// single malformed row does not discard the whole table.
type tablePayload struct {
	Table *[]json.RawMessage `json:"table"`
}

// InsertRow records rec for username.
func (c *Client) InsertRow(ctx context.Context, username string, rec record.Record) error {
	return c.Call(ctx, Request{
		Method:   http.MethodPost,
		Endpoint: "insert-row",
		Query:    url.Values{"username": {username}},
		Body:     rec,
	}, nil)
}

// DeleteRow removes problemID from username's table.
func (c *Client) DeleteRow(ctx context.Context, username, problemID string) error {
	return c.Call(ctx, Request{
		Method:   http.MethodDelete,
		Endpoint: "delete-row",
		Query:    url.Values{"username": {username}, "problemId": {problemID}},
	}, nil)
}

// GetTable fetches username's full table.
func (c *Client) GetTable(ctx context.Context, username string) ([]record.Record, error) {
	var payload tablePayload
	err := c.Call(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: "get-table",
		Query:    url.Values{"username": {username}},
	}, &payload)
	if err != nil {
		return nil, err
	}
	if payload.Table == nil {
		return nil, errors.NewDecode(fmt.Errorf("get-table payload has no table"))
	}

	rows := *payload.Table
	recs := make([]record.Record, 0, len(rows))
	for i, raw := range rows {
		var rec record.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			c.logger.Warn("skipping malformed table row", "username", username, "row", i, "error", err)
			continue
		}
		if err := rec.Validate(); err != nil {
			c.logger.Warn("skipping invalid table row", "username", username, "row", i, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
