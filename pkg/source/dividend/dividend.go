// Package dividend pages through the public dividend announcement feed.
package dividend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockpipe/pkg/source"
)

const (
	DefaultBaseURL  = "https://api-finance-t19.24hmoney.vn"
	DefaultPageSize = 5000
	firstPage       = 1
)

// Announcement is one dividend event as published upstream.
type Announcement struct {
	Symbol        string `json:"symbol"`
	Title         string `json:"title"`
	CompanyName   string `json:"company_name"`
	Type          string `json:"type"`
	Floor         string `json:"floor"`
	PublishedDate Epoch  `json:"published_date"`
	RecordDate    Epoch  `json:"record_date"`
	ExrightDate   Epoch  `json:"exright_date"`
	PayoutDate    Epoch  `json:"payout_date"`
}

// Epoch is a nullable unix-seconds timestamp. Zero, null and empty string
// all decode to an unset value.
type Epoch struct {
	time.Time
}

// Ptr returns nil for an unset value.
func (e Epoch) Ptr() *time.Time {
	if e.IsZero() {
		return nil
	}
	t := e.Time
	return &t
}

func (e *Epoch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		e.Time = time.Time{}
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			e.Time = time.Time{}
			return nil
		}
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("dividend: invalid epoch %s: %w", data, err)
	}
	if secs == 0 {
		e.Time = time.Time{}
		return nil
	}
	e.Time = time.Unix(int64(secs), 0).UTC()
	return nil
}

func (e Epoch) MarshalJSON() ([]byte, error) {
	if e.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(e.Unix(), 10)), nil
}

// Client fetches announcement pages.
type Client struct {
	http     *source.Client
	pageSize int
}

// New wraps a configured source client. pageSize <= 0 uses DefaultPageSize.
func New(c *source.Client, pageSize int) *Client {
	if c == nil {
		c = source.NewClient(source.WithName("dividend"), source.WithBaseURL(DefaultBaseURL))
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{http: c, pageSize: pageSize}
}

type pageResponse struct {
	Data []Announcement `json:"data"`
}

// Page fetches one page. Pages are numbered from 1; an empty slice means the
// feed is exhausted.
func (c *Client) Page(ctx context.Context, page int) ([]Announcement, error) {
	req := source.Request{
		Path: "/v1/web/announcement/dividend-events",
		Query: url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(c.pageSize)},
			"type":     {"all"},
			"floor":    {"all"},
		},
		Page: strconv.Itoa(page),
	}
	var resp pageResponse
	if err := c.http.GetJSON(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// All walks pages from 1 until the first empty one. Any page failure aborts
// the walk; the items gathered so far are returned alongside the error.
func (c *Client) All(ctx context.Context) ([]Announcement, error) {
	return source.Paginate(ctx, strconv.Itoa(firstPage), func(ctx context.Context, token string) (source.Page[Announcement], error) {
		n, err := strconv.Atoi(token)
		if err != nil {
			return source.Page[Announcement]{}, fmt.Errorf("dividend: bad page token %q", token)
		}
		items, err := c.Page(ctx, n)
		if err != nil {
			return source.Page[Announcement]{}, err
		}
		page := source.Page[Announcement]{Items: items}
		if len(items) > 0 {
			page.Next = strconv.Itoa(n + 1)
		}
		return page, nil
	})
}

var _ json.Unmarshaler = (*Epoch)(nil)
