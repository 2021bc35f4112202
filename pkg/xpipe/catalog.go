package xpipe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/xpipe-go/pkg/glob"
)

// QueryFilter selects connections by glob patterns. Categories and Names
// match the slash separated path, Types the connection type. Patterns are
// case-insensitive; "*" stays within one path segment and "**" spans
// segments. An empty field matches everything.
type QueryFilter struct {
	Categories string
	Names      string
	Types      string
}

func (f QueryFilter) request() connectionQueryRequest {
	return connectionQueryRequest{
		CategoryFilter:   orDefault(f.Categories, "**"),
		ConnectionFilter: orDefault(f.Names, "**"),
		TypeFilter:       orDefault(f.Types, "*"),
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Matcher compiles the filter for local use.
func (f QueryFilter) Matcher() (*Matcher, error) {
	q := f.request()
	categories, err := glob.Compile(q.CategoryFilter)
	if err != nil {
		return nil, ErrInvalidArgument.WithDetails("category filter").WithCause(err)
	}
	names, err := glob.Compile(q.ConnectionFilter)
	if err != nil {
		return nil, ErrInvalidArgument.WithDetails("connection filter").WithCause(err)
	}
	types, err := glob.Compile(q.TypeFilter)
	if err != nil {
		return nil, ErrInvalidArgument.WithDetails("type filter").WithCause(err)
	}
	return &Matcher{categories: categories, names: names, types: types}, nil
}

// Matcher is a compiled QueryFilter.
type Matcher struct {
	categories *glob.Pattern
	names      *glob.Pattern
	types      *glob.Pattern
}

// Match reports whether d satisfies all three patterns.
func (m *Matcher) Match(d ConnectionDetail) bool {
	return m.categories.Match(d.Category) &&
		m.names.Match(d.Name) &&
		m.types.MatchString(d.Type)
}

// FilterDetails returns the details matching f, keeping their order.
func FilterDetails(details []ConnectionDetail, f QueryFilter) ([]ConnectionDetail, error) {
	m, err := f.Matcher()
	if err != nil {
		return nil, err
	}
	out := make([]ConnectionDetail, 0, len(details))
	for _, d := range details {
		if m.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ConnectionDetail is the daemon's view of one connection. RawData, State
// and Cache are passed through without interpretation.
type ConnectionDetail struct {
	Connection    uuid.UUID       `json:"connection" yaml:"connection"`
	Category      []string        `json:"category" yaml:"category"`
	Name          []string        `json:"name" yaml:"name"`
	Type          string          `json:"type" yaml:"type"`
	RawData       json.RawMessage `json:"rawData,omitempty" yaml:"-"`
	UsageCategory string          `json:"usageCategory,omitempty" yaml:"usage_category,omitempty"`
	LastUsed      time.Time       `json:"lastUsed" yaml:"last_used"`
	LastModified  time.Time       `json:"lastModified" yaml:"last_modified"`
	State         json.RawMessage `json:"state,omitempty" yaml:"-"`
	Cache         json.RawMessage `json:"cache,omitempty" yaml:"-"`
}

// CategoryPath joins the category path with "/".
func (d ConnectionDetail) CategoryPath() string {
	return strings.Join(d.Category, glob.Separator)
}

// NamePath joins the name path with "/".
func (d ConnectionDetail) NamePath() string {
	return strings.Join(d.Name, glob.Separator)
}

type connectionQueryRequest struct {
	CategoryFilter   string `json:"categoryFilter"`
	ConnectionFilter string `json:"connectionFilter"`
	TypeFilter       string `json:"typeFilter"`
}

type connectionQueryResponse struct {
	Found []uuid.UUID `json:"found"`
}

type connectionsRequest struct {
	Connections []uuid.UUID `json:"connections"`
}

type connectionInfoResponse struct {
	Infos []ConnectionDetail `json:"infos"`
}

type connectionAddRequest struct {
	Name     string          `json:"name"`
	Data     json.RawMessage `json:"data"`
	Validate bool            `json:"validate"`
}

type connectionAddResponse struct {
	Connection uuid.UUID `json:"connection"`
}

// Query returns the UUIDs of connections matching f, in the daemon's order.
func (c *Client) Query(ctx context.Context, f QueryFilter) ([]uuid.UUID, error) {
	var resp connectionQueryResponse
	if err := c.call(ctx, request{endpoint: "/connection/query", body: f.request()}, &resp); err != nil {
		return nil, err
	}
	if resp.Found == nil {
		return []uuid.UUID{}, nil
	}
	return resp.Found, nil
}

// Info returns details for ids in the same order. The call fails as a whole
// if any id is unknown.
func (c *Client) Info(ctx context.Context, ids []uuid.UUID) ([]ConnectionDetail, error) {
	if err := checkIDs(ids); err != nil {
		return nil, err
	}

	var resp connectionInfoResponse
	err := c.call(ctx, request{endpoint: "/connection/info", body: connectionsRequest{Connections: ids}}, &resp)
	if err != nil {
		return nil, notFound(err, joinIDs(ids))
	}

	byID := make(map[uuid.UUID]ConnectionDetail, len(resp.Infos))
	for _, d := range resp.Infos {
		byID[d.Connection] = d
	}
	out := make([]ConnectionDetail, len(ids))
	for i, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, ErrConnectionNotFound.WithDetails(id.String())
		}
		out[i] = d
	}
	return out, nil
}

// List queries with f and fetches details for every match.
func (c *Client) List(ctx context.Context, f QueryFilter) ([]ConnectionDetail, error) {
	ids, err := c.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []ConnectionDetail{}, nil
	}
	return c.Info(ctx, ids)
}

// Add stores a new connection. data is the daemon's store JSON for the
// connection type and is passed through as is. With validate set the daemon
// checks reachability before saving.
func (c *Client) Add(ctx context.Context, name string, data json.RawMessage, validate bool) (uuid.UUID, error) {
	if strings.TrimSpace(name) == "" {
		return uuid.Nil, ErrInvalidArgument.WithDetails("empty connection name")
	}
	if !json.Valid(data) {
		return uuid.Nil, ErrInvalidArgument.WithDetails("connection data is not valid JSON")
	}

	var resp connectionAddResponse
	req := connectionAddRequest{Name: name, Data: data, Validate: validate}
	if err := c.call(ctx, request{endpoint: "/connection/add", body: req}, &resp); err != nil {
		return uuid.Nil, err
	}
	return resp.Connection, nil
}

// Remove deletes connections. Unknown ids fail the whole call.
func (c *Client) Remove(ctx context.Context, ids []uuid.UUID) error {
	if err := checkIDs(ids); err != nil {
		return err
	}
	err := c.call(ctx, request{endpoint: "/connection/remove", body: connectionsRequest{Connections: ids}}, nil)
	return notFound(err, joinIDs(ids))
}

func checkIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return ErrInvalidArgument.WithDetails("at least one connection is required")
	}
	for i, id := range ids {
		if id == uuid.Nil {
			return ErrInvalidArgument.WithDetails(fmt.Sprintf("connection %d is the nil UUID", i))
		}
	}
	return nil
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
