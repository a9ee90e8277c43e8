package opal

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mwantia/alder/internal/config"
	"github.com/mwantia/alder/pkg/log"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

const authScheme = "X-Opal-Auth"

var (
	identifierPath = jp.MustParseString("$[*].identifier")
	variablesPath  = jp.MustParseString("$.variables[*]")
	valueSetsPath  = jp.MustParseString("$.valueSets[*]")
)

// Client talks to the Opal study-data service. It is not safe for
// concurrent use; the context of every call doubles as the abort flag.
type Client struct {
	// OnProgress, when set, receives a notification before every request
	// (Total -1) and after every received chunk.
	OnProgress func(Progress)

	baseURL string
	auth    string
	http    *http.Client
	log     log.LoggerService
}

type Option func(*Client)

// WithBaseURL replaces the https://host:port/ws address derived from the
// configuration.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(logger log.LoggerService) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient builds a client from the opal section of the configuration.
func NewClient(cfg config.OpalConfig, opts ...Option) (*Client, error) {
	timeout := 30 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid opal timeout '%s': %w", cfg.Timeout, err)
		}
		timeout = d
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
	c := &Client{
		baseURL: fmt.Sprintf("https://%s:%d/ws", cfg.Host, cfg.Port),
		auth:    authScheme + " " + credentials,
		http:    &http.Client{Transport: transport},
		log:     log.NewDiscardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Identifiers returns every entity id of a remote table, sorted.
func (c *Client) Identifiers(ctx context.Context, dataSource, table string) ([]string, error) {
	endpoint := c.tableURL(dataSource, table, "entities")
	doc, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if _, ok := doc.([]any); !ok {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "expected an entity list"}
	}

	var ids []string
	for _, v := range identifierPath.Get(doc) {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Rows returns one page of value sets keyed by entity id, each mapping
// variable name to its value: a string, a []string for repeated
// variables, or nil.
func (c *Client) Rows(ctx context.Context, dataSource, table string, offset, limit int) (map[string]map[string]any, error) {
	endpoint := c.tableURL(dataSource, table, "valueSets")
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	doc, err := c.getJSON(ctx, endpoint+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	return parseValueSets(endpoint, doc)
}

// Row returns the value set of a single entity.
func (c *Client) Row(ctx context.Context, dataSource, table, identifier string) (map[string]any, error) {
	endpoint := c.tableURL(dataSource, table, "valueSet", identifier)
	doc, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	rows, err := parseValueSets(endpoint, doc)
	if err != nil {
		return nil, err
	}

	row, ok := rows[identifier]
	if !ok {
		return nil, &MalformedResponseError{URL: endpoint, Reason: fmt.Sprintf("no value set for '%s'", identifier)}
	}
	return row, nil
}

// Value returns a scalar variable. A repeated variable yields its first
// element and a missing value the empty string.
func (c *Client) Value(ctx context.Context, dataSource, table, identifier, variable string) (string, error) {
	values, err := c.Values(ctx, dataSource, table, identifier, variable)
	if err != nil || len(values) == 0 {
		return "", err
	}
	return values[0], nil
}

// Values returns every element of a repeated variable. Repeated values
// arise when one variable holds several acquisitions, e.g. left and right
// scans.
func (c *Client) Values(ctx context.Context, dataSource, table, identifier, variable string) ([]string, error) {
	endpoint := c.tableURL(dataSource, table, "valueSet", identifier, "variable", variable)
	doc, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "expected a value object"}
	}

	switch v := parseValue(obj).(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	default:
		return nil, &MalformedResponseError{URL: endpoint, Reason: fmt.Sprintf("unexpected value %T", v)}
	}
}

// SaveFile streams a binary variable to fileName. Position selects one
// element of a repeated variable; a negative position fetches the whole
// value. The payload is written to a temporary file in the same directory
// and renamed into place once complete, so an aborted or failed transfer
// never leaves a partial file at fileName.
func (c *Client) SaveFile(ctx context.Context, fileName, dataSource, table, identifier, variable string, position int) error {
	endpoint := c.tableURL(dataSource, table, "valueSet", identifier, "variable", variable, "value")
	if position >= 0 {
		endpoint += "?pos=" + strconv.Itoa(position)
	}

	dir := filepath.Dir(fileName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tmpName := filepath.Join(dir, "."+uuid.NewString()+".part")
	tmp, err := os.Create(tmpName)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	written, err := c.fetch(ctx, endpoint, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, fileName); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	c.log.Debug("Saved %s to '%s'", humanize.Bytes(uint64(written)), fileName)
	return nil
}

func (c *Client) tableURL(dataSource, table string, segments ...string) string {
	parts := []string{c.baseURL, "datasource", url.PathEscape(dataSource), "table", url.PathEscape(table)}
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}

func (c *Client) getJSON(ctx context.Context, endpoint string) (any, error) {
	var buf bytes.Buffer
	if _, err := c.fetch(ctx, endpoint, &buf); err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(buf.Bytes())
	if len(body) == 0 {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "empty body"}
	}

	doc, err := oj.Parse(body)
	if err != nil {
		return nil, &MalformedResponseError{URL: endpoint, Reason: err.Error()}
	}
	return doc, nil
}

// fetch performs a GET and copies the body to dst chunk by chunk.
func (c *Client) fetch(ctx context.Context, endpoint string, dst io.Writer) (int64, error) {
	if ctx.Err() != nil {
		return 0, aborted(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, &RemoteServiceError{Method: http.MethodGet, URL: endpoint, Message: err.Error()}
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json, application/octet-stream")

	c.report(Progress{URL: endpoint, Total: -1})
	c.log.Debug("GET %s", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, aborted(ctx)
		}
		return 0, &RemoteServiceError{Method: http.MethodGet, URL: endpoint, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := strings.TrimSpace(string(msg))
		if message == "" {
			message = resp.Status
		}
		return 0, &RemoteServiceError{Method: http.MethodGet, URL: endpoint, Status: resp.StatusCode, Message: message}
	}

	total := resp.ContentLength
	if total < 0 {
		total = -1
	}

	n, err := copyChunks(ctx, dst, resp.Body, Progress{URL: endpoint, Total: total}, c.report)
	if err != nil {
		if ctx.Err() != nil {
			return n, aborted(ctx)
		}
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return n, err
		}
		return n, &RemoteServiceError{Method: http.MethodGet, URL: endpoint, Status: resp.StatusCode, Message: err.Error()}
	}
	return n, nil
}

func (c *Client) report(p Progress) {
	if c.OnProgress != nil {
		c.OnProgress(p)
	}
}

func aborted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
}

// parseValueSets maps the {variables, valueSets[{identifier, values}]}
// document onto rows keyed by identifier.
func parseValueSets(endpoint string, doc any) (map[string]map[string]any, error) {
	if _, ok := doc.(map[string]any); !ok {
		return nil, &MalformedResponseError{URL: endpoint, Reason: "expected a value set document"}
	}

	var variables []string
	for _, v := range variablesPath.Get(doc) {
		name, ok := v.(string)
		if !ok {
			return nil, &MalformedResponseError{URL: endpoint, Reason: "variable name is not a string"}
		}
		variables = append(variables, name)
	}

	rows := make(map[string]map[string]any)
	for _, vs := range valueSetsPath.Get(doc) {
		set, ok := vs.(map[string]any)
		if !ok {
			return nil, &MalformedResponseError{URL: endpoint, Reason: "value set is not an object"}
		}

		id, _ := set["identifier"].(string)
		if id == "" {
			return nil, &MalformedResponseError{URL: endpoint, Reason: "value set without identifier"}
		}

		values, _ := set["values"].([]any)
		if len(values) > len(variables) {
			return nil, &MalformedResponseError{URL: endpoint, Reason: fmt.Sprintf("value set '%s' has more values than variables", id)}
		}

		row := make(map[string]any, len(variables))
		for i, name := range variables {
			row[name] = nil
			if i < len(values) {
				if obj, ok := values[i].(map[string]any); ok {
					row[name] = parseValue(obj)
				}
			}
		}
		rows[id] = row
	}
	return rows, nil
}

// parseValue converts {"value": x} to a string and {"values": [...]} to a
// []string. Anything else is a missing value.
func parseValue(obj map[string]any) any {
	if list, ok := obj["values"].([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				s, _ := parseValue(m).(string)
				out = append(out, s)
			}
		}
		return out
	}

	switch v := obj["value"].(type) {
	case nil:
		return nil
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
