// internal/site/rest/client.go
package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/tamzrod/storeready/internal/site"
)

const (
	sitePathFmt  = "/rest/v1.1/sites/%d"
	siteFields   = "ID,name,URL,jetpack,jetpack_connection,options"
	siteOptions  = "is_wpcom_store,woocommerce_is_active,jetpack_connection_active_plugins"
	maxBodyBytes = 1 << 20
)

// Config is the minimal runtime config the client needs.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// RequiredPlugin must be listed in options.jetpack_connection_active_plugins.
	// Empty means the "jetpack" flag alone decides.
	RequiredPlugin string
}

// Client queries a site over the hosting REST API.
// One FetchSite = one HTTP request. No retries, no caching.
type Client struct {
	cfg  Config
	http *http.Client
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("rest: base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "rest: invalid base url")
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rest: unexpected status %d: %s", e.Status, e.Body)
}

// StatusCode exposes the HTTP status to status.ErrorCode.
func (e *StatusError) StatusCode() int { return e.Status }

// FetchSite implements site.Querier.
func (c *Client) FetchSite(ctx context.Context, siteID int64) (site.Snapshot, error) {
	if siteID <= 0 {
		return site.Snapshot{}, errors.Wrapf(site.ErrInvalidSite, "site id %d", siteID)
	}

	q := url.Values{}
	q.Set("fields", siteFields)
	q.Set("options", siteOptions)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + fmt.Sprintf(sitePathFmt, siteID) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return site.Snapshot{}, errors.Wrap(err, "rest: build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return site.Snapshot{}, errors.Wrapf(err, "rest: fetch site %d", siteID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return site.Snapshot{}, errors.Wrapf(err, "rest: read site %d", siteID)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return site.Snapshot{}, errors.Wrapf(site.ErrNotFound, "site %d", siteID)
	case resp.StatusCode == http.StatusBadRequest:
		return site.Snapshot{}, errors.Wrapf(site.ErrInvalidSite, "site %d: %s", siteID, snippet(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return site.Snapshot{}, &StatusError{Status: resp.StatusCode, Body: snippet(body)}
	}

	snap, err := Decode(body, c.cfg.RequiredPlugin)
	if err != nil {
		return site.Snapshot{}, err
	}
	// Transient: a misrouted response must not pass as this site being ready.
	if snap.SiteID != siteID {
		return site.Snapshot{}, errors.Errorf("rest: asked for site %d, response describes site %d", siteID, snap.SiteID)
	}
	return snap, nil
}

// Decode maps a site response body into a Snapshot.
func Decode(body []byte, requiredPlugin string) (site.Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return site.Snapshot{}, errors.New("rest: invalid json in site response")
	}
	doc := gjson.ParseBytes(body)

	id := doc.Get("ID")
	if !id.Exists() {
		return site.Snapshot{}, errors.New("rest: site response has no ID")
	}

	jetpack := doc.Get("jetpack").Bool()
	opts := doc.Get("options")

	pluginActive := jetpack
	if requiredPlugin != "" {
		pluginActive = jetpack && containsPlugin(opts.Get("jetpack_connection_active_plugins"), requiredPlugin)
	}

	return site.Snapshot{
		SiteID:                 id.Int(),
		Name:                   doc.Get("name").String(),
		URL:                    doc.Get("URL").String(),
		IsConnected:            jetpack || doc.Get("jetpack_connection").Bool(),
		IsRequiredPluginActive: pluginActive,
		IsWooCommerceActive:    opts.Get("woocommerce_is_active").Bool(),
		IsWordPressComStore:    opts.Get("is_wpcom_store").Bool(),
	}, nil
}

func containsPlugin(list gjson.Result, name string) bool {
	found := false
	list.ForEach(func(_, v gjson.Result) bool {
		if strings.EqualFold(v.String(), name) {
			found = true
			return false
		}
		return true
	})
	return found
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return strconv.Quote(s)
}
