// internal/site/site.go
package site

import (
	"context"
	"errors"
)

// Fatal query errors. A Querier wraps one of these when retrying cannot help.
var (
	ErrNotFound    = errors.New("site: not found")
	ErrInvalidSite = errors.New("site: invalid site id")
)

// Snapshot is the result of one site query.
// Immutable value; never persisted.
type Snapshot struct {
	SiteID int64

	IsConnected            bool
	IsRequiredPluginActive bool

	// Informational only: used by InSync and logging, never by IsReady.
	Name                string
	URL                 string
	IsWooCommerceActive bool
	IsWordPressComStore bool
}

// Querier fetches the current state of one site.
// One call = one request. No retries.
type Querier interface {
	FetchSite(ctx context.Context, siteID int64) (Snapshot, error)
}

// QuerierFunc adapts a plain function to Querier.
type QuerierFunc func(ctx context.Context, siteID int64) (Snapshot, error)

func (f QuerierFunc) FetchSite(ctx context.Context, siteID int64) (Snapshot, error) {
	return f(ctx, siteID)
}

// IsReady reports whether a newly created site is usable:
// connected and with the required plugin active.
func IsReady(s Snapshot) bool {
	return s.IsConnected && s.IsRequiredPluginActive
}

// InSync reports whether the remaining site properties have caught up
// with the store that was created. Right after provisioning the name and
// store flags are often stale even though the site is ready.
func InSync(s Snapshot, expectedName string) bool {
	return s.IsWordPressComStore && s.IsWooCommerceActive && s.Name == expectedName
}

// IsFatal reports whether err is a query error that must not be retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidSite)
}
