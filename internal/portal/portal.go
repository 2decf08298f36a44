// Package portal fetches rental listing pages from the consumer portals and
// extracts the attributes used for inventory matching. Parsing is tolerant by
// design. Portals change markup without notice, so every field is optional
// and the caller decides how much missing data it can work with.
package portal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/listing"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// Detect identifies the portal a listing URL belongs to.
func Detect(rawURL string) (store.Portal, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	switch {
	case host == "suumo.jp" || strings.HasSuffix(host, ".suumo.jp"):
		return store.PortalSuumo, true
	case host == "homes.co.jp" || strings.HasSuffix(host, ".homes.co.jp"):
		return store.PortalHomes, true
	}
	return "", false
}

// Parse extracts listing attributes from a parsed document using the rules
// for the given portal. Missing fields stay empty.
func Parse(portal store.Portal, doc *html.Node) *listing.Attributes {
	switch portal {
	case store.PortalSuumo:
		return parseSuumo(doc)
	case store.PortalHomes:
		return parseHomes(doc)
	}
	return &listing.Attributes{}
}

// Client downloads listing pages over plain HTTP. Portal listing pages are
// served fully rendered, so no browser session is needed here.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.Portal.FetchTimeout) * time.Second},
		userAgent:  cfg.Portal.UserAgent,
		logger:     logging.NewComponentLogger(logger, "portal"),
	}
}

// Fetch downloads the listing page and returns the extracted attributes with
// numeric fields derived from the raw text. The portal is decided at
// submission time, so it is passed in rather than re-detected here. A page
// where neither a name nor an address could be found is rejected as
// unparseable.
func (c *Client) Fetch(ctx context.Context, rawURL string, portal store.Portal) (*listing.Attributes, error) {
	switch portal {
	case store.PortalSuumo, store.PortalHomes:
	default:
		return nil, services.Wrap(services.ErrValidation, "portal", "fetch",
			fmt.Sprintf("unknown portal %q", portal), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "portal", "fetch", "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "ja")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "portal", "fetch", "fetch listing page", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternalTool, "portal", "fetch",
			fmt.Sprintf("portal returned HTTP %d", resp.StatusCode), nil)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "portal", "parse", "parse listing page", err)
	}

	attrs := Parse(portal, doc)
	attrs.Derive(time.Now())
	if attrs.Name == "" && attrs.Address == "" {
		return nil, services.Wrap(services.ErrValidation, "portal", "parse",
			"listing page had no recognizable name or address", nil)
	}
	c.logger.Info("parsed listing page",
		logging.String("portal", string(portal)),
		logging.String("name", attrs.Name),
		logging.String("address", attrs.Address))
	return attrs, nil
}
