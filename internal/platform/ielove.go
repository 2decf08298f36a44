package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazuki802/bukkaku/internal/browser"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/jptext"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

const (
	ieloveLoginURL  = "https://bb.ielove.jp/ielovebb/login/index"
	ieloveSearchURL = "https://bb.ielove.jp/ielovebb/bukken/search"
)

var ieloveSearchSelectors = []string{
	`input[placeholder*="検索"]`,
	`input[placeholder*="物件名"]`,
	`input[name*="keyword"]`,
	`input[name*="search"]`,
	`input[name*="freeword"]`,
	`input[type="search"]`,
}

func ieloveLoggedInURL(u string) bool {
	return strings.Contains(u, "ielove.jp") && !strings.Contains(strings.ToLower(u), "login")
}

type ieloveDriver struct {
	creds  config.PlatformCredentials
	nav    time.Duration
	logger *slog.Logger
}

func (d *ieloveDriver) Platform() store.Platform { return store.PlatformIelove }

func (d *ieloveDriver) Login(ctx context.Context, page *rod.Page) error {
	if d.creds.Email == "" || d.creds.Password == "" {
		return services.Wrap(services.ErrConfiguration, "platform", "login", "ielove credentials are not set", nil)
	}
	page = page.Context(ctx)
	if err := page.Timeout(d.nav).Navigate(ieloveLoginURL); err != nil {
		return fmt.Errorf("navigate login page: %w", err)
	}
	if err := page.Timeout(d.nav).WaitLoad(); err != nil {
		return fmt.Errorf("load login page: %w", err)
	}
	if err := fillFirst(page, d.creds.Email,
		`input[name="login_id"]`, `input[name="email"]`, "#login_id", "#email",
		`input[type="email"]`, `input[type="text"]`); err != nil {
		return fmt.Errorf("login id field: %w", err)
	}
	if err := fillFirst(page, d.creds.Password,
		`input[name="password"]`, "#password", `input[type="password"]`); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	btn := firstHit(page, `input[type="submit"]`, `button[type="submit"]`, "#login_btn")
	if btn == nil {
		return fmt.Errorf("login button not found")
	}
	wait := page.Timeout(d.nav).WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	wait()
	info, err := page.Info()
	if err != nil {
		return fmt.Errorf("page info: %w", err)
	}
	if !ieloveLoggedInURL(info.URL) {
		return fmt.Errorf("login landed on %s", info.URL)
	}
	return nil
}

func (d *ieloveDriver) LoggedIn(ctx context.Context, page *rod.Page) (bool, error) {
	info, err := page.Context(ctx).Info()
	if err != nil {
		return false, err
	}
	return ieloveLoggedInURL(info.URL), nil
}

func (d *ieloveDriver) Availability(ctx context.Context, page *rod.Page, name, room string) (Availability, error) {
	page = page.Context(ctx)
	keyword := searchKeyword(name, jptext.Fold(strings.TrimSpace(room)))

	// The global search bar is on most pages already; fall back to the
	// property search screen when it is not.
	field := firstHit(page, ieloveSearchSelectors...)
	if field == nil {
		if err := page.Timeout(d.nav).Navigate(ieloveSearchURL); err != nil {
			return "", fmt.Errorf("navigate property search: %w", err)
		}
		if err := page.Timeout(d.nav).WaitLoad(); err != nil {
			return "", fmt.Errorf("load property search: %w", err)
		}
		info, err := page.Info()
		if err != nil {
			return "", fmt.Errorf("page info: %w", err)
		}
		if !ieloveLoggedInURL(info.URL) {
			return "", fmt.Errorf("property search redirected to %s: %w", info.URL, browser.ErrSessionLost)
		}
		field = firstHit(page, ieloveSearchSelectors...)
	}
	if field == nil {
		return "", fmt.Errorf("search field not found")
	}
	if err := field.SelectAllText(); err != nil {
		return "", fmt.Errorf("focus search field: %w", err)
	}
	if err := field.Input(keyword); err != nil {
		return "", fmt.Errorf("fill search field: %w", err)
	}
	wait := page.Timeout(settleTimeout).WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := field.Type(input.Enter); err != nil {
		return "", fmt.Errorf("submit search: %w", err)
	}
	wait()
	body, err := pageText(page)
	if err != nil {
		return "", err
	}
	return classifyResultPage(page, body)
}
