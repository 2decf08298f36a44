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
	esSquareLoginURL  = "https://rent.es-square.net/login"
	esSquareSearchURL = "https://rent.es-square.net/bukken/chintai/search?p=1&items_per_page=10"
)

var esSquareSearchSelectors = []string{
	`input[placeholder*="検索"]`,
	`input[placeholder*="物件名"]`,
	`input[placeholder*="フリーワード"]`,
	`input[name*="keyword"]`,
	`input[name*="freeword"]`,
	`input[type="search"]`,
}

func esSquareLoggedInURL(u string) bool {
	return strings.Contains(u, "rent.es-square.net") && !strings.Contains(strings.ToLower(u), "login")
}

// esSquareDriver signs in through the hosted auth flow the platform
// fronts its login with, then searches the rental listing screen.
type esSquareDriver struct {
	creds  config.PlatformCredentials
	nav    time.Duration
	logger *slog.Logger
}

func (d *esSquareDriver) Platform() store.Platform { return store.PlatformEsSquare }

// submitAuthForm fills the hosted auth form when it is on screen, in the
// main document or an embedded frame.
func (d *esSquareDriver) submitAuthForm(page *rod.Page) bool {
	user := findInFrames(page, "input#username", `input[name="username"]`, `input[type="email"]`, `input[name*="email"]`)
	pass := findInFrames(page, "input#password", `input[name="password"]`, `input[type="password"]`)
	if user == nil || pass == nil {
		return false
	}
	if err := user.Input(d.creds.Email); err != nil {
		return false
	}
	if err := pass.Input(d.creds.Password); err != nil {
		return false
	}
	if err := pass.Type(input.Enter); err != nil {
		return false
	}
	return true
}

func (d *esSquareDriver) Login(ctx context.Context, page *rod.Page) error {
	if d.creds.Email == "" || d.creds.Password == "" {
		return services.Wrap(services.ErrConfiguration, "platform", "login", "es-square credentials are not set", nil)
	}
	page = page.Context(ctx)
	if err := page.Timeout(d.nav).Navigate(esSquareLoginURL); err != nil {
		return fmt.Errorf("navigate login page: %w", err)
	}
	if err := page.Timeout(d.nav).WaitLoad(); err != nil {
		return fmt.Errorf("load login page: %w", err)
	}
	if !d.submitAuthForm(page) {
		// The landing page fronts the auth form with an account button.
		btn := firstHit(page, "button.css-rk6wt", "div.css-4rmlxi button", "button.MuiButton-contained")
		if btn == nil {
			return fmt.Errorf("account login button not found")
		}
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("open auth form: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1500 * time.Millisecond):
		}
		if !d.submitAuthForm(page) {
			return fmt.Errorf("auth form fields not found")
		}
	}
	// The auth flow hops through several redirects before settling on the
	// rental screen.
	if !waitForURL(ctx, page, "rent.es-square.net", 40*time.Second) {
		if err := page.Timeout(d.nav).Navigate(esSquareSearchURL); err != nil {
			return fmt.Errorf("navigate search page: %w", err)
		}
		if err := page.Timeout(d.nav).WaitLoad(); err != nil {
			return fmt.Errorf("load search page: %w", err)
		}
	}
	info, err := page.Info()
	if err != nil {
		return fmt.Errorf("page info: %w", err)
	}
	if !strings.Contains(info.URL, "rent.es-square.net") {
		return fmt.Errorf("login landed on %s", info.URL)
	}
	return nil
}

func (d *esSquareDriver) LoggedIn(ctx context.Context, page *rod.Page) (bool, error) {
	info, err := page.Context(ctx).Info()
	if err != nil {
		return false, err
	}
	return esSquareLoggedInURL(info.URL), nil
}

func (d *esSquareDriver) Availability(ctx context.Context, page *rod.Page, name, room string) (Availability, error) {
	page = page.Context(ctx)
	keyword := searchKeyword(name, jptext.Fold(strings.TrimSpace(room)))
	if err := page.Timeout(d.nav).Navigate(esSquareSearchURL); err != nil {
		return "", fmt.Errorf("navigate property search: %w", err)
	}
	if err := page.Timeout(d.nav).WaitLoad(); err != nil {
		return "", fmt.Errorf("load property search: %w", err)
	}
	info, err := page.Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	if !esSquareLoggedInURL(info.URL) {
		return "", fmt.Errorf("property search redirected to %s: %w", info.URL, browser.ErrSessionLost)
	}
	field := firstHit(page, esSquareSearchSelectors...)
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
	if btn := firstHit(page, `input[value="検索"]`, `button[type="submit"]`); btn != nil {
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return "", fmt.Errorf("run search: %w", err)
		}
	} else if err := field.Type(input.Enter); err != nil {
		return "", fmt.Errorf("submit search: %w", err)
	}
	wait()
	body, err := pageText(page)
	if err != nil {
		return "", err
	}
	return classifyResultPage(page, body)
}
