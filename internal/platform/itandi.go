package platform

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazuki802/bukkaku/internal/browser"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/jptext"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

const (
	itandiTopURL    = "https://bukkakun.com/"
	itandiSearchURL = "https://itandibb.com/rent_rooms/list"
)

// itandiHitPattern reads the result count off the room list, which reports
// hits in units of 戸.
var itandiHitPattern = regexp.MustCompile(`([0-9]+)\s*戸`)

// itandiLoggedInURL reports whether u is an itandi BB page behind
// authentication. The accounts service and any login path mean the
// session is gone.
func itandiLoggedInURL(u string) bool {
	lower := strings.ToLower(u)
	if !strings.Contains(lower, "itandibb.com") {
		return false
	}
	return !strings.Contains(lower, "login") && !strings.Contains(lower, "itandi-accounts")
}

// itandiLoginDone reports whether a post-login URL counts as success. The
// flow can also land back on the public top page host.
func itandiLoginDone(u string) bool {
	lower := strings.ToLower(u)
	if !strings.Contains(lower, "itandibb.com") && !strings.Contains(lower, "bukkakun.com") {
		return false
	}
	return !strings.Contains(lower, "login") && !strings.Contains(lower, "itandi-accounts")
}

// itandiAvailability turns the room list text into a verdict. With a room
// number the 申込あり flag only counts when it appears near that room's
// row; the list renders every room of the building.
func itandiAvailability(body, room string) Availability {
	m := itandiHitPattern.FindStringSubmatch(body)
	if m == nil {
		return AvailabilityNotFound
	}
	if n, err := strconv.Atoi(m[1]); err != nil || n == 0 {
		return AvailabilityNotFound
	}
	if room != "" {
		window := runeWindow(body, room, 300)
		if window == "" {
			return AvailabilityActive
		}
		if strings.Contains(window, "申込あり") {
			return AvailabilityApplied
		}
		return AvailabilityActive
	}
	if strings.Contains(body, "申込あり") {
		return AvailabilityApplied
	}
	return AvailabilityActive
}

type itandiDriver struct {
	creds  config.PlatformCredentials
	nav    time.Duration
	logger *slog.Logger
}

func (d *itandiDriver) Platform() store.Platform { return store.PlatformItandi }

func (d *itandiDriver) Login(ctx context.Context, page *rod.Page) error {
	if d.creds.Email == "" || d.creds.Password == "" {
		return services.Wrap(services.ErrConfiguration, "platform", "login", "itandi credentials are not set", nil)
	}
	page = page.Context(ctx)
	if err := d.openLoginForm(page); err != nil {
		return err
	}
	// The accounts service sometimes answers the first hop with a 400.
	// One more pass through the top page clears it.
	if bad, err := d.badRequest(page); err == nil && bad {
		d.logger.Debug("login hop returned 400, retrying")
		if err := d.openLoginForm(page); err != nil {
			return err
		}
	}
	if err := fillFirst(page, d.creds.Email, "#email", `input[name="email"]`, `input[type="email"]`); err != nil {
		return fmt.Errorf("email field: %w", err)
	}
	if err := fillFirst(page, d.creds.Password, "#password", `input[name="password"]`, `input[type="password"]`); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	btn := firstHit(page, `input.filled-button[value="ログイン"]`, `input[type="submit"]`, `button[type="submit"]`)
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
	if !itandiLoginDone(info.URL) {
		return fmt.Errorf("login landed on %s", info.URL)
	}
	return nil
}

// openLoginForm goes through the public top page to the accounts login
// form.
func (d *itandiDriver) openLoginForm(page *rod.Page) error {
	if err := page.Timeout(d.nav).Navigate(itandiTopURL); err != nil {
		return fmt.Errorf("navigate top page: %w", err)
	}
	if err := page.Timeout(d.nav).WaitLoad(); err != nil {
		return fmt.Errorf("load top page: %w", err)
	}
	link := firstHit(page, `a[href*="itandi-accounts"]`, `a[href*="login"]`)
	if link == nil {
		return fmt.Errorf("login link not found")
	}
	wait := page.Timeout(d.nav).WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("open login form: %w", err)
	}
	wait()
	return nil
}

func (d *itandiDriver) badRequest(page *rod.Page) (bool, error) {
	info, err := page.Info()
	if err != nil {
		return false, err
	}
	if strings.Contains(info.Title, "400") {
		return true, nil
	}
	body, err := pageText(page)
	if err != nil {
		return false, err
	}
	return strings.Contains(body, "Bad Request"), nil
}

func (d *itandiDriver) LoggedIn(ctx context.Context, page *rod.Page) (bool, error) {
	info, err := page.Context(ctx).Info()
	if err != nil {
		return false, err
	}
	return itandiLoggedInURL(info.URL), nil
}

func (d *itandiDriver) Availability(ctx context.Context, page *rod.Page, name, room string) (Availability, error) {
	page = page.Context(ctx)
	room = jptext.Fold(strings.TrimSpace(room))
	if err := page.Timeout(d.nav).Navigate(itandiSearchURL); err != nil {
		return "", fmt.Errorf("navigate room list: %w", err)
	}
	if err := page.Timeout(d.nav).WaitLoad(); err != nil {
		return "", fmt.Errorf("load room list: %w", err)
	}
	info, err := page.Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	if !itandiLoggedInURL(info.URL) {
		return "", fmt.Errorf("room list redirected to %s: %w", info.URL, browser.ErrSessionLost)
	}
	if err := fillFirst(page, name, `input[name="building_name:match"]`); err != nil {
		return "", fmt.Errorf("building name field: %w", err)
	}
	if room != "" {
		if el := firstHit(page, `input[name="room_number:match"]`); el != nil {
			if err := el.Input(room); err != nil {
				return "", fmt.Errorf("room number field: %w", err)
			}
		}
	}
	btn := firstHit(page, `button.ListSearchButton[type="submit"]`, `button[type="submit"]`)
	if btn == nil {
		return "", fmt.Errorf("search button not found")
	}
	wait := page.Timeout(settleTimeout).WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("run search: %w", err)
	}
	wait()
	body, err := pageText(page)
	if err != nil {
		return "", err
	}
	return itandiAvailability(body, room), nil
}
