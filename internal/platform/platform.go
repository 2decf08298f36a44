// Package platform drives the business-to-business listing platforms a
// management company may use: itandi BB, ielove BB and es-square. Each
// driver knows its platform's login flow and result page wording; the
// shared automation worker supplies the pages they run on.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazuki802/bukkaku/internal/browser"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/jptext"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// Availability is the verdict a platform search produced, in the wording
// staff expect to read back.
type Availability string

const (
	AvailabilityActive   Availability = "募集中"
	AvailabilityApplied  Availability = "申込あり"
	AvailabilityEnded    Availability = "募集終了"
	AvailabilityNotFound Availability = "該当なし"
)

// settleTimeout bounds the wait on result lists that update in place
// without a navigation event.
const settleTimeout = 10 * time.Second

// statusKeywords maps result page wording to an availability. A result
// list can show several phrasings at once, so ordering matters: the first
// match wins. 成約済 also covers 成約済み.
var statusKeywords = []struct {
	keyword string
	avail   Availability
}{
	{"募集中", AvailabilityActive},
	{"空室", AvailabilityActive},
	{"空き", AvailabilityActive},
	{"申込あり", AvailabilityApplied},
	{"申込中", AvailabilityApplied},
	{"申し込みあり", AvailabilityApplied},
	{"紹介不可", AvailabilityEnded},
	{"募集終了", AvailabilityEnded},
	{"成約済", AvailabilityEnded},
	{"取り下げ", AvailabilityEnded},
	{"掲載終了", AvailabilityEnded},
}

func classifyStatusText(text string) (Availability, bool) {
	for _, k := range statusKeywords {
		if strings.Contains(text, k.keyword) {
			return k.avail, true
		}
	}
	return "", false
}

var hitCountPattern = regexp.MustCompile(`([0-9]+)\s*件`)

// listNotFound reports whether a search result page says no listings
// matched. The count must literally be zero; a page showing 10件 is a hit.
func listNotFound(body string) bool {
	if strings.Contains(body, "該当する物件") && strings.Contains(body, "ありません") {
		return true
	}
	m := hitCountPattern.FindStringSubmatch(body)
	if m == nil {
		return false
	}
	n, err := strconv.Atoi(m[1])
	return err == nil && n == 0
}

// runeWindow returns the text around the first occurrence of needle,
// reaching span runes to each side of the match start.
func runeWindow(s, needle string, span int) string {
	idx := strings.Index(s, needle)
	if idx < 0 {
		return ""
	}
	runes := []rune(s)
	at := utf8.RuneCountInString(s[:idx])
	start := at - span
	if start < 0 {
		start = 0
	}
	end := at + span
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}

// firstHit returns the first element matching any selector, without
// waiting for elements that are not there.
func firstHit(page *rod.Page, selectors ...string) *rod.Element {
	for _, sel := range selectors {
		ok, el, err := page.Has(sel)
		if err != nil {
			continue
		}
		if ok {
			return el
		}
	}
	return nil
}

// fillFirst types value into the first selector that exists on the page,
// replacing whatever the field already holds.
func fillFirst(page *rod.Page, value string, selectors ...string) error {
	el := firstHit(page, selectors...)
	if el == nil {
		return fmt.Errorf("no input matched %s", strings.Join(selectors, ", "))
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("focus input: %w", err)
	}
	return el.Input(value)
}

// classifyResultPage reads the verdict off a search result list, drilling
// into the first property detail when the list itself shows no status
// wording.
func classifyResultPage(page *rod.Page, body string) (Availability, error) {
	if listNotFound(body) {
		return AvailabilityNotFound, nil
	}
	if avail, ok := classifyStatusText(body); ok {
		return avail, nil
	}
	link := firstHit(page, `a[href*="bukken"]`)
	if link == nil {
		return AvailabilityNotFound, nil
	}
	wait := page.Timeout(settleTimeout).WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("open property detail: %w", err)
	}
	wait()
	detail, err := pageText(page)
	if err != nil {
		return "", err
	}
	if avail, ok := classifyStatusText(detail); ok {
		return avail, nil
	}
	return AvailabilityNotFound, nil
}

// findInFrames extends firstHit into same-page iframes, which is where
// hosted auth forms tend to live.
func findInFrames(page *rod.Page, selectors ...string) *rod.Element {
	if el := firstHit(page, selectors...); el != nil {
		return el
	}
	iframes, err := page.Elements("iframe")
	if err != nil {
		return nil
	}
	for _, f := range iframes {
		fp, err := f.Frame()
		if err != nil {
			continue
		}
		if el := firstHit(fp, selectors...); el != nil {
			return el
		}
	}
	return nil
}

// pageText returns the page's visible text with character widths folded
// so count patterns match regardless of full-width digits.
func pageText(page *rod.Page) (string, error) {
	body, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("page body: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return "", fmt.Errorf("page text: %w", err)
	}
	return jptext.Fold(text), nil
}

// waitForURL polls the page location until it contains substr or the
// window runs out. Hosted logins hop through several redirects, so a
// single navigation wait is not enough.
func waitForURL(ctx context.Context, page *rod.Page, substr string, window time.Duration) bool {
	deadline := time.Now().Add(window)
	for {
		if info, err := page.Info(); err == nil && strings.Contains(info.URL, substr) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
}

// Drivers builds a browser driver for every platform with automation
// enabled in the config.
func Drivers(cfg *config.Config, logger *slog.Logger) []browser.Driver {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "platform")
	nav := time.Duration(cfg.Browser.NavTimeout) * time.Second
	if nav <= 0 {
		nav = 30 * time.Second
	}
	var drivers []browser.Driver
	if cfg.Platforms.Itandi.Enabled {
		drivers = append(drivers, &itandiDriver{creds: cfg.Platforms.Itandi, nav: nav, logger: logger})
	}
	if cfg.Platforms.Ielove.Enabled {
		drivers = append(drivers, &ieloveDriver{creds: cfg.Platforms.Ielove, nav: nav, logger: logger})
	}
	if cfg.Platforms.EsSquare.Enabled {
		drivers = append(drivers, &esSquareDriver{creds: cfg.Platforms.EsSquare, nav: nav, logger: logger})
	}
	return drivers
}

// queryDriver is the capability platform drivers add on top of session
// management: running one availability search on a live page.
type queryDriver interface {
	browser.Driver
	Availability(ctx context.Context, page *rod.Page, name, room string) (Availability, error)
}

// Checker answers vacancy questions by driving platform searches through
// the shared automation worker.
type Checker struct {
	manager *browser.Manager
	drivers map[store.Platform]queryDriver
	logger  *slog.Logger
}

// NewChecker wires the drivers to the automation worker they run on.
func NewChecker(m *browser.Manager, drivers []browser.Driver, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Checker{
		manager: m,
		drivers: make(map[store.Platform]queryDriver),
		logger:  logging.NewComponentLogger(logger, "platform"),
	}
	for _, d := range drivers {
		if q, ok := d.(queryDriver); ok {
			c.drivers[q.Platform()] = q
		}
	}
	return c
}

// Configured reports whether p has an automation driver.
func (c *Checker) Configured(p store.Platform) bool {
	_, ok := c.drivers[p]
	return ok
}

// Check searches p for the property and reports its advertised
// availability.
func (c *Checker) Check(ctx context.Context, p store.Platform, name, room string) (Availability, error) {
	d := c.drivers[p]
	if d == nil {
		return "", services.Wrap(services.ErrConfiguration, "platform", "check",
			fmt.Sprintf("platform %s is not configured", p), nil)
	}
	var avail Availability
	err := c.manager.WithSession(ctx, p, "availability "+string(p), func(ctx context.Context, page *rod.Page) error {
		a, err := d.Availability(ctx, page, name, room)
		if err != nil {
			return err
		}
		avail = a
		return nil
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("availability checked",
		logging.String(logging.FieldPlatform, string(p)),
		logging.String("property", name),
		logging.String("room", room),
		logging.String("result", string(avail)))
	return avail, nil
}

// searchKeyword joins the building name and room number the way platform
// free-word searches expect.
func searchKeyword(name, room string) string {
	if room == "" {
		return name
	}
	return name + " " + room
}
