// Package browser wraps Rod to provide a media-ready Chrome session for
// the video probe. All page interaction the probe needs goes through the
// Session: navigate, wait for an element, evaluate a script, click.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// Config configures Chrome launch options.
type Config struct {
	Headless bool          // Run in headless mode (default: true)
	Timeout  time.Duration // Default operation timeout (default: 30s)
}

// DefaultConfig returns sensible defaults for probing.
func DefaultConfig() Config {
	return Config{
		Headless: true,
		Timeout:  30 * time.Second,
	}
}

// Session wraps Rod with media-ready Chrome configuration.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

// New creates a headless Chrome ready for video playback testing.
// The browser is configured with:
//   - No sandbox (for container compatibility)
//   - Autoplay without user gesture
//   - Muted audio output
func New(cfg Config) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("mute-audio").
		Set("autoplay-policy", "no-user-gesture-required")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}

	return &Session{
		browser: browser,
		timeout: cfg.Timeout,
	}, nil
}

// Open navigates to url and blocks until the page's DOM has loaded.
func (s *Session) Open(url string) error {
	page := s.browser.MustPage()
	s.page = page

	p := page.Timeout(s.timeout)
	if err := p.Navigate(url); err != nil {
		return driverErr("navigate", fmt.Errorf("failed to open %s: %w", url, err))
	}
	if err := p.WaitLoad(); err != nil {
		return driverErr("navigate", fmt.Errorf("page %s never finished loading: %w", url, err))
	}

	// Cancel timeout so later operations and Close() work.
	page.CancelTimeout()
	return nil
}

// WaitForElement blocks until an element matching selector appears or the
// timeout expires. A timeout is reported as ErrTimeout.
func (s *Session) WaitForElement(selector string, timeout time.Duration) error {
	if s.page == nil {
		return driverErr("wait", errors.New("no page open, call Open first"))
	}
	_, err := s.page.Timeout(timeout).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("element %q did not appear within %v: %w", selector, timeout, ErrTimeout)
		}
		return driverErr("wait", err)
	}
	return nil
}

// Eval executes a JavaScript function expression in page context and
// returns its structured result. Requires Open() to have been called.
func (s *Session) Eval(js string) (gson.JSON, error) {
	if s.page == nil {
		return gson.New(nil), driverErr("eval", errors.New("no page open, call Open first"))
	}
	result, err := s.page.Timeout(s.timeout).Eval(js)
	if err != nil {
		return gson.New(nil), driverErr("eval", err)
	}
	return result.Value, nil
}

// Click finds an element matching selector and clicks it.
func (s *Session) Click(selector string) error {
	if s.page == nil {
		return driverErr("click", errors.New("no page open, call Open first"))
	}
	el, err := s.page.Timeout(s.timeout).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("element %q did not appear within %v: %w", selector, s.timeout, ErrTimeout)
		}
		return driverErr("click", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return driverErr("click", err)
	}
	return nil
}

// Close cleans up browser resources.
// Always call this (via defer) to prevent orphaned Chrome processes.
func (s *Session) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}
