// -----------------------------------------------------------------------
// Automation Client - Browser lifecycle and session-affinity contexts
// -----------------------------------------------------------------------

package automation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// Service drives the enrollment portal through chromedp. It holds at most
// one warm browser context, keyed by the snapshot fingerprint of the session
// it carries, so that the items of a run reuse the same authenticated state
// instead of restoring cookies for every address. Requesting a different
// fingerprint tears the held context down first; the service never
// multiplexes concurrent sessions. Portal searches go through a rate
// limiter so batch runs stay polite.
type Service struct {
	config   *common.PortalConfig
	logger   arbor.ILogger
	profile  *SelectorProfile
	limiter  *rate.Limiter
	eval     evaluator
	resolver *resolver

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	current     *sessionContext
	shutdown    bool
}

// sessionContext is the live browser context bound to one snapshot.
type sessionContext struct {
	fingerprint string
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewService creates the automation client. The browser allocator starts
// lazily on first use so the server can boot without Chrome installed until
// an automation operation is actually requested.
func NewService(config *common.PortalConfig, logger arbor.ILogger) (interfaces.AutomationService, error) {
	if config.BaseURL == "" {
		return nil, &models.ConfigurationError{
			Setting: "portal.base_url",
			Reason:  "no portal base URL configured",
		}
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, &models.ConfigurationError{
			Setting: "portal.base_url",
			Reason:  fmt.Sprintf("invalid URL: %v", err),
		}
	}

	profile, err := LoadProfile(config.SelectorProfile)
	if err != nil {
		return nil, err
	}

	interval := config.SearchRateLimit
	if interval <= 0 {
		interval = 2 * time.Second
	}

	s := &Service{
		config:  config,
		logger:  logger,
		profile: profile,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		eval:    chromedpEvaluator,
	}
	s.resolver = newResolver(s.eval)

	return s, nil
}

// ensureAllocator starts the shared Chrome allocator on first use.
// Must be called with s.mu held.
func (s *Service) ensureAllocator() error {
	if s.shutdown {
		return fmt.Errorf("automation service is shut down")
	}
	if s.allocCtx != nil {
		return nil
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.config.UserAgent),
	)

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)

	s.logger.Info().
		Bool("headless", s.config.Headless).
		Str("portal", s.config.BaseURL).
		Msg("Browser allocator initialized")

	return nil
}

// bindContext returns the held browser context when it carries the same
// fingerprint. A different fingerprint tears the old context down so the
// caller can open a fresh one: only one session is ever live at a time.
// Must be called with s.mu held.
func (s *Service) bindContext(fingerprint string) (context.Context, bool) {
	if s.current == nil {
		return nil, false
	}
	if s.current.fingerprint == fingerprint {
		return s.current.ctx, true
	}

	s.logger.Debug().
		Str("old_fingerprint", s.current.fingerprint).
		Str("new_fingerprint", fingerprint).
		Msg("Session changed, tearing down held browser context")

	s.current.cancel()
	s.current = nil
	return nil, false
}

// acquireContext returns the browser context for the snapshot, creating it
// and restoring the snapshot when the snapshot is new. The fingerprint check
// is what gives a run session affinity: every item that carries the same
// snapshot lands in the same authenticated browser, and a different snapshot
// replaces it.
func (s *Service) acquireContext(ctx context.Context, snapshot *models.SessionSnapshot) (context.Context, error) {
	fingerprint := snapshotFingerprint(snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureAllocator(); err != nil {
		return nil, err
	}

	if held, ok := s.bindContext(fingerprint); ok {
		return held, nil
	}

	browserCtx, browserCancel := chromedp.NewContext(s.allocCtx)

	startCtx, startCancel := context.WithTimeout(browserCtx, s.config.AutomationTimeout)
	defer startCancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		return nil, fmt.Errorf("browser context failed startup: %w", err)
	}

	if err := restoreSnapshot(browserCtx, s.eval, snapshot); err != nil {
		browserCancel()
		return nil, err
	}

	s.current = &sessionContext{fingerprint: fingerprint, ctx: browserCtx, cancel: browserCancel}

	s.logger.Debug().
		Str("fingerprint", fingerprint).
		Int("cookies", len(snapshot.Cookies)).
		Msg("Browser context created for session snapshot")

	return browserCtx, nil
}

// dropContext discards the held browser context when it belongs to the
// snapshot, forcing a fresh restore on next use. Called when the portal
// reports the session stale.
func (s *Service) dropContext(snapshot *models.SessionSnapshot) {
	fingerprint := snapshotFingerprint(snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.fingerprint == fingerprint {
		s.current.cancel()
		s.current = nil
		s.logger.Debug().Str("fingerprint", fingerprint).Msg("Browser context dropped")
	}
}

// freshContext returns a browser context not bound to any snapshot, for
// login flows that start unauthenticated.
func (s *Service) freshContext() (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureAllocator(); err != nil {
		return nil, nil, err
	}

	browserCtx, browserCancel := chromedp.NewContext(s.allocCtx)
	return browserCtx, browserCancel, nil
}

// navigateWithRetry navigates with bounded backoff. Transient navigation
// errors get retried before being reclassified by the caller.
func (s *Service) navigateWithRetry(ctx context.Context, pageURL string) error {
	const maxAttempts = 3
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		navCtx, cancel := context.WithTimeout(ctx, s.config.AutomationTimeout)
		err := chromedp.Run(navCtx, chromedp.Navigate(pageURL))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		s.logger.Warn().
			Err(err).
			Str("url", pageURL).
			Int("attempt", attempt).
			Msg("Navigation failed, retrying")

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("navigation to %s failed after %d attempts: %w", pageURL, maxAttempts, lastErr)
}

// currentURL reads the page URL from the browser context.
func (s *Service) currentURL(ctx context.Context) (string, error) {
	var pageURL string
	if err := chromedp.Run(ctx, chromedp.Location(&pageURL)); err != nil {
		return "", fmt.Errorf("failed to read page URL: %w", err)
	}
	return pageURL, nil
}

// portalURL joins a portal path onto the configured base URL.
func (s *Service) portalURL(path string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + path
}

// Shutdown releases the held browser context and the allocator.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return
	}
	s.shutdown = true

	if s.current != nil {
		s.current.cancel()
		s.current = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCtx = nil
	}

	s.logger.Info().Msg("Automation service shut down")
}
