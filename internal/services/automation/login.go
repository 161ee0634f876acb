// -----------------------------------------------------------------------
// Portal Login - Credential submission, IdP redirect, SSO bridge
// -----------------------------------------------------------------------

package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/models"
)

// loginState tracks where the login flow currently stands. The flow only
// moves forward; a regression (login form reappearing after the IdP hop)
// is terminal failure, not a state to retry from.
type loginState string

const (
	stateAtLoginPage      loginState = "at_login_page"
	stateCredsSubmitted   loginState = "credentials_submitted"
	stateInIdPFlow        loginState = "in_idp_login_flow"
	stateSsoBridge        loginState = "sso_bridge_in_flight"
	stateSearchReady      loginState = "at_customer_search_ready"
	stateLoginFailed      loginState = "login_failed"
	stateAccessDenied     loginState = "access_denied"
)

const (
	loginPollInterval  = 500 * time.Millisecond
	loginPollTimeout   = 30 * time.Second
	ssoBridgeAttempts  = 5
	ssoBridgeBaseDelay = time.Second
)

// classifyURL maps the page URL onto the login flow's coarse location.
func (s *Service) classifyURL(pageURL string) loginState {
	lowered := strings.ToLower(pageURL)
	switch {
	case s.config.IdPURLPattern != "" && strings.Contains(lowered, strings.ToLower(s.config.IdPURLPattern)):
		return stateInIdPFlow
	case s.config.SSOBridgePath != "" && strings.Contains(lowered, strings.ToLower(s.config.SSOBridgePath)):
		return stateSsoBridge
	case strings.Contains(lowered, strings.ToLower(s.config.LoginPath)):
		return stateAtLoginPage
	default:
		return stateCredsSubmitted
	}
}

// searchFormReady reports whether the customer-search form has actually
// mounted. Detection is structural: the right URL is not enough, because
// the portal may render the route before the form exists.
func (s *Service) searchFormReady(ctx context.Context) (bool, error) {
	addressPresent, err := s.anyFieldPresent(ctx, "full_address", "street_name")
	if err != nil {
		return false, err
	}
	if !addressPresent {
		return false, nil
	}

	zipPresent, err := s.anyFieldPresent(ctx, "zip")
	if err != nil {
		return false, err
	}
	if !zipPresent {
		return false, nil
	}

	return s.anyFieldPresent(ctx, "search_submit")
}

// anyFieldPresent checks whether any attribute candidate of the named
// fields matches, without tagging anything.
func (s *Service) anyFieldPresent(ctx context.Context, fields ...string) (bool, error) {
	var selectors []string
	for _, field := range fields {
		selectors = append(selectors, s.profile.Field(field).Attributes...)
	}
	return s.resolver.anyPresent(ctx, selectors)
}

// loginPromptVisible reports whether the page is showing a login form.
func (s *Service) loginPromptVisible(ctx context.Context) (bool, error) {
	return s.resolver.anyPresent(ctx, s.profile.LoginPrompt)
}

// LoginWithCredentials drives the full portal login flow and returns a
// snapshot of the authenticated browser state.
func (s *Service) LoginWithCredentials(ctx context.Context, username, password string) (*models.SessionSnapshot, error) {
	browserCtx, cancel, err := s.freshContext()
	if err != nil {
		return nil, err
	}
	defer cancel()

	loginURL := s.portalURL(s.config.LoginPath)
	if err := s.navigateWithRetry(browserCtx, loginURL); err != nil {
		return nil, &models.LoginRequiredError{Reason: fmt.Sprintf("portal login page unreachable: %v", err), URL: loginURL}
	}

	if err := s.resolver.waitForQuiescence(browserCtx, s.config.QuietWindow, s.config.AutomationTimeout); err != nil {
		return nil, fmt.Errorf("login page never settled: %w", err)
	}

	if err := s.resolver.fillWithRetry(browserCtx, "username", s.profile.Field("username"), username); err != nil {
		return nil, &models.LoginRequiredError{Reason: fmt.Sprintf("username field: %v", err), URL: loginURL}
	}
	if err := s.resolver.fillWithRetry(browserCtx, "password", s.profile.Field("password"), password); err != nil {
		return nil, &models.LoginRequiredError{Reason: fmt.Sprintf("password field: %v", err), URL: loginURL}
	}
	if err := s.resolver.click(browserCtx, "login_submit", s.profile.Field("login_submit")); err != nil {
		return nil, &models.LoginRequiredError{Reason: fmt.Sprintf("login submit: %v", err), URL: loginURL}
	}

	s.logger.Debug().Str("username", username).Msg("Credentials submitted, waiting for portal to settle")

	state, finalURL, err := s.awaitLoginOutcome(browserCtx)
	if err != nil {
		return nil, err
	}

	switch state {
	case stateSearchReady:
		snapshot, err := captureSnapshot(browserCtx, s.eval)
		if err != nil {
			return nil, err
		}
		s.logger.Info().
			Int("cookies", len(snapshot.Cookies)).
			Msg("Portal login succeeded, session snapshot captured")
		return snapshot, nil
	case stateAccessDenied:
		return nil, &models.AccessDeniedError{URL: finalURL}
	default:
		return nil, &models.LoginRequiredError{
			Reason: "credentials rejected or customer-search form never appeared",
			URL:    finalURL,
		}
	}
}

// awaitLoginOutcome polls the page after credential submission until the
// customer-search form mounts, the login form reappears, or the window
// closes. The SSO bridge hop between the IdP and the portal occasionally
// stalls; it gets bounded reload attempts with increasing backoff before
// the flow is declared failed.
func (s *Service) awaitLoginOutcome(browserCtx context.Context) (loginState, string, error) {
	state := stateCredsSubmitted
	bridgeAttempts := 0
	bridgeDeadline := time.Time{}
	finalURL := ""

	settled, err := common.PollUntil(browserCtx, loginPollInterval, loginPollTimeout, func(ctx context.Context) (bool, error) {
		pageURL, err := s.currentURL(browserCtx)
		if err != nil {
			return false, err
		}
		finalURL = pageURL

		location := s.classifyURL(pageURL)

		switch location {
		case stateInIdPFlow:
			if state != stateInIdPFlow {
				s.logger.Debug().Str("url", pageURL).Msg("Redirected into identity provider login flow")
			}
			state = stateInIdPFlow
			return false, nil

		case stateSsoBridge:
			if state != stateSsoBridge {
				s.logger.Debug().Str("url", pageURL).Msg("SSO bridge in flight")
				state = stateSsoBridge
				bridgeDeadline = time.Now().Add(ssoBridgeBaseDelay)
			}
			// A stalled bridge gets a bounded number of reloads with
			// increasing patience between them.
			if time.Now().After(bridgeDeadline) {
				bridgeAttempts++
				if bridgeAttempts >= ssoBridgeAttempts {
					return false, &models.LoginRequiredError{
						Reason: fmt.Sprintf("SSO bridge stalled after %d reloads", bridgeAttempts),
						URL:    pageURL,
					}
				}
				bridgeDeadline = time.Now().Add(ssoBridgeBaseDelay * time.Duration(bridgeAttempts+1))
				s.logger.Warn().
					Int("attempt", bridgeAttempts).
					Str("url", pageURL).
					Msg("SSO bridge stalled, reloading")
				if err := s.navigateWithRetry(browserCtx, pageURL); err != nil {
					return false, err
				}
			}
			return false, nil

		case stateAtLoginPage:
			// Back at the login form after submitting means rejection,
			// but only once we have left it at least once.
			if state == stateInIdPFlow || state == stateSsoBridge {
				state = stateLoginFailed
				return true, nil
			}
			return false, nil

		default:
			ready, err := s.searchFormReady(browserCtx)
			if err != nil {
				return false, err
			}
			if ready {
				state = stateSearchReady
				return true, nil
			}
			return false, nil
		}
	})
	if err != nil {
		return state, finalURL, err
	}

	if settled {
		return state, finalURL, nil
	}

	// Poll timed out. Authenticated but never reached customer search means
	// the account lacks the entitlement; still on the login or IdP page
	// means the credentials never worked.
	switch state {
	case stateCredsSubmitted:
		prompt, perr := s.loginPromptVisible(browserCtx)
		if perr == nil && !prompt {
			return stateAccessDenied, finalURL, nil
		}
		return stateLoginFailed, finalURL, nil
	default:
		return stateLoginFailed, finalURL, nil
	}
}

// ValidateSnapshot restores the snapshot and checks, read-only, that the
// portal still accepts it.
func (s *Service) ValidateSnapshot(ctx context.Context, snapshot *models.SessionSnapshot) error {
	browserCtx, err := s.acquireContext(ctx, snapshot)
	if err != nil {
		return err
	}

	searchURL := s.portalURL(s.config.SearchPath)
	if err := s.navigateWithRetry(browserCtx, searchURL); err != nil {
		return err
	}
	if err := s.resolver.waitForQuiescence(browserCtx, s.config.QuietWindow, s.config.AutomationTimeout); err != nil {
		return err
	}

	ready, err := s.searchFormReady(browserCtx)
	if err != nil {
		return err
	}
	if ready {
		return nil
	}

	prompt, err := s.loginPromptVisible(browserCtx)
	if err != nil {
		return err
	}

	s.dropContext(snapshot)

	if prompt {
		return &models.SessionExpiredError{Reason: "portal presented a login prompt for the stored session"}
	}

	pageURL, _ := s.currentURL(browserCtx)
	return &models.AccessDeniedError{URL: pageURL}
}
