// -----------------------------------------------------------------------
// Typed error taxonomy for session, vault, and automation failures
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
	"strings"
)

// AsError reports whether err's chain contains an error of type T.
func AsError[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// ConfigurationError reports a missing or invalid operator setting. Fatal;
// never retried.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// DecryptionError reports a session blob that could not be decrypted:
// corrupted ciphertext or a key different from the one that produced it.
// Fatal for that session.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("session blob decryption failed: %s", e.Reason)
}

// LoginRequiredError reports that the portal rejected credentials or never
// presented the authenticated landing form. The session must be recreated.
type LoginRequiredError struct {
	Reason string
	URL    string
}

func (e *LoginRequiredError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("portal login required: %s (page: %s)", e.Reason, e.URL)
	}
	return fmt.Sprintf("portal login required: %s", e.Reason)
}

// AccessDeniedError reports an authenticated session that landed somewhere
// other than customer search: the account lacks the required entitlement.
// Never retried.
type AccessDeniedError struct {
	URL string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("portal access denied: authenticated but customer search is not available (page: %s)", e.URL)
}

// SessionExpiredError reports a shared session that went stale mid-use: a
// login prompt appeared where an authenticated page was expected.
type SessionExpiredError struct {
	Reason string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("portal session expired: %s", e.Reason)
}

// FieldNotFoundError reports that no candidate selector strategy matched a
// required form control. Item-level; the batch continues.
type FieldNotFoundError struct {
	Field string
	Tried []string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found on page (tried: %s)", e.Field, strings.Join(e.Tried, ", "))
}

// NoDataExtractedError reports a structurally successful search that yielded
// no customer fields. Item-level; the batch continues.
type NoDataExtractedError struct {
	Address string
}

func (e *NoDataExtractedError) Error() string {
	return fmt.Sprintf("no customer data extracted for address %q", e.Address)
}

// sessionFailureMarkers are the message fragments that identify a
// session-level failure when only wrapped text survives. The typed checks in
// IsSessionFailure run first; this list is the safety net for call sites
// that flatten errors to strings.
var sessionFailureMarkers = []string{
	"session expired",
	"login required",
	"access denied",
	"not authenticated",
}

// IsSessionFailure reports whether err means the shared portal session is
// invalid for every remaining item, as opposed to an address-specific
// problem. Drives the orchestrator's fail-fast batch abort.
func IsSessionFailure(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case AsError[*SessionExpiredError](err):
		return true
	case AsError[*LoginRequiredError](err):
		return true
	case AsError[*AccessDeniedError](err):
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range sessionFailureMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
