package interfaces

import (
	"context"

	"github.com/fieldreach/fieldreach/internal/models"
)

// AutomationService drives a real browser against the enrollment portal.
// Implementations own browser lifecycle and keep one warm browser context
// for the most recently used session snapshot, so that sequential
// extractions reuse the same authenticated state; a different snapshot
// replaces the held context.
type AutomationService interface {
	// LoginWithCredentials performs the full portal login flow, including the
	// identity provider redirect and the cross-domain SSO bridge, and returns
	// a snapshot of the authenticated browser state. Returns a typed error
	// (LoginRequiredError, AccessDeniedError) when the flow does not end at
	// the customer search page.
	LoginWithCredentials(ctx context.Context, username, password string) (*models.SessionSnapshot, error)

	// ValidateSnapshot restores the snapshot into a browser context and
	// checks, without side effects, that the portal still accepts it.
	// Returns SessionExpiredError or LoginRequiredError when it does not.
	ValidateSnapshot(ctx context.Context, snapshot *models.SessionSnapshot) error

	// ExtractCustomerData searches the portal for the property's customer and
	// extracts the customer detail fields. Address-level misses surface as
	// NoDataExtractedError or FieldNotFoundError; authentication losses
	// surface as SessionExpiredError / LoginRequiredError / AccessDeniedError.
	ExtractCustomerData(ctx context.Context, snapshot *models.SessionSnapshot, property *models.Property) (*models.ExtractedCustomerData, error)

	// Shutdown releases the held browser context and the allocator.
	Shutdown()
}
