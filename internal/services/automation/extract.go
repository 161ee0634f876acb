// -----------------------------------------------------------------------
// Customer Extraction - Search the portal and read customer contact data
// -----------------------------------------------------------------------

package automation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fieldreach/fieldreach/internal/models"
)

// ExtractCustomerData searches the portal for the property's address and
// reads the customer's name, phone and email. The shared browser context for
// the snapshot is reused across calls, and searches are rate limited.
func (s *Service) ExtractCustomerData(ctx context.Context, snapshot *models.SessionSnapshot, property *models.Property) (*models.ExtractedCustomerData, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	browserCtx, err := s.acquireContext(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	if err := s.ensureSearchReady(browserCtx, snapshot); err != nil {
		return nil, err
	}

	if err := s.fillAddress(browserCtx, property); err != nil {
		return nil, err
	}

	if err := s.resolver.click(browserCtx, "search_submit", s.profile.Field("search_submit")); err != nil {
		return nil, err
	}

	if err := s.resolver.waitForQuiescence(browserCtx, s.config.QuietWindow, s.config.AutomationTimeout); err != nil {
		return nil, err
	}

	// A login prompt appearing after submit means the shared session went
	// stale mid-batch. The context is poisoned; drop it so the next caller
	// does not inherit the dead state.
	prompt, err := s.loginPromptVisible(browserCtx)
	if err != nil {
		return nil, err
	}
	if prompt {
		s.dropContext(snapshot)
		return nil, &models.SessionExpiredError{Reason: "login prompt appeared after search submission"}
	}

	data, err := s.readResults(browserCtx)
	if err != nil {
		return nil, err
	}

	if data.IsEmpty() {
		s.logger.Debug().
			Str("property_id", property.ID).
			Str("street", property.Street).
			Msg("No customer data extracted for address")
		return nil, &models.NoDataExtractedError{Address: property.Street + " " + property.Zip}
	}

	s.logger.Debug().
		Str("property_id", property.ID).
		Bool("has_name", data.CustomerName != "").
		Bool("has_phone", data.CustomerPhone != "").
		Bool("has_email", data.CustomerEmail != "").
		Msg("Customer data extracted")

	return data, nil
}

// ensureSearchReady re-validates that the browser context is sitting on a
// mounted customer-search form, re-navigating if the page drifted since the
// last extraction.
func (s *Service) ensureSearchReady(browserCtx context.Context, snapshot *models.SessionSnapshot) error {
	ready, err := s.searchFormReady(browserCtx)
	if err != nil {
		return err
	}
	if ready {
		return nil
	}

	searchURL := s.portalURL(s.config.SearchPath)
	if err := s.navigateWithRetry(browserCtx, searchURL); err != nil {
		return err
	}
	if err := s.resolver.waitForQuiescence(browserCtx, s.config.QuietWindow, s.config.AutomationTimeout); err != nil {
		return err
	}

	ready, err = s.searchFormReady(browserCtx)
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
	if prompt {
		s.dropContext(snapshot)
		return &models.SessionExpiredError{Reason: "portal demanded login when opening customer search"}
	}

	pageURL, _ := s.currentURL(browserCtx)
	return &models.AccessDeniedError{URL: pageURL}
}

// fillAddress writes the property's address into the search form. The portal
// has shipped two layouts: a single full-address field, and separate
// street-number / street-name fields. Try the single field first and fall
// back to the split pair; only when neither layout is present is the address
// control genuinely missing.
func (s *Service) fillAddress(browserCtx context.Context, property *models.Property) error {
	fullErr := s.resolver.fillWithRetry(browserCtx, "full_address", s.profile.Field("full_address"), property.Street)
	if fullErr == nil {
		return s.fillZip(browserCtx, property)
	}
	if !models.AsError[*models.FieldNotFoundError](fullErr) {
		return fullErr
	}

	number, name := splitStreet(property.Street)
	numberErr := s.resolver.fillWithRetry(browserCtx, "street_number", s.profile.Field("street_number"), number)
	nameErr := s.resolver.fillWithRetry(browserCtx, "street_name", s.profile.Field("street_name"), name)

	if numberErr == nil && nameErr == nil {
		return s.fillZip(browserCtx, property)
	}

	if models.AsError[*models.FieldNotFoundError](numberErr) || models.AsError[*models.FieldNotFoundError](nameErr) {
		return &models.FieldNotFoundError{
			Field: "address",
			Tried: []string{"full_address", "street_number+street_name"},
		}
	}
	if numberErr != nil {
		return numberErr
	}
	return nameErr
}

func (s *Service) fillZip(browserCtx context.Context, property *models.Property) error {
	return s.resolver.fillWithRetry(browserCtx, "zip", s.profile.Field("zip"), property.Zip)
}

// readResults reads the customer fields from the results panel, first via
// the selector candidates, then via a goquery parse of the panel's HTML for
// portals that render results without stable selectors.
func (s *Service) readResults(browserCtx context.Context) (*models.ExtractedCustomerData, error) {
	data := &models.ExtractedCustomerData{}

	var err error
	if data.CustomerName, err = s.resolver.firstNonEmpty(browserCtx, s.profile.ResultCandidates("customer_name")); err != nil {
		return nil, err
	}
	if data.CustomerPhone, err = s.resolver.firstNonEmpty(browserCtx, s.profile.ResultCandidates("customer_phone")); err != nil {
		return nil, err
	}
	if data.CustomerEmail, err = s.resolver.firstNonEmpty(browserCtx, s.profile.ResultCandidates("customer_email")); err != nil {
		return nil, err
	}

	if !data.IsEmpty() {
		return data, nil
	}

	// A failure reading the panel is a browser problem, not an empty
	// result; surfacing it keeps it from being reported as a no-data miss.
	html, err := s.resultsPanelHTML(browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to read results panel: %w", err)
	}
	if html == "" {
		return data, nil
	}

	parsed, perr := parseResultsHTML(html)
	if perr != nil {
		s.logger.Warn().Err(perr).Msg("Results panel HTML parse failed")
		return data, nil
	}
	return parsed, nil
}

// resultsPanelHTML returns the outer HTML of the first matching results
// panel, or empty when none is present.
func (s *Service) resultsPanelHTML(browserCtx context.Context) (string, error) {
	expr := fmt.Sprintf(`(() => {
	for (const sel of %s) {
		let el = null;
		try { el = document.querySelector(sel); } catch (e) { continue; }
		if (el) return el.outerHTML;
	}
	return '';
})()`, jsStringArray(s.profile.ResultCandidates("panel")))

	var html string
	if err := s.eval(browserCtx, expr, &html); err != nil {
		return "", err
	}
	return html, nil
}

var phonePattern = regexp.MustCompile(`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)

// parseResultsHTML pulls customer fields out of a results panel without
// relying on the selector profile: mailto/tel links first, then pattern
// matching over the panel text.
func parseResultsHTML(html string) (*models.ExtractedCustomerData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	data := &models.ExtractedCustomerData{}

	doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		data.CustomerEmail = strings.TrimPrefix(href, "mailto:")
		return false
	})
	doc.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		data.CustomerPhone = strings.TrimPrefix(href, "tel:")
		return false
	})

	text := doc.Text()
	if data.CustomerPhone == "" {
		data.CustomerPhone = phonePattern.FindString(text)
	}

	// The name is conventionally the first emphasized cell in the panel.
	for _, sel := range []string{"th", "strong", "b", "h1, h2, h3, h4"} {
		if data.CustomerName != "" {
			break
		}
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			candidate := strings.TrimSpace(s.Text())
			if candidate != "" {
				data.CustomerName = candidate
				return false
			}
			return true
		})
	}

	return data, nil
}
