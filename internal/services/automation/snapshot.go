// -----------------------------------------------------------------------
// Session Snapshot - Capture and restore authenticated browser state
// -----------------------------------------------------------------------

package automation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/fieldreach/fieldreach/internal/models"
)

// captureSnapshot reads the browser context's cookies and the current
// origin's localStorage into a serializable snapshot.
func captureSnapshot(ctx context.Context, eval evaluator) (*models.SessionSnapshot, error) {
	var cookies []*network.Cookie
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	snapshot := &models.SessionSnapshot{
		Cookies: make([]models.Cookie, 0, len(cookies)),
	}
	for _, c := range cookies {
		snapshot.Cookies = append(snapshot.Cookies, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite.String(),
		})
	}

	origin, entries, err := readLocalStorage(ctx, eval)
	if err != nil {
		return nil, err
	}
	if origin != "" && len(entries) > 0 {
		snapshot.Origins = append(snapshot.Origins, models.OriginStorage{
			Origin:  origin,
			Entries: entries,
		})
	}

	return snapshot, nil
}

func readLocalStorage(ctx context.Context, eval evaluator) (string, map[string]string, error) {
	var result struct {
		Origin  string            `json:"origin"`
		Entries map[string]string `json:"entries"`
	}
	expr := `(() => {
	const entries = {};
	for (let i = 0; i < localStorage.length; i++) {
		const key = localStorage.key(i);
		entries[key] = localStorage.getItem(key);
	}
	return { origin: window.location.origin, entries: entries };
})()`
	if err := eval(ctx, expr, &result); err != nil {
		return "", nil, fmt.Errorf("failed to read localStorage: %w", err)
	}
	return result.Origin, result.Entries, nil
}

// restoreSnapshot injects the snapshot's cookies into the browser context
// and, after navigation to each stored origin, its localStorage entries.
// Cookies must land before any portal navigation or the first request goes
// out unauthenticated.
func restoreSnapshot(ctx context.Context, eval evaluator, snapshot *models.SessionSnapshot) error {
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range snapshot.Cookies {
			setCookie := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(epochTime(c.Expires))
				setCookie = setCookie.WithExpires(&expires)
			}
			if err := setCookie.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		return err
	}

	for _, origin := range snapshot.Origins {
		if err := chromedp.Run(ctx, chromedp.Navigate(origin.Origin)); err != nil {
			return fmt.Errorf("failed to open origin %s for storage restore: %w", origin.Origin, err)
		}
		if err := writeLocalStorage(ctx, eval, origin.Entries); err != nil {
			return err
		}
	}

	return nil
}

func writeLocalStorage(ctx context.Context, eval evaluator, entries map[string]string) error {
	expr := fmt.Sprintf(`(() => {
	const entries = %s;
	for (const key of Object.keys(entries)) {
		localStorage.setItem(key, entries[key]);
	}
	return true;
})()`, mustJSONObject(entries))

	var ok bool
	if err := eval(ctx, expr, &ok); err != nil {
		return fmt.Errorf("failed to write localStorage: %w", err)
	}
	return nil
}

// snapshotFingerprint derives a stable identifier from the snapshot's
// authentication material. Two identical snapshots always map to the same
// browser context, which is what makes session affinity work across the
// items of a run.
func snapshotFingerprint(snapshot *models.SessionSnapshot) string {
	h := sha256.New()

	cookies := make([]models.Cookie, len(snapshot.Cookies))
	copy(cookies, snapshot.Cookies)
	sort.Slice(cookies, func(i, j int) bool {
		if cookies[i].Domain != cookies[j].Domain {
			return cookies[i].Domain < cookies[j].Domain
		}
		return cookies[i].Name < cookies[j].Name
	})
	for _, c := range cookies {
		fmt.Fprintf(h, "%s|%s|%s\n", c.Domain, c.Name, c.Value)
	}

	for _, origin := range snapshot.Origins {
		keys := make([]string, 0, len(origin.Entries))
		for k := range origin.Entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "%s|%s|%s\n", origin.Origin, k, origin.Entries[k])
		}
	}

	return hex.EncodeToString(h.Sum(nil))[:16]
}
