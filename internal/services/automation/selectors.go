// -----------------------------------------------------------------------
// Selector Resolver - Ordered fallback strategies for locating controls
// -----------------------------------------------------------------------

package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/google/uuid"
)

// evaluator runs a JavaScript expression in the page and decodes the result
// into out. Promises are awaited. It is the only seam between the resolver
// and the browser, which keeps the strategy chain testable without Chrome.
type evaluator func(ctx context.Context, expression string, out interface{}) error

// chromedpEvaluator is the production evaluator backed by chromedp.
func chromedpEvaluator(ctx context.Context, expression string, out interface{}) error {
	return chromedp.Run(ctx, chromedp.Evaluate(expression, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

// jsStringArray encodes values as a JavaScript array literal.
func jsStringArray(values []string) string {
	data, _ := json.Marshal(values)
	return string(data)
}

// selectorStrategy is one way of locating a form control. Strategies are
// evaluated in order and short-circuit on the first match; a strategy that
// does not match leaves the page untouched. A match tags the element with a
// data attribute token so later actions can address it directly.
type selectorStrategy struct {
	name string
	expr func(c FieldCandidates, token string) string
}

// strategyChain is the fallback order every control lookup walks. The order
// is part of the portal contract: precise attribute selectors win over label
// text, and exact label text wins over partial matches.
var strategyChain = []selectorStrategy{
	{name: "attribute-exact", expr: attributeExactExpr},
	{name: "label-exact", expr: labelExactExpr},
	{name: "label-partial", expr: labelPartialExpr},
}

func attributeExactExpr(c FieldCandidates, token string) string {
	return fmt.Sprintf(`(() => {
	const selectors = %s;
	for (const sel of selectors) {
		let el = null;
		try { el = document.querySelector(sel); } catch (e) { continue; }
		if (el) { el.setAttribute('data-fr-target', %s); return true; }
	}
	return false;
})()`, jsStringArray(c.Attributes), jsString(token))
}

func labelExactExpr(c FieldCandidates, token string) string {
	return fmt.Sprintf(`(() => {
	const wanted = %s;
	for (const lab of document.querySelectorAll('label')) {
		const text = (lab.textContent || '').trim();
		if (!wanted.includes(text)) continue;
		let el = lab.htmlFor ? document.getElementById(lab.htmlFor) : null;
		if (!el) el = lab.querySelector('input, select, textarea');
		if (el) { el.setAttribute('data-fr-target', %s); return true; }
	}
	return false;
})()`, jsStringArray(c.Labels), jsString(token))
}

func labelPartialExpr(c FieldCandidates, token string) string {
	return fmt.Sprintf(`(() => {
	const wanted = %s.map(w => w.toLowerCase());
	for (const lab of document.querySelectorAll('label')) {
		const text = (lab.textContent || '').trim().toLowerCase();
		if (!wanted.some(w => text.includes(w))) continue;
		let el = lab.htmlFor ? document.getElementById(lab.htmlFor) : null;
		if (!el) el = lab.querySelector('input, select, textarea');
		if (el) { el.setAttribute('data-fr-target', %s); return true; }
	}
	return false;
})()`, jsStringArray(c.Labels), jsString(token))
}

// resolver locates and manipulates portal controls through an evaluator.
type resolver struct {
	eval evaluator
}

func newResolver(eval evaluator) *resolver {
	return &resolver{eval: eval}
}

// resolve walks the strategy chain for a logical field and returns the CSS
// selector addressing the tagged control. Returns FieldNotFoundError naming
// every strategy tried when no strategy matches.
func (r *resolver) resolve(ctx context.Context, field string, candidates FieldCandidates) (string, error) {
	token := "fr-" + uuid.New().String()[:8]
	tried := make([]string, 0, len(strategyChain))

	for _, strategy := range strategyChain {
		if strategy.name == "attribute-exact" && len(candidates.Attributes) == 0 {
			continue
		}
		if strategy.name != "attribute-exact" && len(candidates.Labels) == 0 {
			continue
		}
		tried = append(tried, strategy.name)

		var found bool
		if err := r.eval(ctx, strategy.expr(candidates, token), &found); err != nil {
			return "", fmt.Errorf("selector strategy %s failed for field %s: %w", strategy.name, field, err)
		}
		if found {
			return fmt.Sprintf(`[data-fr-target=%q]`, token), nil
		}
	}

	return "", &models.FieldNotFoundError{Field: field, Tried: tried}
}

// setValue writes value into the control through the element prototype's
// native value setter, then fires input, change and blur so reactive UI
// frameworks observe the change. Direct `el.value = x` assignments are
// invisible to frameworks that patch the value property.
func (r *resolver) setValue(ctx context.Context, selector, value string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype :
		el instanceof HTMLSelectElement ? HTMLSelectElement.prototype : HTMLInputElement.prototype;
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) { desc.set.call(el, %s); } else { el.value = %s; }
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	el.dispatchEvent(new Event('blur', { bubbles: true }));
	return el.value === %s;
})()`, jsString(selector), jsString(value), jsString(value), jsString(value))

	var ok bool
	if err := r.eval(ctx, expr, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// fillWithRetry resolves the field and writes the value, re-resolving and
// retrying with exponential backoff when the write does not stick. Reactive
// forms occasionally re-render mid-write and detach the tagged element.
func (r *resolver) fillWithRetry(ctx context.Context, field string, candidates FieldCandidates, value string) error {
	const maxAttempts = 3
	backoff := 250 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		selector, err := r.resolve(ctx, field, candidates)
		if err != nil {
			return err
		}

		ok, err := r.setValue(ctx, selector, value)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("value did not stick on field %s", field)
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return fmt.Errorf("failed to fill field %s after %d attempts: %w", field, maxAttempts, lastErr)
}

// selectOption picks a dropdown option by value or visible text. The control
// is opened first and the options overlay gets a bounded settle wait, since
// custom dropdowns render their options only after the click. Matching is on
// trimmed text, case-insensitive. On a miss the dropdown is closed again and
// the error enumerates the options actually present so the operator can fix
// the selector profile.
func (r *resolver) selectOption(ctx context.Context, field string, candidates FieldCandidates, value string, quietWindow, maxWait time.Duration) error {
	selector, err := r.resolve(ctx, field, candidates)
	if err != nil {
		return err
	}

	openExpr := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.click();
	return true;
})()`, jsString(selector))

	var opened bool
	if err := r.eval(ctx, openExpr, &opened); err != nil {
		return err
	}
	if !opened {
		return fmt.Errorf("dropdown %s vanished before it could be opened", field)
	}

	if err := r.waitForQuiescence(ctx, quietWindow, maxWait); err != nil {
		return err
	}

	matchExpr := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return { ok: false, options: [] };
	const want = %s.trim().toLowerCase();
	const close = () => {
		el.dispatchEvent(new KeyboardEvent('keydown', { key: 'Escape', bubbles: true }));
		el.blur && el.blur();
	};
	if (el.tagName === 'SELECT') {
		for (const opt of el.options) {
			const text = (opt.textContent || '').trim().toLowerCase();
			if (opt.value.trim().toLowerCase() === want || text === want) {
				el.value = opt.value;
				el.dispatchEvent(new Event('change', { bubbles: true }));
				return { ok: true, options: [] };
			}
		}
		close();
		return { ok: false, options: Array.from(el.options).map(o => (o.textContent || '').trim()) };
	}
	const rendered = Array.from(document.querySelectorAll('[role="option"], [role="listbox"] li'));
	for (const opt of rendered) {
		if ((opt.textContent || '').trim().toLowerCase() === want) {
			opt.click();
			return { ok: true, options: [] };
		}
	}
	close();
	return { ok: false, options: rendered.map(o => (o.textContent || '').trim()) };
})()`, jsString(selector), jsString(value))

	var result struct {
		OK      bool     `json:"ok"`
		Options []string `json:"options"`
	}
	if err := r.eval(ctx, matchExpr, &result); err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("option %q not found in dropdown %s (available: %v)", value, field, result.Options)
	}
	return nil
}

// click dispatches a click on the resolved control.
func (r *resolver) click(ctx context.Context, field string, candidates FieldCandidates) error {
	selector, err := r.resolve(ctx, field, candidates)
	if err != nil {
		return err
	}

	expr := fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	el.click();
	return true;
})()`, jsString(selector))

	var ok bool
	if err := r.eval(ctx, expr, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("control %s vanished before click", field)
	}
	return nil
}

// firstNonEmpty reads candidate selectors in order and returns the first
// non-empty value or text content. Empty string means no candidate matched.
func (r *resolver) firstNonEmpty(ctx context.Context, selectors []string) (string, error) {
	expr := fmt.Sprintf(`(() => {
	for (const sel of %s) {
		let el = null;
		try { el = document.querySelector(sel); } catch (e) { continue; }
		if (!el) continue;
		let text = '';
		if (el.tagName === 'A' && el.href.startsWith('mailto:')) {
			text = el.href.slice(7);
		} else if (el.tagName === 'A' && el.href.startsWith('tel:')) {
			text = el.href.slice(4);
		} else if ('value' in el && el.value) {
			text = el.value;
		} else {
			text = (el.textContent || '').trim();
		}
		if (text) return text;
	}
	return '';
})()`, jsStringArray(selectors))

	var value string
	if err := r.eval(ctx, expr, &value); err != nil {
		return "", err
	}
	return value, nil
}

// anyPresent reports whether any of the selectors matches an element.
func (r *resolver) anyPresent(ctx context.Context, selectors []string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
	for (const sel of %s) {
		try { if (document.querySelector(sel)) return true; } catch (e) {}
	}
	return false;
})()`, jsStringArray(selectors))

	var present bool
	if err := r.eval(ctx, expr, &present); err != nil {
		return false, err
	}
	return present, nil
}

// waitForQuiescence resolves once the DOM has gone quiet for quietWindow, or
// after maxWait regardless. Uses a MutationObserver inside the page so the
// settle detection sees exactly what the framework renders.
func (r *resolver) waitForQuiescence(ctx context.Context, quietWindow, maxWait time.Duration) error {
	expr := fmt.Sprintf(`new Promise((resolve) => {
	const quiet = %d;
	let timer = null;
	const obs = new MutationObserver(() => {
		if (timer) clearTimeout(timer);
		timer = setTimeout(finish, quiet);
	});
	const finish = () => { obs.disconnect(); resolve(true); };
	obs.observe(document.documentElement, { childList: true, subtree: true, attributes: true, characterData: true });
	timer = setTimeout(finish, quiet);
	setTimeout(finish, %d);
})`, quietWindow.Milliseconds(), maxWait.Milliseconds())

	var settled bool
	return r.eval(ctx, expr, &settled)
}
