package automation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEval is a scripted evaluator: each call consumes the next response.
type fakeEval struct {
	responses []interface{}
	exprs     []string
}

func (f *fakeEval) eval(ctx context.Context, expr string, out interface{}) error {
	f.exprs = append(f.exprs, expr)
	if len(f.responses) == 0 {
		return errors.New("no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]

	if err, ok := resp.(error); ok {
		return err
	}
	switch v := out.(type) {
	case *bool:
		*v = resp.(bool)
	case *string:
		*v = resp.(string)
	default:
		data, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, out)
	}
	return nil
}

func testCandidates() FieldCandidates {
	return FieldCandidates{
		Attributes: []string{`input[name="zip"]`},
		Labels:     []string{"ZIP"},
	}
}

func TestResolve_FirstStrategyShortCircuits(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{true}}
	r := newResolver(fake.eval)

	selector, err := r.resolve(context.Background(), "zip", testCandidates())
	require.NoError(t, err)
	assert.Contains(t, selector, "data-fr-target")
	assert.Len(t, fake.exprs, 1, "later strategies must not run after a match")
}

func TestResolve_ThirdStrategyWins(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{false, false, true}}
	r := newResolver(fake.eval)

	selector, err := r.resolve(context.Background(), "zip", testCandidates())
	require.NoError(t, err)
	assert.Contains(t, selector, "data-fr-target")
	require.Len(t, fake.exprs, 3)

	// Strategy order is attribute selectors, exact labels, partial labels.
	assert.Contains(t, fake.exprs[0], `input[name=\"zip\"]`)
	assert.Contains(t, fake.exprs[1], "includes(text)")
	assert.Contains(t, fake.exprs[2], "toLowerCase")
}

func TestResolve_NoMatchReturnsFieldNotFound(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{false, false, false}}
	r := newResolver(fake.eval)

	_, err := r.resolve(context.Background(), "zip", testCandidates())
	require.Error(t, err)

	var fnf *models.FieldNotFoundError
	require.ErrorAs(t, err, &fnf)
	assert.Equal(t, "zip", fnf.Field)
	assert.Equal(t, []string{"attribute-exact", "label-exact", "label-partial"}, fnf.Tried)
}

func TestResolve_SkipsStrategiesWithoutCandidates(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{false}}
	r := newResolver(fake.eval)

	_, err := r.resolve(context.Background(), "btn", FieldCandidates{Attributes: []string{"button"}})
	require.Error(t, err)

	var fnf *models.FieldNotFoundError
	require.ErrorAs(t, err, &fnf)
	assert.Equal(t, []string{"attribute-exact"}, fnf.Tried, "label strategies need label candidates")
}

func TestFillWithRetry_RetriesWhenValueDoesNotStick(t *testing.T) {
	// attempt 1: resolve hit, write does not stick; attempt 2: resolve hit, write sticks
	fake := &fakeEval{responses: []interface{}{true, false, true, true}}
	r := newResolver(fake.eval)

	err := r.fillWithRetry(context.Background(), "zip", testCandidates(), "30301")
	require.NoError(t, err)
	assert.Len(t, fake.exprs, 4)
}

func TestFillWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{true, false, true, false, true, false}}
	r := newResolver(fake.eval)

	err := r.fillWithRetry(context.Background(), "zip", testCandidates(), "30301")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestFillWithRetry_MissingFieldFailsWithoutRetry(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{false, false, false}}
	r := newResolver(fake.eval)

	err := r.fillWithRetry(context.Background(), "zip", testCandidates(), "30301")
	var fnf *models.FieldNotFoundError
	require.ErrorAs(t, err, &fnf)
	assert.Empty(t, fake.responses, "no extra evaluations after the chain is exhausted")
}

func TestSetValue_UsesNativeSetterAndEvents(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{true}}
	r := newResolver(fake.eval)

	ok, err := r.setValue(context.Background(), `[data-fr-target="x"]`, "123 Main St")
	require.NoError(t, err)
	assert.True(t, ok)

	expr := fake.exprs[0]
	assert.Contains(t, expr, "getOwnPropertyDescriptor")
	for _, event := range []string{"'input'", "'change'", "'blur'"} {
		assert.Contains(t, expr, event)
	}
}

func TestSelectOption_PicksMatchingOption(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{
		true, // resolve: attribute strategy hits
		true, // open click
		true, // overlay settle
		map[string]interface{}{"ok": true, "options": []string{}},
	}}
	r := newResolver(fake.eval)

	err := r.selectOption(context.Background(), "state", testCandidates(), "Georgia", 10*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, fake.exprs, 4)

	// The control is clicked open and the overlay gets a bounded settle
	// wait before any option is matched.
	assert.Contains(t, fake.exprs[1], "el.click()")
	assert.Contains(t, fake.exprs[2], "MutationObserver")
	assert.Contains(t, fake.exprs[3], "SELECT")
}

func TestSelectOption_MatchesCaseInsensitively(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{
		true,
		true,
		true,
		map[string]interface{}{"ok": true, "options": []string{}},
	}}
	r := newResolver(fake.eval)

	err := r.selectOption(context.Background(), "state", testCandidates(), "georgia", 10*time.Millisecond, 50*time.Millisecond)
	require.NoError(t, err)

	// Both sides of the comparison are trimmed and lowercased, so
	// "georgia" matches an option rendered as "GEORGIA".
	matcher := fake.exprs[3]
	assert.Contains(t, matcher, `"georgia"`)
	assert.Contains(t, matcher, ".trim().toLowerCase()")
	assert.NotContains(t, matcher, "=== want || (opt.textContent || '').trim() === want",
		"matching must not be strict case-sensitive equality")
}

func TestSelectOption_MissEnumeratesOptionsAndCloses(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{
		true,
		true,
		true,
		map[string]interface{}{"ok": false, "options": []string{"Alabama", "Florida"}},
	}}
	r := newResolver(fake.eval)

	err := r.selectOption(context.Background(), "state", testCandidates(), "Georgia", 10*time.Millisecond, 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Alabama")
	assert.Contains(t, err.Error(), "Florida")

	// A miss closes the dropdown again instead of leaving it open.
	assert.Contains(t, fake.exprs[3], "Escape")
}

func TestFirstNonEmpty(t *testing.T) {
	fake := &fakeEval{responses: []interface{}{"Jane Doe"}}
	r := newResolver(fake.eval)

	value, err := r.firstNonEmpty(context.Background(), []string{".customer-name"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", value)
	assert.True(t, strings.Contains(fake.exprs[0], "mailto:"))
}
