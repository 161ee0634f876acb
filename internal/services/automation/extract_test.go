package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResults_SelectorHitSkipsPanelFallback(t *testing.T) {
	s := testService(t)
	fake := &fakeEval{responses: []interface{}{"Jane Doe", "(404) 555-0134", "jane@example.com"}}
	s.eval = fake.eval
	s.resolver = newResolver(fake.eval)

	data, err := s.readResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", data.CustomerName)
	assert.Equal(t, "(404) 555-0134", data.CustomerPhone)
	assert.Equal(t, "jane@example.com", data.CustomerEmail)
	assert.Len(t, fake.exprs, 3, "the panel HTML must not be read when selectors hit")
}

func TestReadResults_PanelReadFailureSurfaces(t *testing.T) {
	s := testService(t)
	cause := errors.New("target crashed")
	fake := &fakeEval{responses: []interface{}{"", "", "", cause}}
	s.eval = fake.eval
	s.resolver = newResolver(fake.eval)

	_, err := s.readResults(context.Background())
	require.Error(t, err, "a broken panel read must not look like an empty result")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to read results panel")
}

func TestReadResults_FallbackParsesPanelHTML(t *testing.T) {
	s := testService(t)
	panel := `<div><strong>Jane Doe</strong><a href="mailto:jane@example.com">email</a><span>404.555.0134</span></div>`
	fake := &fakeEval{responses: []interface{}{"", "", "", panel}}
	s.eval = fake.eval
	s.resolver = newResolver(fake.eval)

	data, err := s.readResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", data.CustomerName)
	assert.Equal(t, "jane@example.com", data.CustomerEmail)
	assert.Equal(t, "404.555.0134", data.CustomerPhone)
}

func TestReadResults_EmptyPanelReturnsEmptyData(t *testing.T) {
	s := testService(t)
	fake := &fakeEval{responses: []interface{}{"", "", "", ""}}
	s.eval = fake.eval
	s.resolver = newResolver(fake.eval)

	data, err := s.readResults(context.Background())
	require.NoError(t, err)
	assert.True(t, data.IsEmpty())
}
