package automation

import (
	"context"
	"testing"

	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindContext_SameFingerprintReusesHeldContext(t *testing.T) {
	s := testService(t)

	held := context.Background()
	canceled := false
	s.current = &sessionContext{fingerprint: "fp-a", ctx: held, cancel: func() { canceled = true }}

	got, ok := s.bindContext("fp-a")
	assert.True(t, ok)
	assert.Equal(t, held, got)
	assert.False(t, canceled, "reuse must not touch the held context")
}

func TestBindContext_DifferentFingerprintTearsDownHeldSession(t *testing.T) {
	s := testService(t)

	canceled := false
	s.current = &sessionContext{fingerprint: "fp-a", ctx: context.Background(), cancel: func() { canceled = true }}

	_, ok := s.bindContext("fp-b")
	assert.False(t, ok)
	assert.True(t, canceled, "the old session's browser context must be cancelled")
	assert.Nil(t, s.current, "only one session is ever held")
}

func TestBindContext_NoHeldContext(t *testing.T) {
	s := testService(t)

	_, ok := s.bindContext("fp-a")
	assert.False(t, ok)
}

func TestDropContext_OnlyDropsMatchingSnapshot(t *testing.T) {
	s := testService(t)

	a := &models.SessionSnapshot{Cookies: []models.Cookie{{Name: "auth", Value: "a", Domain: "portal.example.com"}}}
	b := &models.SessionSnapshot{Cookies: []models.Cookie{{Name: "auth", Value: "b", Domain: "portal.example.com"}}}

	canceled := false
	s.current = &sessionContext{fingerprint: snapshotFingerprint(a), ctx: context.Background(), cancel: func() { canceled = true }}

	s.dropContext(b)
	assert.False(t, canceled, "a different snapshot's drop must not release the held context")
	require.NotNil(t, s.current)

	s.dropContext(a)
	assert.True(t, canceled)
	assert.Nil(t, s.current)
}
