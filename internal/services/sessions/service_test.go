package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/fieldreach/fieldreach/internal/services/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSessionStorage is an in-memory SessionStorage.
type mockSessionStorage struct {
	sessions map[string]*models.Session
}

func newMockSessionStorage() *mockSessionStorage {
	return &mockSessionStorage{sessions: make(map[string]*models.Session)}
}

func (m *mockSessionStorage) SaveSession(ctx context.Context, session *models.Session) error {
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionStorage) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, assert.AnError
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionStorage) ListSessions(ctx context.Context) ([]*models.Session, error) {
	var result []*models.Session
	for _, s := range m.sessions {
		result = append(result, s)
	}
	return result, nil
}

func (m *mockSessionStorage) ListActiveSessions(ctx context.Context) ([]*models.Session, error) {
	var result []*models.Session
	for _, s := range m.sessions {
		if s.IsActive {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockSessionStorage) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionStorage) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	count := 0
	for _, s := range m.sessions {
		if s.IsActive && !s.ExpiresAt.After(now) {
			s.IsActive = false
			count++
		}
	}
	return count, nil
}

// mockAutomation scripts the automation layer's outcomes.
type mockAutomation struct {
	loginSnapshot *models.SessionSnapshot
	loginErr      error
	validateErr   error
	validateCalls int
}

func (m *mockAutomation) LoginWithCredentials(ctx context.Context, username, password string) (*models.SessionSnapshot, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginSnapshot, nil
}

func (m *mockAutomation) ValidateSnapshot(ctx context.Context, snapshot *models.SessionSnapshot) error {
	m.validateCalls++
	return m.validateErr
}

func (m *mockAutomation) ExtractCustomerData(ctx context.Context, snapshot *models.SessionSnapshot, property *models.Property) (*models.ExtractedCustomerData, error) {
	return nil, nil
}

func (m *mockAutomation) Shutdown() {}

func testSnapshot() *models.SessionSnapshot {
	return &models.SessionSnapshot{
		Cookies: []models.Cookie{{Name: "auth", Value: "tok", Domain: "portal.example.com", Path: "/"}},
	}
}

func newTestService(t *testing.T, automation *mockAutomation) (*Service, *mockSessionStorage) {
	t.Helper()

	v, err := vault.NewService("test passphrase", common.GetLogger())
	require.NoError(t, err)

	storage := newMockSessionStorage()
	svc := NewService(storage, v, automation, common.GetLogger()).(*Service)
	return svc, storage
}

func TestCreateSession_EncryptsSnapshot(t *testing.T) {
	svc, storage := newTestService(t, &mockAutomation{})
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "operator-a", testSnapshot(), time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.True(t, session.IsActive)

	stored := storage.sessions[session.ID]
	require.NotNil(t, stored)
	assert.NotContains(t, stored.EncryptedState, "tok", "cookie value must not appear in stored state")
	assert.NotContains(t, stored.EncryptedState, "auth")
}

func TestCreateSession_RejectsEmptySnapshot(t *testing.T) {
	svc, _ := newTestService(t, &mockAutomation{})

	_, err := svc.CreateSession(context.Background(), "x", &models.SessionSnapshot{}, time.Hour)
	assert.ErrorContains(t, err, "no cookies")
}

func TestCreateSession_DefaultTTL(t *testing.T) {
	svc, _ := newTestService(t, &mockAutomation{})

	session, err := svc.CreateSession(context.Background(), "x", testSnapshot(), 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(defaultSessionTTL), session.ExpiresAt, time.Minute)
}

func TestCreateSessionFromCredentials(t *testing.T) {
	automation := &mockAutomation{loginSnapshot: testSnapshot()}
	svc, _ := newTestService(t, automation)

	session, err := svc.CreateSessionFromCredentials(context.Background(), "op", "user", "pass", time.Hour)
	require.NoError(t, err)

	snap, err := svc.OpenSnapshot(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, "tok", snap.Cookies[0].Value)
	assert.Equal(t, 1, automation.validateCalls, "fresh snapshot must be round-tripped before storage")
}

func TestCreateSessionFromCredentials_UnrestorableSnapshotRejected(t *testing.T) {
	automation := &mockAutomation{
		loginSnapshot: testSnapshot(),
		validateErr:   &models.SessionExpiredError{Reason: "snapshot restore failed"},
	}
	svc, storage := newTestService(t, automation)

	_, err := svc.CreateSessionFromCredentials(context.Background(), "op", "user", "pass", time.Hour)
	var expiredErr *models.SessionExpiredError
	require.ErrorAs(t, err, &expiredErr)
	assert.Empty(t, storage.sessions, "nothing may be persisted when the round trip fails")
}

func TestCreateSessionFromCredentials_LoginFailure(t *testing.T) {
	automation := &mockAutomation{loginErr: &models.LoginRequiredError{Reason: "bad credentials"}}
	svc, _ := newTestService(t, automation)

	_, err := svc.CreateSessionFromCredentials(context.Background(), "op", "user", "wrong", time.Hour)
	var loginErr *models.LoginRequiredError
	assert.ErrorAs(t, err, &loginErr)
}

func TestOpenSnapshot_ExpiredSessionRefused(t *testing.T) {
	svc, storage := newTestService(t, &mockAutomation{})
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "x", testSnapshot(), time.Hour)
	require.NoError(t, err)

	stored := storage.sessions[session.ID]
	stored.ExpiresAt = time.Now().Add(-time.Minute)

	_, err = svc.OpenSnapshot(ctx, stored)
	var expiredErr *models.SessionExpiredError
	assert.ErrorAs(t, err, &expiredErr)
}

func TestValidateSession_DeactivatesRejectedSession(t *testing.T) {
	automation := &mockAutomation{validateErr: &models.SessionExpiredError{Reason: "portal login prompt"}}
	svc, storage := newTestService(t, automation)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "x", testSnapshot(), time.Hour)
	require.NoError(t, err)

	err = svc.ValidateSession(ctx, session.ID)
	var expiredErr *models.SessionExpiredError
	require.ErrorAs(t, err, &expiredErr)

	assert.False(t, storage.sessions[session.ID].IsActive, "rejected session must be deactivated")
}

func TestValidateSession_PassesThrough(t *testing.T) {
	automation := &mockAutomation{}
	svc, _ := newTestService(t, automation)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "x", testSnapshot(), time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.ValidateSession(ctx, session.ID))
	assert.Equal(t, 1, automation.validateCalls)
}

func TestDeactivateExpired(t *testing.T) {
	svc, storage := newTestService(t, &mockAutomation{})
	ctx := context.Background()

	fresh, err := svc.CreateSession(ctx, "fresh", testSnapshot(), time.Hour)
	require.NoError(t, err)
	stale, err := svc.CreateSession(ctx, "stale", testSnapshot(), time.Hour)
	require.NoError(t, err)
	storage.sessions[stale.ID].ExpiresAt = time.Now().Add(-time.Minute)

	count, err := svc.DeactivateExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, storage.sessions[fresh.ID].IsActive)
	assert.False(t, storage.sessions[stale.ID].IsActive)
}
