package automation

import (
	"testing"
	"time"

	"github.com/fieldreach/fieldreach/internal/common"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T) *Service {
	t.Helper()

	profile, err := LoadProfile("")
	require.NoError(t, err)

	return &Service{
		config: &common.PortalConfig{
			BaseURL:           "https://portal.example.com",
			SearchPath:        "/customer-search",
			LoginPath:         "/login",
			SSOBridgePath:     "/sso/bridge",
			IdPURLPattern:     "/idp/",
			AutomationTimeout: 30 * time.Second,
			QuietWindow:       750 * time.Millisecond,
		},
		logger:  common.GetLogger(),
		profile: profile,
	}
}

func TestClassifyURL(t *testing.T) {
	s := testService(t)

	tests := []struct {
		url  string
		want loginState
	}{
		{"https://portal.example.com/login", stateAtLoginPage},
		{"https://portal.example.com/login?error=1", stateAtLoginPage},
		{"https://id.example.com/idp/authorize?client=portal", stateInIdPFlow},
		{"https://portal.example.com/sso/bridge?token=abc", stateSsoBridge},
		{"https://portal.example.com/customer-search", stateCredsSubmitted},
		{"https://portal.example.com/dashboard", stateCredsSubmitted},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, s.classifyURL(tt.url), "url: %s", tt.url)
	}
}

func TestPortalURL(t *testing.T) {
	s := testService(t)
	assert.Equal(t, "https://portal.example.com/customer-search", s.portalURL("/customer-search"))

	s.config.BaseURL = "https://portal.example.com/"
	assert.Equal(t, "https://portal.example.com/login", s.portalURL("/login"))
}

func TestNewService_RequiresBaseURL(t *testing.T) {
	_, err := NewService(&common.PortalConfig{}, common.GetLogger())
	require.Error(t, err)

	var cfgErr *models.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "portal.base_url", cfgErr.Setting)
}

func TestSplitStreet(t *testing.T) {
	tests := []struct {
		street     string
		wantNumber string
		wantName   string
	}{
		{"123 Main St", "123", "Main St"},
		{"123-125 Oak Ave", "123-125", "Oak Ave"},
		{"Main St", "", "Main St"},
		{"  42 Elm Road  ", "42", "Elm Road"},
	}

	for _, tt := range tests {
		number, name := splitStreet(tt.street)
		assert.Equal(t, tt.wantNumber, number, "street: %s", tt.street)
		assert.Equal(t, tt.wantName, name, "street: %s", tt.street)
	}
}

func TestSnapshotFingerprint_StableAcrossCookieOrder(t *testing.T) {
	a := &models.SessionSnapshot{Cookies: []models.Cookie{
		{Name: "auth", Value: "tok", Domain: "portal.example.com"},
		{Name: "csrf", Value: "xyz", Domain: "portal.example.com"},
	}}
	b := &models.SessionSnapshot{Cookies: []models.Cookie{
		{Name: "csrf", Value: "xyz", Domain: "portal.example.com"},
		{Name: "auth", Value: "tok", Domain: "portal.example.com"},
	}}

	assert.Equal(t, snapshotFingerprint(a), snapshotFingerprint(b))
}

func TestSnapshotFingerprint_ChangesWithCookieValue(t *testing.T) {
	a := &models.SessionSnapshot{Cookies: []models.Cookie{{Name: "auth", Value: "tok1", Domain: "portal.example.com"}}}
	b := &models.SessionSnapshot{Cookies: []models.Cookie{{Name: "auth", Value: "tok2", Domain: "portal.example.com"}}}

	assert.NotEqual(t, snapshotFingerprint(a), snapshotFingerprint(b))
}

func TestParseResultsHTML(t *testing.T) {
	html := `<div id="search-results">
		<h3>Jane Customer</h3>
		<a href="tel:4045551234">Call</a>
		<a href="mailto:jane@example.com">Email</a>
	</div>`

	data, err := parseResultsHTML(html)
	require.NoError(t, err)
	assert.Equal(t, "Jane Customer", data.CustomerName)
	assert.Equal(t, "4045551234", data.CustomerPhone)
	assert.Equal(t, "jane@example.com", data.CustomerEmail)
}

func TestParseResultsHTML_PhoneFromText(t *testing.T) {
	html := `<div><strong>John Smith</strong><span>Phone: (404) 555-9876</span></div>`

	data, err := parseResultsHTML(html)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", data.CustomerName)
	assert.Equal(t, "(404) 555-9876", data.CustomerPhone)
	assert.Empty(t, data.CustomerEmail)
}
