package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestWriteTypedError_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"login required", &models.LoginRequiredError{Reason: "rejected"}, http.StatusUnauthorized},
		{"access denied", &models.AccessDeniedError{URL: "https://portal.example.com/home"}, http.StatusForbidden},
		{"session expired", &models.SessionExpiredError{Reason: "login prompt appeared"}, http.StatusGone},
		{"decryption", &models.DecryptionError{Reason: "wrong key"}, http.StatusUnprocessableEntity},
		{"field not found", &models.FieldNotFoundError{Field: "zip", Tried: []string{"attribute-exact"}}, http.StatusUnprocessableEntity},
		{"no data", &models.NoDataExtractedError{Address: "123 Main St 30301"}, http.StatusUnprocessableEntity},
		{"configuration", &models.ConfigurationError{Setting: "vault.encryption_key", Reason: "missing"}, http.StatusInternalServerError},
		{"not found message", errors.New("session not found: ses_x"), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteTypedError(w, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestWriteTypedError_WrappedTypesStillMap(t *testing.T) {
	wrapped := fmt.Errorf("processing item: %w", &models.SessionExpiredError{Reason: "stale"})
	w := httptest.NewRecorder()
	WriteTypedError(w, wrapped)
	assert.Equal(t, http.StatusGone, w.Code)
}
