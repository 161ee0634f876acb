package handlers

import (
	"net/http"
	"strings"

	"github.com/fieldreach/fieldreach/internal/models"
)

// WriteTypedError maps the service error taxonomy onto HTTP status codes so
// callers can distinguish "recreate the session" from "this address has no
// match" without parsing messages. The diagnostic text is always passed
// through.
func WriteTypedError(w http.ResponseWriter, err error) error {
	switch {
	case models.AsError[*models.LoginRequiredError](err):
		return WriteError(w, http.StatusUnauthorized, err.Error())
	case models.AsError[*models.AccessDeniedError](err):
		return WriteError(w, http.StatusForbidden, err.Error())
	case models.AsError[*models.SessionExpiredError](err):
		return WriteError(w, http.StatusGone, err.Error())
	case models.AsError[*models.DecryptionError](err),
		models.AsError[*models.FieldNotFoundError](err),
		models.AsError[*models.NoDataExtractedError](err):
		return WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case models.AsError[*models.ConfigurationError](err):
		return WriteError(w, http.StatusInternalServerError, err.Error())
	case strings.Contains(err.Error(), "not found"):
		return WriteError(w, http.StatusNotFound, err.Error())
	default:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
