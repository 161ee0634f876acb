package common

import (
	"github.com/google/uuid"
)

// NewSessionID generates a unique session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewRunID generates a unique run ID with the "run_" prefix
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewRunItemID generates a unique run item ID with the "itm_" prefix
func NewRunItemID() string {
	return "itm_" + uuid.New().String()
}

// NewPropertyID generates a unique property ID with the "prp_" prefix
func NewPropertyID() string {
	return "prp_" + uuid.New().String()
}
