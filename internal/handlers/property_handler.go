// -----------------------------------------------------------------------
// Property Handler - HTTP surface for address intake
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fieldreach/fieldreach/internal/interfaces"
	"github.com/fieldreach/fieldreach/internal/models"
	"github.com/ternarybob/arbor"
)

type PropertyHandler struct {
	properties interfaces.PropertyService
	logger     arbor.ILogger
}

func NewPropertyHandler(properties interfaces.PropertyService, logger arbor.ILogger) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		logger:     logger,
	}
}

type propertyRequest struct {
	Street string `json:"street" validate:"required"`
	Zip    string `json:"zip" validate:"required"`
}

type importPropertiesRequest struct {
	Properties []propertyRequest `json:"properties" validate:"required,min=1,dive"`
}

// PropertiesHandler handles the collection route.
// GET /api/properties (list), POST /api/properties (create)
func (h *PropertyHandler) PropertiesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.listProperties(w, r)
	case "POST":
		h.createProperty(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *PropertyHandler) listProperties(w http.ResponseWriter, r *http.Request) {
	opts := &interfaces.PropertyListOptions{}
	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = models.PropertyStatus(status)
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	properties, err := h.properties.ListProperties(r.Context(), opts)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"properties": properties})
}

func (h *PropertyHandler) createProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	property, err := h.properties.CreateProperty(r.Context(), &models.Property{
		Street: req.Street,
		Zip:    req.Zip,
	})
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, property)
}

// ImportPropertiesHandler stores a batch of addresses in one request.
// POST /api/properties/import
func (h *PropertyHandler) ImportPropertiesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req importPropertiesRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	properties := make([]*models.Property, 0, len(req.Properties))
	for _, p := range req.Properties {
		properties = append(properties, &models.Property{Street: p.Street, Zip: p.Zip})
	}

	imported, err := h.properties.ImportProperties(r.Context(), properties)
	if err != nil {
		WriteTypedError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"imported":   len(imported),
		"properties": imported,
	})
}

// PropertyRoutesHandler dispatches /api/properties/{id}.
func (h *PropertyHandler) PropertyRoutesHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/properties/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "unknown property route")
		return
	}

	switch r.Method {
	case "GET":
		property, err := h.properties.GetProperty(r.Context(), id)
		if err != nil {
			WriteTypedError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, property)
	case "DELETE":
		if err := h.properties.DeleteProperty(r.Context(), id); err != nil {
			WriteTypedError(w, err)
			return
		}
		WriteSuccess(w, "property deleted")
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
