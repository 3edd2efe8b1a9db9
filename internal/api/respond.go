package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/patient"
	"github.com/hackgods/clinic-booking/internal/storage"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
	return false
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{appointment.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
	{appointment.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
	{appointment.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},

	{appointment.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{appointment.ErrSlotExists, http.StatusConflict, "slot_exists"},
	{appointment.ErrSlotBooked, http.StatusConflict, "slot_booked"},
	{appointment.ErrInvalidStatusTransition, http.StatusConflict, "invalid_status_transition"},

	{appointment.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{appointment.ErrInvalidSlotTime, http.StatusBadRequest, "invalid_slot_time"},
	{appointment.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{appointment.ErrInvalidBooking, http.StatusBadRequest, "invalid_booking"},
	{patient.ErrInvalidRecord, http.StatusBadRequest, "invalid_record"},
	{storage.ErrInvalidFileName, http.StatusBadRequest, "invalid_file_name"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrInvalidRefresh, http.StatusUnauthorized, "invalid_refresh_token"},

	{appointment.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "upstream_unavailable"},
	{storage.ErrNotConfigured, http.StatusServiceUnavailable, "storage_unavailable"},
}

// handleError maps a service error onto the HTTP error body. Anything
// unrecognised is logged and reported as a 500 without its text.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
