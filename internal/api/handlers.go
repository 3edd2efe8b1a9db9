package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}

		var slotID *uuid.UUID
		if req.SlotID != "" {
			id, err := uuid.Parse(req.SlotID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
				return
			}
			slotID = &id
		}

		res, err := svc.CreateBooking(r.Context(), req.toBooking(slotID))
		if err != nil {
			handleError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			ID:       res.AppointmentID,
			CustomID: res.BookingID,
			Message:  "Appointment booked successfully",
		})
	}
}

func listAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListAppointments(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		id, err := uuid.Parse(req.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if _, err := svc.CancelBooking(r.Context(), id, req.Reason); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Cancelled and notified"})
	}
}

func updateStatusHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var req StatusRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}

		if _, err := svc.UpdateStatus(r.Context(), id, req.Status); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Updated"})
	}
}

func uploadURLHandler(svc UploadService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UploadURLRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}

		upload, err := svc.Presign(r.Context(), req.FileName, req.FileType)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("presign upload failed")
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, upload)
	}
}

func statsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
