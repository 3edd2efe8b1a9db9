package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking/internal/appointment"
)

func availableSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.AvailableSlots(r.Context(), chi.URLParam(r, "date"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func slotOverviewHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.Overview(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func addSlotHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddSlotRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}

		slot, err := svc.AddSlot(r.Context(), req.Date, req.Time)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSlotResponses([]appointment.Slot{*slot})[0])
	}
}

func deleteSlotHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if err := svc.DeleteSlot(r.Context(), id); err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Slot deleted"})
	}
}

func bookSlotHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookSlotRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		res, err := svc.BookSlot(r.Context(), slotID, patientID, req.Notes)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, BookingResponse{
			ID:       res.AppointmentID,
			CustomID: res.BookingID,
			Message:  "Slot booked",
		})
	}
}
