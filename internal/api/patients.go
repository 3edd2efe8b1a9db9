package api

import (
	"net/http"

	"github.com/hackgods/clinic-booking/internal/patient"
)

func listPatientsHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.List(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]PatientResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, toPatientResponse(e))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getPatientHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		e, err := svc.Get(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientDetail(*e))
	}
}

func patientHistoryHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		records, err := svc.History(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func addRecordHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var rec patient.MedicalRecord
		if !decodeJSON(w, r, &rec, false) {
			return
		}

		saved, err := svc.AddRecord(r.Context(), id, rec)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func generateSummaryHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		text, err := svc.GenerateSummary(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SummaryResponse{Summary: text})
	}
}

func summarizeHandler(svc PatientService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var records []patient.MedicalRecord
		if !decodeJSON(w, r, &records, true) {
			return
		}
		writeJSON(w, http.StatusOK, SummaryResponse{Summary: svc.Summarize(r.Context(), records)})
	}
}
