package api

import (
	"net/http"
	"strconv"

	"github.com/hackgods/clinic-booking/internal/notification"
)

func listNotificationsHandler(svc NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := notification.DefaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
				return
			}
			limit = n
		}

		list, err := svc.ListRecent(r.Context(), limit)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if list == nil {
			list = []notification.Notification{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// markReadHandler marks the given ids read, or every unread notification when
// the body is empty or lists none.
func markReadHandler(svc NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MarkReadRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}

		n, err := svc.MarkRead(r.Context(), req.IDs)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "updated": n})
	}
}
