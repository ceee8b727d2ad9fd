package bot

import (
	"encoding/json"
	"net/http"
)

// WebhookHandler adapts the router to an HTTP endpoint so a chat platform
// (or curl, during development) can deliver updates as JSON.
func WebhookHandler(r *Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var upd Update
		if err := json.NewDecoder(req.Body).Decode(&upd); err != nil || upd.UserID == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		r.Handle(req.Context(), upd)
		w.WriteHeader(http.StatusAccepted)
	})
}
