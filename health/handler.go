package health

import (
	"encoding/json"
	"net/http"
)

// Handler returns an http.HandlerFunc serving GET /healthz: 200
// {"status":"ok"} when checker.Check succeeds, else 503
// {"status":"error","error":"..."}.
func Handler(checker *Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := checker.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if result.OK {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": result.Error})
	}
}
