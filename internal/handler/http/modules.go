package http

import "net/http"

// moduleNames are the application modules that sit behind the auth
// boundary. They carry no logic of their own; each exposes a heartbeat so
// deployments can verify routing and authentication end to end.
var moduleNames = []string{"wallet", "tickets", "payments", "reports", "notifications"}

// ModuleStatus returns a heartbeat handler for the named module.
func ModuleStatus(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response{
			Data: map[string]string{"service": name, "status": "ok"},
		})
	}
}
