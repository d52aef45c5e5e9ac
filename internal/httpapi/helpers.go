package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"leadgen-engine/internal/config"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// userID resolves the request owner. Auth proper is handled upstream;
// the engine trusts the X-User-ID header and falls back to the
// configured local user.
func userID(r *http.Request, cfgVal *atomic.Value) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	if cfgVal != nil {
		if cfg, ok := cfgVal.Load().(config.Config); ok && cfg.App.DefaultUserID != "" {
			return cfg.App.DefaultUserID
		}
	}
	return "local"
}
