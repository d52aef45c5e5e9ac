package httpapi

import (
	"encoding/json"
	"net/http"

	"leadgen-engine/internal/secrets"
)

type SecretsHandler struct{}

type setProxyKeyReq struct {
	APIKey string `json:"api_key"`
}

func (h SecretsHandler) SetProxyAPIKey(w http.ResponseWriter, r *http.Request) {
	var req setProxyKeyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := secrets.SetProxyAPIKey(req.APIKey); err != nil {
		http.Error(w, "failed to store api key: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
