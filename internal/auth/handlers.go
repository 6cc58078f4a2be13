// auth/handlers.go
package auth

import (
	"encoding/json"
	"net/http"
)

// Handler provides HTTP handlers for the QuickBooks connection flow.
type Handler struct {
	service *Service
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// ConnectHandler initiates the QuickBooks authorization flow. The state is
// persisted server-side with a TTL; nothing secret goes into the session.
func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	authURL, _, err := h.service.StartAuthorization(r.Context())
	if err != nil {
		http.Error(w, "Failed to start authorization", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler handles the OAuth callback from QuickBooks.
func (h *Handler) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")
	realmID := query.Get("realmId")

	if code == "" || state == "" {
		http.Error(w, "Invalid callback parameters", http.StatusBadRequest)
		return
	}

	token, err := h.service.CompleteAuthorization(r.Context(), state, code, realmID)
	if err != nil {
		http.Error(w, "Failed to complete authorization: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Remember the connected realm for this browser session.
	session := GetSession(r)
	session.Values["realm_id"] = token.RealmID
	if err := session.Save(r, w); err != nil {
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "success",
		"realm_id": token.RealmID,
	})
}

// DisconnectHandler revokes QuickBooks tokens for the session's realm.
func (h *Handler) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	realmID := RealmFromRequest(r)
	if realmID == "" {
		http.Error(w, "No QuickBooks company connected", http.StatusBadRequest)
		return
	}

	if err := h.service.Disconnect(r.Context(), realmID); err != nil {
		http.Error(w, "Failed to disconnect: "+err.Error(), http.StatusInternalServerError)
		return
	}

	session := GetSession(r)
	delete(session.Values, "realm_id")
	session.Save(r, w)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "success",
	})
}

// StatusHandler returns the connection status for the session's realm.
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	realmID := RealmFromRequest(r)
	if realmID == "" {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"connected": false,
		})
		return
	}

	token, err := h.service.tokenStore.GetToken(r.Context(), realmID)
	if err != nil {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"connected": false,
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"connected":  true,
		"realm_id":   token.RealmID,
		"expires_at": token.ExpiresAt,
	})
}
