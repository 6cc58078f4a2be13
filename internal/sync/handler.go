// sync/handler.go
package sync

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/eGGnogSC/booksync/internal/auth"
	"github.com/eGGnogSC/booksync/internal/record"
	"github.com/eGGnogSC/booksync/internal/translate"
	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// Handler provides HTTP handlers for service records and on-demand sync.
type Handler struct {
	qb              *qbclient.Client
	records         record.Store
	translator      *translate.Translator
	defaultItemName string
	log             *logrus.Logger
}

// NewHandler creates a new sync handler.
func NewHandler(qb *qbclient.Client, records record.Store, translator *translate.Translator, defaultItemName string, log *logrus.Logger) *Handler {
	return &Handler{
		qb:              qb,
		records:         records,
		translator:      translator,
		defaultItemName: defaultItemName,
		log:             log,
	}
}

// ReconcilerFor returns a reconciler scoped to the request's realm.
func (h *Handler) ReconcilerFor(realmID string) *Reconciler {
	return NewReconciler(h.qb.WithRealm(realmID), h.records, h.translator, h.defaultItemName, h.log)
}

// CreateRecordHandler stores a new service record.
func (h *Handler) CreateRecordHandler(w http.ResponseWriter, r *http.Request) {
	var rec record.ServiceRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "Invalid record payload", http.StatusBadRequest)
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DocNumber == "" {
		http.Error(w, "Record requires a doc_number", http.StatusBadRequest)
		return
	}

	if err := h.records.Save(r.Context(), &rec); err != nil {
		http.Error(w, "Failed to save record: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(&rec)
}

// GetRecordHandler returns one service record.
func (h *Handler) GetRecordHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			http.Error(w, "Record not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load record: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// SyncHandler reconciles one record against QuickBooks.
func (h *Handler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	realmID, err := auth.GetRealmID(r.Context())
	if err != nil {
		http.Error(w, "QuickBooks company not connected", http.StatusUnauthorized)
		return
	}

	result, err := h.ReconcilerFor(realmID).Sync(r.Context(), id, nil)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// writeSyncError maps the error taxonomy onto HTTP statuses, surfacing the
// full remote error body for operator diagnosis.
func (h *Handler) writeSyncError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var authErr *qbclient.AuthError
	var apiErr *qbclient.APIError
	switch {
	case errors.Is(err, record.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case translate.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	})
}
