// importer/handler.go
package importer

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/eGGnogSC/booksync/config"
	"github.com/eGGnogSC/booksync/internal/auth"
	"github.com/eGGnogSC/booksync/internal/record"
	"github.com/eGGnogSC/booksync/internal/translate"
	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// maxImportSize bounds uploaded import files.
const maxImportSize = 16 << 20

// Handler accepts import files over HTTP.
type Handler struct {
	qb         *qbclient.Client
	records    record.Store
	translator *translate.Translator
	cfg        config.ImportConfig
	log        *logrus.Logger
}

// NewHandler creates a new import handler.
func NewHandler(qb *qbclient.Client, records record.Store, translator *translate.Translator, cfg config.ImportConfig, log *logrus.Logger) *Handler {
	return &Handler{
		qb:         qb,
		records:    records,
		translator: translator,
		cfg:        cfg,
		log:        log,
	}
}

// ImportHandler runs a batch import from a multipart "file" field.
// ?dry_run=true validates and counts without any remote mutation.
func (h *Handler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	realmID, err := auth.GetRealmID(r.Context())
	if err != nil {
		http.Error(w, "QuickBooks company not connected", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		http.Error(w, "Invalid multipart request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing import file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var delimiter rune
	if h.cfg.Delimiter != "" {
		delimiter = rune(h.cfg.Delimiter[0])
	}

	table, err := ParseFile(header.Filename, file, delimiter)
	if err != nil {
		http.Error(w, "Failed to parse import file: "+err.Error(), http.StatusBadRequest)
		return
	}

	dryRun := r.URL.Query().Get("dry_run") == "true"

	imp := New(h.qb.WithRealm(realmID), h.records, h.translator, h.cfg, h.log)
	summary, err := imp.Run(r.Context(), table, dryRun)
	if err != nil {
		http.Error(w, "Import failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
