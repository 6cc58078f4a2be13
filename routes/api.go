// routes/api.go
package routes

import (
	"github.com/gorilla/mux"

	"github.com/eGGnogSC/booksync/internal/importer"
	"github.com/eGGnogSC/booksync/internal/sync"
)

// RegisterAPIRoutes registers record, sync and import routes on the
// authenticated subrouter.
func RegisterAPIRoutes(router *mux.Router, syncHandler *sync.Handler, importHandler *importer.Handler) {
	router.HandleFunc("/records", syncHandler.CreateRecordHandler).Methods("POST")
	router.HandleFunc("/records/{id}", syncHandler.GetRecordHandler).Methods("GET")
	router.HandleFunc("/records/{id}/sync", syncHandler.SyncHandler).Methods("POST")
	router.HandleFunc("/import", importHandler.ImportHandler).Methods("POST")
}
