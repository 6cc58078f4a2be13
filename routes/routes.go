// routes/routes.go
package routes

import (
	"github.com/gorilla/mux"

	"github.com/eGGnogSC/booksync/internal/auth"
	"github.com/eGGnogSC/booksync/internal/importer"
	"github.com/eGGnogSC/booksync/internal/sync"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	router *mux.Router,
	authHandler *auth.Handler,
	authService *auth.Service,
	syncHandler *sync.Handler,
	importHandler *importer.Handler,
) {
	// Register auth routes
	RegisterAuthRoutes(router, authHandler)

	// API routes - protected with QuickBooks auth
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(auth.QBAuthMiddleware(authService))

	RegisterAPIRoutes(apiRouter, syncHandler, importHandler)
}
