package coachflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Router builds the HTTP API.
//
// Health and metrics:
//
//	GET    /health, /api/health
//	GET    /metrics
//	GET    /api/admin/read-only
//	PUT    /api/admin/read-only                       {"read_only": bool}
//
// Clients and their workspace pages:
//
//	POST   /api/clients
//	GET    /api/clients
//	GET    /api/clients/{id}
//	PATCH  /api/clients/{id}
//	DELETE /api/clients/{id}
//	GET    /api/clients/{clientId}/pages
//	POST   /api/clients/{clientId}/pages              {"title", "icon"}
//	PUT    /api/clients/{clientId}/pages/reorder      {"ids": [...]}
//	GET    /api/clients/{clientId}/portals             active memberships
//	GET    /api/clients/{clientId}/deliverables
//	GET    /api/clients/{clientId}/deliverables/board
//	GET    /api/clients/{clientId}/resources           own and global
//
// Pages and blocks:
//
//	GET    /api/pages/{id}
//	PATCH  /api/pages/{id}
//	DELETE /api/pages/{id}
//	POST   /api/pages/{id}/duplicate
//	POST   /api/pages/{id}/visibility                 toggles is_visible
//	GET    /api/pages/{pageId}/blocks
//	POST   /api/pages/{pageId}/blocks                 {"type"}
//	PUT    /api/pages/{pageId}/blocks/reorder         {"ids": [...]}
//	POST   /api/pages/{pageId}/blocks/move            {"from", "to"}
//	GET    /api/blocks/{id}
//	PATCH  /api/blocks/{id}                           partial content
//	DELETE /api/blocks/{id}
//	POST   /api/blocks/{id}/items                     {"text"}
//	POST   /api/blocks/{id}/items/{index}/toggle
//
// Portals:
//
//	POST   /api/portals
//	GET    /api/portals                               ?owner_id=
//	GET    /api/portals/{id}
//	PATCH  /api/portals/{id}
//	DELETE /api/portals/{id}
//	PUT    /api/portals/{id}/active                   {"active": bool}
//	POST   /api/portals/{id}/default-pages
//	GET    /api/portals/{portalId}/pages
//	POST   /api/portals/{portalId}/pages
//	PUT    /api/portals/{portalId}/pages/reorder
//	GET    /api/portals/{portalId}/members
//	POST   /api/portals/{portalId}/members            {"client_id", "role"}
//	DELETE /api/portals/{portalId}/members/{clientId}
//	GET    /api/portals/{portalId}/deliverables
//	POST   /api/portals/{portalId}/deliverables
//
// Deliverables, resources and notifications:
//
//	POST   /api/deliverables
//	GET    /api/deliverables/{id}
//	PATCH  /api/deliverables/{id}
//	DELETE /api/deliverables/{id}
//	PUT    /api/deliverables/{id}/status              {"status"}
//	POST   /api/resources
//	GET    /api/resources
//	GET    /api/resources/{id}
//	PATCH  /api/resources/{id}
//	DELETE /api/resources/{id}
//	POST   /api/resources/{id}/assign                 {"client_id"}
//	POST   /api/notifications
//	GET    /api/notifications                         ?unread=true
//	POST   /api/notifications/read-all
//	POST   /api/notifications/{id}/read
//	DELETE /api/notifications/{id}
func (a *App) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(a.instrument)

	router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/admin/read-only", a.handleGetReadOnly).Methods(http.MethodGet)
	api.HandleFunc("/admin/read-only", a.handleSetReadOnly).Methods(http.MethodPut)

	api.HandleFunc("/clients", a.handleCreateClient).Methods(http.MethodPost)
	api.HandleFunc("/clients", a.handleListClients).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", a.handleGetClient).Methods(http.MethodGet)
	api.HandleFunc("/clients/{id}", a.handleUpdateClient).Methods(http.MethodPatch)
	api.HandleFunc("/clients/{id}", a.handleDeleteClient).Methods(http.MethodDelete)
	api.HandleFunc("/clients/{clientId}/pages", a.handleListClientPages).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientId}/pages", a.handleCreateClientPage).Methods(http.MethodPost)
	api.HandleFunc("/clients/{clientId}/pages/reorder", a.handleReorderClientPages).Methods(http.MethodPut)
	api.HandleFunc("/clients/{clientId}/portals", a.handleListClientMemberships).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientId}/deliverables", a.handleListClientDeliverables).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientId}/deliverables/board", a.handleDeliverableBoard).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientId}/resources", a.handleListClientResources).Methods(http.MethodGet)

	api.HandleFunc("/pages/{id}", a.handleGetPage).Methods(http.MethodGet)
	api.HandleFunc("/pages/{id}", a.handleUpdatePage).Methods(http.MethodPatch)
	api.HandleFunc("/pages/{id}", a.handleDeletePage).Methods(http.MethodDelete)
	api.HandleFunc("/pages/{id}/duplicate", a.handleDuplicatePage).Methods(http.MethodPost)
	api.HandleFunc("/pages/{id}/visibility", a.handleTogglePageVisibility).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageId}/blocks", a.handleListBlocks).Methods(http.MethodGet)
	api.HandleFunc("/pages/{pageId}/blocks", a.handleAddBlock).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageId}/blocks/reorder", a.handleReorderBlocks).Methods(http.MethodPut)
	api.HandleFunc("/pages/{pageId}/blocks/move", a.handleMoveBlock).Methods(http.MethodPost)

	api.HandleFunc("/blocks/{id}", a.handleGetBlock).Methods(http.MethodGet)
	api.HandleFunc("/blocks/{id}", a.handleUpdateBlockContent).Methods(http.MethodPatch)
	api.HandleFunc("/blocks/{id}", a.handleDeleteBlock).Methods(http.MethodDelete)
	api.HandleFunc("/blocks/{id}/items", a.handleAddChecklistItem).Methods(http.MethodPost)
	api.HandleFunc("/blocks/{id}/items/{index:[0-9]+}/toggle", a.handleToggleChecklistItem).Methods(http.MethodPost)

	api.HandleFunc("/portals", a.handleCreatePortal).Methods(http.MethodPost)
	api.HandleFunc("/portals", a.handleListPortals).Methods(http.MethodGet)
	api.HandleFunc("/portals/{id}", a.handleGetPortal).Methods(http.MethodGet)
	api.HandleFunc("/portals/{id}", a.handleUpdatePortal).Methods(http.MethodPatch)
	api.HandleFunc("/portals/{id}", a.handleDeletePortal).Methods(http.MethodDelete)
	api.HandleFunc("/portals/{id}/active", a.handleSetPortalActive).Methods(http.MethodPut)
	api.HandleFunc("/portals/{id}/default-pages", a.handleCreateDefaultPages).Methods(http.MethodPost)
	api.HandleFunc("/portals/{portalId}/pages", a.handleListPortalPages).Methods(http.MethodGet)
	api.HandleFunc("/portals/{portalId}/pages", a.handleCreatePortalPage).Methods(http.MethodPost)
	api.HandleFunc("/portals/{portalId}/pages/reorder", a.handleReorderPortalPages).Methods(http.MethodPut)
	api.HandleFunc("/portals/{portalId}/members", a.handleListMembers).Methods(http.MethodGet)
	api.HandleFunc("/portals/{portalId}/members", a.handleAddMember).Methods(http.MethodPost)
	api.HandleFunc("/portals/{portalId}/members/{clientId}", a.handleRemoveMember).Methods(http.MethodDelete)
	api.HandleFunc("/portals/{portalId}/deliverables", a.handleListPortalDeliverables).Methods(http.MethodGet)
	api.HandleFunc("/portals/{portalId}/deliverables", a.handleCreatePortalDeliverable).Methods(http.MethodPost)

	api.HandleFunc("/deliverables", a.handleCreateDeliverable).Methods(http.MethodPost)
	api.HandleFunc("/deliverables/{id}", a.handleGetDeliverable).Methods(http.MethodGet)
	api.HandleFunc("/deliverables/{id}", a.handleUpdateDeliverable).Methods(http.MethodPatch)
	api.HandleFunc("/deliverables/{id}", a.handleDeleteDeliverable).Methods(http.MethodDelete)
	api.HandleFunc("/deliverables/{id}/status", a.handleUpdateDeliverableStatus).Methods(http.MethodPut)

	api.HandleFunc("/resources", a.handleCreateResource).Methods(http.MethodPost)
	api.HandleFunc("/resources", a.handleListResources).Methods(http.MethodGet)
	api.HandleFunc("/resources/{id}", a.handleGetResource).Methods(http.MethodGet)
	api.HandleFunc("/resources/{id}", a.handleUpdateResource).Methods(http.MethodPatch)
	api.HandleFunc("/resources/{id}", a.handleDeleteResource).Methods(http.MethodDelete)
	api.HandleFunc("/resources/{id}/assign", a.handleAssignResource).Methods(http.MethodPost)

	api.HandleFunc("/notifications", a.handleCreateNotification).Methods(http.MethodPost)
	api.HandleFunc("/notifications", a.handleListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", a.handleMarkAllNotificationsRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}/read", a.handleMarkNotificationRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/{id}", a.handleDeleteNotification).Methods(http.MethodDelete)

	return router
}

// Run serves the API on the configured port until ctx is cancelled, then shuts
// down, giving in-flight requests up to five seconds.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	addr := fmt.Sprintf(":%s", a.config.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.log.Info().
		Str("addr", addr).
		Str("store", a.config.Store).
		Bool("read_only", a.IsReadOnly()).
		Msg("starting coachflow server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
