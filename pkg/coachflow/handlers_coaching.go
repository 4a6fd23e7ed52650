package coachflow

import (
	"net/http"
	"strconv"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// MemberRequest is the body of POST /api/portals/{portalId}/members. An empty
// role joins the client as a member.
type MemberRequest struct {
	ClientID models.ClientID   `json:"client_id"`
	Role     models.MemberRole `json:"role"`
}

// ActiveRequest is the body of PUT /api/portals/{id}/active.
type ActiveRequest struct {
	Active bool `json:"active"`
}

// StatusRequest is the body of PUT /api/deliverables/{id}/status.
type StatusRequest struct {
	Status models.DeliverableStatus `json:"status"`
}

// AssignRequest is the body of POST /api/resources/{id}/assign.
type AssignRequest struct {
	ClientID models.ClientID `json:"client_id"`
}

// MarkAllReadResponse reports how many notifications were marked as read.
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// Client handlers

func (a *App) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var in models.Client
	if !decode(w, r, &in) {
		return
	}
	client, err := a.services.Clients.Create(r.Context(), in)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, client)
}

func (a *App) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := a.services.Clients.List(r.Context())
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, clients)
}

func (a *App) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client", models.ParseClientID)
	if !ok {
		return
	}
	client, err := a.services.Clients.Get(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (a *App) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client", models.ParseClientID)
	if !ok {
		return
	}
	var patch store.Patch
	if !decode(w, r, &patch) {
		return
	}
	client, err := a.services.Clients.Update(r.Context(), id, patch)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (a *App) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client", models.ParseClientID)
	if !ok {
		return
	}
	if err := a.services.Clients.Delete(r.Context(), id); err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleListClientMemberships(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientId", "client", models.ParseClientID)
	if !ok {
		return
	}
	members, err := a.services.Members.ListByClient(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

func (a *App) handleListClientDeliverables(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientId", "client", models.ParseClientID)
	if !ok {
		return
	}
	items, err := a.services.Deliverables.ListByClient(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// handleDeliverableBoard returns the client's deliverables grouped into the four
// review columns, always in board order and always all four.
func (a *App) handleDeliverableBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientId", "client", models.ParseClientID)
	if !ok {
		return
	}
	columns, err := a.services.Deliverables.Board(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, columns)
}

func (a *App) handleListClientResources(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientId", "client", models.ParseClientID)
	if !ok {
		return
	}
	resources, err := a.services.Resources.ListForClient(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resources)
}

// Portal handlers

func (a *App) handleCreatePortal(w http.ResponseWriter, r *http.Request) {
	var in models.Portal
	if !decode(w, r, &in) {
		return
	}
	portal, err := a.services.Portals.Create(r.Context(), in)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, portal)
}

// handleListPortals lists every portal, or only those of ?owner_id= when given.
func (a *App) handleListPortals(w http.ResponseWriter, r *http.Request) {
	var (
		portals []*models.Portal
		err     error
	)
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		owner, perr := models.ParseCoachID(raw)
		if perr != nil {
			respondError(w, http.StatusBadRequest, "Invalid owner ID")
			return
		}
		portals, err = a.services.Portals.ListByOwner(r.Context(), owner)
	} else {
		portals, err = a.services.Portals.List(r.Context())
	}
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, portals)
}

func (a *App) handleGetPortal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	portal, err := a.services.Portals.Get(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, portal)
}

func (a *App) handleUpdatePortal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	var patch store.Patch
	if !decode(w, r, &patch) {
		return
	}
	portal, err := a.services.Portals.Update(r.Context(), id, patch)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, portal)
}

func (a *App) handleDeletePortal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	if err := a.services.Portals.Delete(r.Context(), id); err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleSetPortalActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	var req ActiveRequest
	if !decode(w, r, &req) {
		return
	}
	portal, err := a.services.Portals.SetActive(r.Context(), id, req.Active)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, portal)
}

// handleCreateDefaultPages adds the starter pages to a portal. When one of the
// creations fails the pages made before it are kept and the error is returned.
func (a *App) handleCreateDefaultPages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	pages, err := a.services.Portals.CreateDefaultPages(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, pages)
}

func (a *App) handleListMembers(w http.ResponseWriter, r *http.Request) {
	portalID, ok := pathID(w, r, "portalId", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	members, err := a.services.Members.ListByPortal(r.Context(), portalID)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

func (a *App) handleAddMember(w http.ResponseWriter, r *http.Request) {
	portalID, ok := pathID(w, r, "portalId", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	var req MemberRequest
	if !decode(w, r, &req) {
		return
	}
	member, err := a.services.Members.AddMember(r.Context(), portalID, req.ClientID, req.Role)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

func (a *App) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	portalID, ok := pathID(w, r, "portalId", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	clientID, ok := pathID(w, r, "clientId", "client", models.ParseClientID)
	if !ok {
		return
	}
	if err := a.services.Members.RemoveMember(r.Context(), portalID, clientID); err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleListPortalDeliverables(w http.ResponseWriter, r *http.Request) {
	portalID, ok := pathID(w, r, "portalId", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	items, err := a.services.Deliverables.ListByPortal(r.Context(), portalID)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (a *App) handleCreatePortalDeliverable(w http.ResponseWriter, r *http.Request) {
	portalID, ok := pathID(w, r, "portalId", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	var in models.Deliverable
	if !decode(w, r, &in) {
		return
	}
	item, err := a.services.Deliverables.CreateForPortal(r.Context(), portalID, in)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// Deliverable handlers

func (a *App) handleCreateDeliverable(w http.ResponseWriter, r *http.Request) {
	var in models.Deliverable
	if !decode(w, r, &in) {
		return
	}
	item, err := a.services.Deliverables.Create(r.Context(), in)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (a *App) handleGetDeliverable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "deliverable", models.ParseDeliverableID)
	if !ok {
		return
	}
	item, err := a.services.Deliverables.Get(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (a *App) handleUpdateDeliverable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "deliverable", models.ParseDeliverableID)
	if !ok {
		return
	}
	var patch store.Patch
	if !decode(w, r, &patch) {
		return
	}
	item, err := a.services.Deliverables.Update(r.Context(), id, patch)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (a *App) handleDeleteDeliverable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "deliverable", models.ParseDeliverableID)
	if !ok {
		return
	}
	if err := a.services.Deliverables.Delete(r.Context(), id); err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleUpdateDeliverableStatus moves a deliverable to another review column.
// Any known status may follow any other.
func (a *App) handleUpdateDeliverableStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "deliverable", models.ParseDeliverableID)
	if !ok {
		return
	}
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := a.services.Deliverables.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Resource handlers

func (a *App) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var in models.Resource
	if !decode(w, r, &in) {
		return
	}
	resource, err := a.services.Resources.Create(r.Context(), in)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, resource)
}

func (a *App) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := a.services.Resources.List(r.Context())
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resources)
}

func (a *App) handleGetResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "resource", models.ParseResourceID)
	if !ok {
		return
	}
	resource, err := a.services.Resources.Get(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resource)
}

func (a *App) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "resource", models.ParseResourceID)
	if !ok {
		return
	}
	var patch store.Patch
	if !decode(w, r, &patch) {
		return
	}
	resource, err := a.services.Resources.Update(r.Context(), id, patch)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resource)
}

func (a *App) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "resource", models.ParseResourceID)
	if !ok {
		return
	}
	if err := a.services.Resources.Delete(r.Context(), id); err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleAssignResource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "resource", models.ParseResourceID)
	if !ok {
		return
	}
	var req AssignRequest
	if !decode(w, r, &req) {
		return
	}
	resource, err := a.services.Resources.AssignToClient(r.Context(), id, req.ClientID)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resource)
}

// Notification handlers

func (a *App) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var in models.Notification
	if !decode(w, r, &in) {
		return
	}
	n, err := a.services.Notifications.Create(r.Context(), in)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

// handleListNotifications returns every notification, or only unread ones
// newest first with ?unread=true.
func (a *App) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unread := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid unread filter")
			return
		}
		unread = v
	}

	var (
		list []*models.Notification
		err  error
	)
	if unread {
		list, err = a.services.Notifications.ListUnread(r.Context())
	} else {
		list, err = a.services.Notifications.List(r.Context())
	}
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (a *App) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "notification", models.ParseNotificationID)
	if !ok {
		return
	}
	n, err := a.services.Notifications.MarkAsRead(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (a *App) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	updated, err := a.services.Notifications.MarkAllAsRead(r.Context())
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, MarkAllReadResponse{Updated: updated})
}

func (a *App) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "notification", models.ParseNotificationID)
	if !ok {
		return
	}
	if err := a.services.Notifications.Delete(r.Context(), id); err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
