package coachflow

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/apper-apps/coachflow-optimal/pkg/composition"
	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// PageRequest is the body of the page creation endpoints.
type PageRequest struct {
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

// PageOrderRequest lists page ids in their new order.
type PageOrderRequest struct {
	IDs []models.PageID `json:"ids"`
}

// BlockRequest is the body of POST /api/pages/{pageId}/blocks.
type BlockRequest struct {
	Type models.BlockType `json:"type"`
}

// BlockOrderRequest lists block ids in their new order.
type BlockOrderRequest struct {
	IDs []models.BlockID `json:"ids"`
}

// MoveRequest moves the block at index From to index To.
type MoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ChecklistItemRequest is the body of POST /api/blocks/{id}/items.
type ChecklistItemRequest struct {
	Text string `json:"text"`
}

// Page handlers are shared by client workspaces and portals; only the parent
// differs.

func (a *App) listPages(w http.ResponseWriter, r *http.Request, parent composition.Parent) {
	pages, err := a.services.Pages.ListPages(r.Context(), parent)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pages)
}

func (a *App) createPage(w http.ResponseWriter, r *http.Request, parent composition.Parent) {
	var req PageRequest
	if !decode(w, r, &req) {
		return
	}
	page, err := a.services.Pages.CreatePage(r.Context(), parent, req.Title, req.Icon)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, page)
}

func (a *App) reorderPages(w http.ResponseWriter, r *http.Request, parent composition.Parent) {
	var req PageOrderRequest
	if !decode(w, r, &req) {
		return
	}
	pages, err := a.services.Pages.ReorderPages(r.Context(), parent, req.IDs)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pages)
}

func (a *App) handleListClientPages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientId", "client", models.ParseClientID)
	if !ok {
		return
	}
	a.listPages(w, r, composition.ClientParent(id))
}

func (a *App) handleCreateClientPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientId", "client", models.ParseClientID)
	if !ok {
		return
	}
	a.createPage(w, r, composition.ClientParent(id))
}

func (a *App) handleReorderClientPages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientId", "client", models.ParseClientID)
	if !ok {
		return
	}
	a.reorderPages(w, r, composition.ClientParent(id))
}

func (a *App) handleListPortalPages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "portalId", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	a.listPages(w, r, composition.PortalParent(id))
}

func (a *App) handleCreatePortalPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "portalId", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	a.createPage(w, r, composition.PortalParent(id))
}

func (a *App) handleReorderPortalPages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "portalId", "portal", models.ParsePortalID)
	if !ok {
		return
	}
	a.reorderPages(w, r, composition.PortalParent(id))
}

func (a *App) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "page", models.ParsePageID)
	if !ok {
		return
	}
	page, err := a.services.Pages.GetPage(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// handleUpdatePage applies a partial update keyed by json field name, e.g.
//
//	PATCH /api/pages/{id}
//	{"title": "Onboarding", "icon": "Compass"}
func (a *App) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "page", models.ParsePageID)
	if !ok {
		return
	}
	var patch store.Patch
	if !decode(w, r, &patch) {
		return
	}
	page, err := a.services.Pages.UpdatePage(r.Context(), id, patch)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (a *App) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "page", models.ParsePageID)
	if !ok {
		return
	}
	if err := a.services.Pages.DeletePage(r.Context(), id); err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleDuplicatePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "page", models.ParsePageID)
	if !ok {
		return
	}
	page, err := a.services.Pages.DuplicatePage(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, page)
}

func (a *App) handleTogglePageVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "page", models.ParsePageID)
	if !ok {
		return
	}
	page, err := a.services.Pages.TogglePageVisibility(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Block handlers

func (a *App) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "pageId", "page", models.ParsePageID)
	if !ok {
		return
	}
	blocks, err := a.services.Pages.ListBlocks(r.Context(), pageID)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, blocks)
}

func (a *App) handleAddBlock(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "pageId", "page", models.ParsePageID)
	if !ok {
		return
	}
	var req BlockRequest
	if !decode(w, r, &req) {
		return
	}
	block, err := a.services.Pages.AddBlock(r.Context(), pageID, req.Type)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, block)
}

// handleReorderBlocks arranges the page's blocks by the requested ids and
// renumbers them 0..n-1. Blocks the request omits follow in their current order.
func (a *App) handleReorderBlocks(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "pageId", "page", models.ParsePageID)
	if !ok {
		return
	}
	var req BlockOrderRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	blocks, err := a.services.Pages.ListBlocks(ctx, pageID)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	ordered, err := a.services.Pages.ReorderBlocks(ctx, pageID, composition.Arrange(blocks, req.IDs))
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ordered)
}

func (a *App) handleMoveBlock(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "pageId", "page", models.ParsePageID)
	if !ok {
		return
	}
	var req MoveRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	blocks, err := a.services.Pages.ListBlocks(ctx, pageID)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	moved, err := composition.MoveBlock(blocks, req.From, req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ordered, err := a.services.Pages.ReorderBlocks(ctx, pageID, moved)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ordered)
}

func (a *App) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "block", models.ParseBlockID)
	if !ok {
		return
	}
	block, err := a.services.Pages.GetBlock(r.Context(), id)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, block)
}

// handleUpdateBlockContent merges the body into the block's content. Keys not
// in the body keep their stored values.
//
//	PATCH /api/blocks/{id}
//	{"url": "https://example.com", "title": "Reading"}
func (a *App) handleUpdateBlockContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "block", models.ParseBlockID)
	if !ok {
		return
	}
	var partial map[string]any
	if !decode(w, r, &partial) {
		return
	}
	block, err := a.services.Pages.UpdateBlockContent(r.Context(), id, partial)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, block)
}

func (a *App) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "block", models.ParseBlockID)
	if !ok {
		return
	}
	if err := a.services.Pages.DeleteBlock(r.Context(), id); err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "block", models.ParseBlockID)
	if !ok {
		return
	}
	var req ChecklistItemRequest
	if !decode(w, r, &req) {
		return
	}
	block, err := a.services.Pages.AddChecklistItem(r.Context(), id, req.Text)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, block)
}

func (a *App) handleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "block", models.ParseBlockID)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid item index")
		return
	}
	block, err := a.services.Pages.ToggleChecklistItem(r.Context(), id, index)
	if err != nil {
		a.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, block)
}
