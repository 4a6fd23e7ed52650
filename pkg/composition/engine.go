package composition

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Engine validates and normalizes page and block operations and persists them
// through a store. It holds no state of its own; every call reads what it needs.
type Engine struct {
	store store.Store
	log   zerolog.Logger
}

func NewEngine(s store.Store, log zerolog.Logger) *Engine {
	return &Engine{
		store: s,
		log:   log.With().Str("component", "composition").Logger(),
	}
}

// Parent identifies the owner of a page collection: one client's workspace or
// one portal.
type Parent struct {
	ClientID *models.ClientID
	PortalID *models.PortalID
}

func ClientParent(id models.ClientID) Parent { return Parent{ClientID: id.Ptr()} }
func PortalParent(id models.PortalID) Parent { return Parent{PortalID: id.Ptr()} }

// ParentOf returns the collection p belongs to.
func ParentOf(p *models.Page) Parent {
	return Parent{ClientID: p.ClientID, PortalID: p.PortalID}
}

func (p Parent) validate() error {
	switch {
	case p.ClientID != nil && p.PortalID != nil:
		return store.NewValidationError(nil, store.FieldError{Field: "client_id", Message: "client_id must not be set together with portal_id"})
	case p.ClientID == nil && p.PortalID == nil:
		return store.NewValidationError(nil, store.FieldError{Field: "client_id", Message: "client_id is required unless portal_id is set"})
	}
	return nil
}

// query selects the pages of p. Client listings exclude portal pages.
func (p Parent) query() store.Query {
	if p.PortalID != nil {
		return store.Where("portal_id", *p.PortalID)
	}
	return store.Where("client_id", *p.ClientID).And("portal_id", nil)
}

func (p Parent) owns(page *models.Page) bool {
	if p.PortalID != nil {
		return page.PortalID != nil && *page.PortalID == *p.PortalID
	}
	return page.ClientID != nil && *page.ClientID == *p.ClientID && page.PortalID == nil
}

func (p Parent) String() string {
	if p.PortalID != nil {
		return "portal:" + p.PortalID.String()
	}
	if p.ClientID != nil {
		return "client:" + p.ClientID.String()
	}
	return "none"
}

// ListPages returns the pages of parent ordered by sort_order.
func (e *Engine) ListPages(ctx context.Context, parent Parent) ([]*models.Page, error) {
	if err := parent.validate(); err != nil {
		return nil, err
	}
	return e.store.Pages().FetchMany(ctx, parent.query().Asc("sort_order"))
}

func (e *Engine) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	return e.store.Pages().FetchOne(ctx, id)
}

// CreatePage appends a visible page to parent. The slug is derived from title and
// an empty icon becomes the default document icon.
func (e *Engine) CreatePage(ctx context.Context, parent Parent, title, icon string) (*models.Page, error) {
	if err := parent.validate(); err != nil {
		return nil, err
	}
	siblings, err := e.store.Pages().FetchMany(ctx, parent.query())
	if err != nil {
		return nil, fmt.Errorf("list sibling pages: %w", err)
	}
	if icon == "" {
		icon = models.DefaultPageIcon
	}

	page := &models.Page{
		Title:     title,
		Slug:      models.Slug(title),
		Icon:      icon,
		SortOrder: len(siblings),
		IsVisible: true,
		ClientID:  parent.ClientID,
		PortalID:  parent.PortalID,
	}
	if err := e.store.Pages().Create(ctx, page); err != nil {
		return nil, err
	}
	e.log.Debug().Str("page_id", page.ID.String()).Str("parent", parent.String()).Msg("page created")
	return page, nil
}

// UpdatePage applies patch to a page. A new title re-derives the slug unless the
// patch sets one explicitly.
func (e *Engine) UpdatePage(ctx context.Context, id models.PageID, patch store.Patch) (*models.Page, error) {
	if raw, ok := patch["title"]; ok {
		title, isString := raw.(string)
		if !isString {
			return nil, store.NewValidationError(nil, store.FieldError{Field: "title", Message: "title must be a string"})
		}
		if _, hasSlug := patch["slug"]; !hasSlug {
			next := make(store.Patch, len(patch)+1)
			for k, v := range patch {
				next[k] = v
			}
			next["slug"] = models.Slug(title)
			patch = next
		}
	}
	return e.store.Pages().Update(ctx, id, patch)
}

// ReorderPages sets sort_order to each id's position in orderedIDs. Ids that do
// not belong to parent are ignored. orderedIDs should name every sibling.
func (e *Engine) ReorderPages(ctx context.Context, parent Parent, orderedIDs []models.PageID) ([]*models.Page, error) {
	if err := parent.validate(); err != nil {
		return nil, err
	}
	siblings, err := e.store.Pages().FetchMany(ctx, parent.query())
	if err != nil {
		return nil, fmt.Errorf("list sibling pages: %w", err)
	}
	byID := make(map[models.PageID]*models.Page, len(siblings))
	for _, p := range siblings {
		byID[p.ID] = p
	}

	for i, id := range orderedIDs {
		p, ok := byID[id]
		if !ok || !parent.owns(p) {
			continue
		}
		if p.SortOrder == i {
			continue
		}
		if _, err := e.store.Pages().Update(ctx, id, store.Patch{"sort_order": i}); err != nil {
			return nil, fmt.Errorf("reorder page %s: %w", id, err)
		}
	}
	return e.ListPages(ctx, parent)
}

// TogglePageVisibility flips is_visible. The page's blocks are not touched.
func (e *Engine) TogglePageVisibility(ctx context.Context, id models.PageID) (*models.Page, error) {
	page, err := e.store.Pages().FetchOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.store.Pages().Update(ctx, id, store.Patch{"is_visible": !page.IsVisible})
}

// DuplicatePage appends a copy of a page to the same collection. The copy gets a
// fresh id, " (Copy)" and "-copy" suffixes and a block count of zero. Blocks are
// not copied and the source page is not modified.
func (e *Engine) DuplicatePage(ctx context.Context, id models.PageID) (*models.Page, error) {
	src, err := e.store.Pages().FetchOne(ctx, id)
	if err != nil {
		return nil, err
	}
	parent := ParentOf(src)
	siblings, err := e.store.Pages().FetchMany(ctx, parent.query())
	if err != nil {
		return nil, fmt.Errorf("list sibling pages: %w", err)
	}
	maxOrder := -1
	for _, p := range siblings {
		if p.SortOrder > maxOrder {
			maxOrder = p.SortOrder
		}
	}

	slug := "copy"
	if src.Slug != "" {
		slug = src.Slug + "-copy"
	}
	dup := &models.Page{
		Title:     copyTitle(src.Title),
		Slug:      slug,
		Icon:      src.Icon,
		SortOrder: maxOrder + 1,
		IsVisible: src.IsVisible,
	}
	if src.ClientID != nil {
		dup.ClientID = src.ClientID.Ptr()
	}
	if src.PortalID != nil {
		dup.PortalID = src.PortalID.Ptr()
	}
	if err := e.store.Pages().Create(ctx, dup); err != nil {
		return nil, err
	}
	e.log.Debug().Str("page_id", dup.ID.String()).Str("source_id", src.ID.String()).Msg("page duplicated")
	return dup, nil
}

// maxTitleLen matches the title limit on stored pages.
const maxTitleLen = 200

// copyTitle appends the copy suffix, shortening title so the result still fits.
func copyTitle(title string) string {
	const suffix = " (Copy)"
	runes := []rune(title)
	if keep := maxTitleLen - len(suffix); len(runes) > keep {
		runes = runes[:keep]
	}
	return string(runes) + suffix
}

// DeletePage removes the page record only. Its blocks stay in the store.
func (e *Engine) DeletePage(ctx context.Context, id models.PageID) error {
	return e.store.Pages().Delete(ctx, id)
}

// ListBlocks returns the blocks of a page ordered by sort_order.
func (e *Engine) ListBlocks(ctx context.Context, pageID models.PageID) ([]*models.Block, error) {
	return e.store.Blocks().FetchMany(ctx, store.ByPage(pageID).Asc("sort_order"))
}

func (e *Engine) GetBlock(ctx context.Context, id models.BlockID) (*models.Block, error) {
	return e.store.Blocks().FetchOne(ctx, id)
}

// AddBlock appends a block with t's default content to the page.
func (e *Engine) AddBlock(ctx context.Context, pageID models.PageID, t models.BlockType) (*models.Block, error) {
	if pageID.IsZero() {
		return nil, store.NewValidationError(nil, store.FieldError{Field: "page_id", Message: "a page must be selected"})
	}
	payload, err := CreateDefault(t)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.Pages().FetchOne(ctx, pageID); err != nil {
		return nil, err
	}
	blocks, err := e.store.Blocks().FetchMany(ctx, store.ByPage(pageID))
	if err != nil {
		return nil, fmt.Errorf("list page blocks: %w", err)
	}

	next := 0
	for _, b := range blocks {
		if b.SortOrder >= next {
			next = b.SortOrder + 1
		}
	}
	block, err := models.NewBlock(pageID, payload, next)
	if err != nil {
		return nil, err
	}
	if err := e.store.Blocks().Create(ctx, block); err != nil {
		return nil, err
	}
	e.refreshBlockCount(ctx, pageID, len(blocks)+1)
	return block, nil
}

// UpdateBlockContent shallow-merges partial into the block's content. Nested
// values such as checklist items are replaced wholesale.
func (e *Engine) UpdateBlockContent(ctx context.Context, id models.BlockID, partial map[string]any) (*models.Block, error) {
	block, err := e.store.Blocks().FetchOne(ctx, id)
	if err != nil {
		return nil, err
	}
	merged, err := mergeContent(block, partial)
	if err != nil {
		return nil, err
	}
	return e.store.Blocks().Update(ctx, id, store.Patch{"content": merged.Content})
}

// AddChecklistItem appends an unchecked item to a checklist block.
func (e *Engine) AddChecklistItem(ctx context.Context, id models.BlockID, text string) (*models.Block, error) {
	return e.updateChecklist(ctx, id, func(c models.ChecklistContent) (models.ChecklistContent, error) {
		return c.WithItem(text), nil
	})
}

// ToggleChecklistItem flips the completion of item index.
func (e *Engine) ToggleChecklistItem(ctx context.Context, id models.BlockID, index int) (*models.Block, error) {
	return e.updateChecklist(ctx, id, func(c models.ChecklistContent) (models.ChecklistContent, error) {
		next, err := c.Toggled(index)
		if err != nil {
			return c, store.NewValidationError(err, store.FieldError{Field: "items", Message: err.Error()})
		}
		return next, nil
	})
}

func (e *Engine) updateChecklist(ctx context.Context, id models.BlockID, fn func(models.ChecklistContent) (models.ChecklistContent, error)) (*models.Block, error) {
	block, err := e.store.Blocks().FetchOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if block.Type != models.BlockTypeChecklist {
		return nil, store.NewValidationError(nil, store.FieldError{Field: "type", Message: "block is not a checklist"})
	}
	p, err := block.Payload()
	if err != nil {
		return nil, store.NewValidationError(err, store.FieldError{Field: "content", Message: err.Error()})
	}
	next, err := fn(p.(models.ChecklistContent))
	if err != nil {
		return nil, err
	}
	return e.UpdateBlockContent(ctx, id, map[string]any{"items": next.Items})
}

// DeleteBlock removes a block. Remaining siblings keep their sort_order.
func (e *Engine) DeleteBlock(ctx context.Context, id models.BlockID) error {
	block, err := e.store.Blocks().FetchOne(ctx, id)
	if err != nil {
		return err
	}
	if err := e.store.Blocks().Delete(ctx, id); err != nil {
		return err
	}
	remaining, err := e.store.Blocks().FetchMany(ctx, store.ByPage(block.PageID))
	if err != nil {
		e.log.Warn().Err(err).Str("page_id", block.PageID.String()).Msg("block count not refreshed")
		return nil
	}
	e.refreshBlockCount(ctx, block.PageID, len(remaining))
	return nil
}

// ReorderBlocks assigns sort_order = index over ordered and persists the whole
// sequence in one store call. The renumbered blocks are returned even when the
// store call fails.
func (e *Engine) ReorderBlocks(ctx context.Context, pageID models.PageID, ordered []*models.Block) ([]*models.Block, error) {
	renumbered := Renumber(ordered)
	return renumbered, e.SaveBlockOrder(ctx, pageID, blockIDs(renumbered))
}

// SaveBlockOrder stores ids as the page's block order in one store call.
func (e *Engine) SaveBlockOrder(ctx context.Context, pageID models.PageID, ids []models.BlockID) error {
	if err := e.store.ReorderBlocks(ctx, pageID, ids); err != nil {
		return fmt.Errorf("persist block order for page %s: %w", pageID, err)
	}
	return nil
}

// refreshBlockCount stores the informational block count. Failures are logged;
// the block operation that triggered it has already succeeded.
func (e *Engine) refreshBlockCount(ctx context.Context, pageID models.PageID, n int) {
	if _, err := e.store.Pages().Update(ctx, pageID, store.Patch{"block_count": n}); err != nil {
		e.log.Warn().Err(err).Str("page_id", pageID.String()).Msg("block count not refreshed")
	}
}

func blockIDs(blocks []*models.Block) []models.BlockID {
	ids := make([]models.BlockID, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}

// Renumber returns copies of blocks with sort_order set to their index.
func Renumber(blocks []*models.Block) []*models.Block {
	out := make([]*models.Block, len(blocks))
	for i, b := range blocks {
		c := b.Clone()
		c.SortOrder = i
		out[i] = c
	}
	return out
}

// Arrange orders blocks by ids. Unknown ids are skipped and blocks that ids does
// not name keep their relative order after the named ones.
func Arrange(blocks []*models.Block, ids []models.BlockID) []*models.Block {
	byID := make(map[models.BlockID]*models.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}
	out := make([]*models.Block, 0, len(blocks))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
			delete(byID, id)
		}
	}
	for _, b := range blocks {
		if _, rest := byID[b.ID]; rest {
			out = append(out, b)
		}
	}
	return out
}

// MoveBlock removes the block at from and reinserts it at to, then renumbers.
// The input slice and its blocks are not modified.
func MoveBlock(blocks []*models.Block, from, to int) ([]*models.Block, error) {
	if from < 0 || from >= len(blocks) || to < 0 || to >= len(blocks) {
		return nil, fmt.Errorf("move block %d to %d: index out of range [0,%d)", from, to, len(blocks))
	}
	items := make([]*models.Block, 0, len(blocks))
	items = append(items, blocks[:from]...)
	items = append(items, blocks[from+1:]...)

	moved := blocks[from]
	items = append(items, nil)
	copy(items[to+1:], items[to:])
	items[to] = moved
	return Renumber(items), nil
}
