package composition

import (
	"context"
	"sync"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
)

// EditState is the per-block editing state of a board.
type EditState int

const (
	Viewing EditState = iota
	Editing
)

func (s EditState) String() string {
	if s == Editing {
		return "editing"
	}
	return "viewing"
}

// Board is a local, ordered copy of one page's blocks with a fixed policy per
// operation:
//
//   - Move is optimistic without rollback: the local order changes first and a
//     failed store call only produces a failure notice.
//   - Add, Update and Delete reconcile: local state changes only after the store
//     call succeeds.
//
// Concurrent calls are allowed; whichever store response arrives last wins.
// A Board does not observe changes made elsewhere until Reload.
type Board struct {
	source BlockSource
	notify Notifier
	pageID models.PageID

	mu      sync.Mutex
	blocks  []*models.Block
	editing map[models.BlockID]bool
}

// BlockSource is where a Board loads and saves blocks. *Engine implements it.
type BlockSource interface {
	ListBlocks(ctx context.Context, pageID models.PageID) ([]*models.Block, error)
	AddBlock(ctx context.Context, pageID models.PageID, t models.BlockType) (*models.Block, error)
	UpdateBlockContent(ctx context.Context, id models.BlockID, partial map[string]any) (*models.Block, error)
	DeleteBlock(ctx context.Context, id models.BlockID) error
	SaveBlockOrder(ctx context.Context, pageID models.PageID, ids []models.BlockID) error
}

// NewBoard loads the blocks of pageID from source into a new board.
func NewBoard(ctx context.Context, source BlockSource, pageID models.PageID, notify Notifier) (*Board, error) {
	b := &Board{
		source:  source,
		notify:  notify,
		pageID:  pageID,
		editing: make(map[models.BlockID]bool),
	}
	if err := b.Reload(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// OpenBoard opens a board over the engine's own store.
func (e *Engine) OpenBoard(ctx context.Context, pageID models.PageID, notify Notifier) (*Board, error) {
	return NewBoard(ctx, e, pageID, notify)
}

func (b *Board) PageID() models.PageID { return b.pageID }

// Reload replaces the local blocks with the stored ones.
func (b *Board) Reload(ctx context.Context) error {
	blocks, err := b.source.ListBlocks(ctx, b.pageID)
	if err != nil {
		b.notify.Failure(ctx, "Failed to load blocks", err)
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks = blocks
	return nil
}

// Blocks returns copies of the local blocks in board order.
func (b *Board) Blocks() []*models.Block {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.Block, len(b.blocks))
	for i, blk := range b.blocks {
		out[i] = blk.Clone()
	}
	return out
}

// Move drags the block at from to position to. The local order is updated
// before the store is called and is kept when the store call fails.
func (b *Board) Move(ctx context.Context, from, to int) error {
	b.mu.Lock()
	moved, err := MoveBlock(b.blocks, from, to)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.blocks = moved
	ids := blockIDs(moved)
	b.mu.Unlock()

	if err := b.source.SaveBlockOrder(ctx, b.pageID, ids); err != nil {
		b.notify.Failure(ctx, "Failed to update block order", err)
		return err
	}
	b.notify.Success(ctx, "Block order updated")
	return nil
}

// Add creates a block of type t at the end of the page and opens it for editing.
func (b *Board) Add(ctx context.Context, t models.BlockType) (*models.Block, error) {
	created, err := b.source.AddBlock(ctx, b.pageID, t)
	if err != nil {
		b.notify.Failure(ctx, "Failed to add block", err)
		return nil, err
	}
	b.mu.Lock()
	b.blocks = append(b.blocks, created.Clone())
	b.editing[created.ID] = true
	b.mu.Unlock()

	b.notify.Success(ctx, "Block added")
	return created, nil
}

// Update saves a partial content change. It may be called while the block is
// being edited; on success the block returns to Viewing.
func (b *Board) Update(ctx context.Context, id models.BlockID, partial map[string]any) (*models.Block, error) {
	updated, err := b.source.UpdateBlockContent(ctx, id, partial)
	if err != nil {
		b.notify.Failure(ctx, "Failed to update block", err)
		return nil, err
	}
	b.mu.Lock()
	for i, blk := range b.blocks {
		if blk.ID == id {
			b.blocks[i] = updated.Clone()
		}
	}
	delete(b.editing, id)
	b.mu.Unlock()

	b.notify.Success(ctx, "Block updated")
	return updated, nil
}

// Delete removes a block. Remaining blocks keep their sort_order.
func (b *Board) Delete(ctx context.Context, id models.BlockID) error {
	if err := b.source.DeleteBlock(ctx, id); err != nil {
		b.notify.Failure(ctx, "Failed to delete block", err)
		return err
	}
	b.mu.Lock()
	kept := b.blocks[:0:0]
	for _, blk := range b.blocks {
		if blk.ID != id {
			kept = append(kept, blk)
		}
	}
	b.blocks = kept
	delete(b.editing, id)
	b.mu.Unlock()

	b.notify.Success(ctx, "Block deleted")
	return nil
}

// ToggleEditing switches a block between Viewing and Editing and returns the
// new state.
func (b *Board) ToggleEditing(id models.BlockID) EditState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editing[id] {
		delete(b.editing, id)
		return Viewing
	}
	b.editing[id] = true
	return Editing
}

func (b *Board) State(id models.BlockID) EditState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editing[id] {
		return Editing
	}
	return Viewing
}
