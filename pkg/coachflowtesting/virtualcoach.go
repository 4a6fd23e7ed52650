// Package coachflowtesting simulates coaches working against a running
// coachflow API.
//
// A [VirtualCoach] drives the typed [client.Client] through a randomized but
// reproducible session: it onboards clients, builds their workspaces out of
// blocks of every type, edits, reorders and deletes content, opens a portal and
// reviews deliverables. Everything it creates or deletes is tracked locally so
// [VirtualCoach.Verify] can check that the server agrees afterwards.
//
// The random source is seeded with the coach's index, so a failing session can
// be replayed exactly. Several coaches can run concurrently against one server
// to exercise the store under contention:
//
//	errs := make(chan error, 10)
//	for i := 0; i < 10; i++ {
//		vc := coachflowtesting.NewVirtualCoach(i, c)
//		go func() { errs <- vc.RunScenario(ctx) }()
//	}
package coachflowtesting

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"

	"github.com/apper-apps/coachflow-optimal/pkg/client"
	"github.com/apper-apps/coachflow-optimal/pkg/composition"
	"github.com/apper-apps/coachflow-optimal/pkg/models"
)

// VirtualCoach is a stateful simulated coach.
type VirtualCoach struct {
	Index  int // position in the run, also the random seed
	ID     models.CoachID
	Client *client.Client
	RNG    *rand.Rand

	Clients []*models.Client
	Pages   map[models.ClientID][]*models.Page
	Blocks  map[models.PageID][]*models.Block
	Portal  *models.Portal

	DeletedPages  []models.PageID
	DeletedBlocks []models.BlockID

	// Notices collects what the coach's boards reported.
	Notices *composition.Recorder

	mu sync.RWMutex
}

func NewVirtualCoach(index int, c *client.Client) *VirtualCoach {
	return &VirtualCoach{
		Index:   index,
		ID:      models.NewCoachID(),
		Client:  c,
		RNG:     rand.New(rand.NewSource(int64(index))),
		Pages:   make(map[models.ClientID][]*models.Page),
		Blocks:  make(map[models.PageID][]*models.Block),
		Notices: &composition.Recorder{},
	}
}

// boardSource serves a composition.Board from the HTTP API.
type boardSource struct {
	*client.Client
}

func (s boardSource) SaveBlockOrder(ctx context.Context, pageID models.PageID, ids []models.BlockID) error {
	_, err := s.ReorderBlocks(ctx, pageID, ids)
	return err
}

func (vc *VirtualCoach) errorf(format string, args ...any) error {
	return fmt.Errorf("virtual coach %d: "+format, append([]any{vc.Index}, args...)...)
}

// OnboardClient creates a client with an address unique to this coach.
func (vc *VirtualCoach) OnboardClient(ctx context.Context, n int) (*models.Client, error) {
	created, err := vc.Client.CreateClient(ctx, &models.Client{
		Name:  fmt.Sprintf("Client %d-%d", vc.Index, n),
		Email: fmt.Sprintf("coach%d-client%d@example.com", vc.Index, n),
	})
	if err != nil {
		return nil, vc.errorf("create client: %w", err)
	}
	vc.mu.Lock()
	vc.Clients = append(vc.Clients, created)
	vc.mu.Unlock()
	return created, nil
}

func (vc *VirtualCoach) CreatePage(ctx context.Context, clientID models.ClientID, title string) (*models.Page, error) {
	page, err := vc.Client.CreateClientPage(ctx, clientID, title, "")
	if err != nil {
		return nil, vc.errorf("create page %q: %w", title, err)
	}
	vc.mu.Lock()
	vc.Pages[clientID] = append(vc.Pages[clientID], page)
	vc.mu.Unlock()
	return page, nil
}

// AddBlock appends a block of type t and fills in some content.
func (vc *VirtualCoach) AddBlock(ctx context.Context, pageID models.PageID, t models.BlockType) (*models.Block, error) {
	block, err := vc.Client.AddBlock(ctx, pageID, t)
	if err != nil {
		return nil, vc.errorf("add %s block: %w", t, err)
	}

	switch t {
	case models.BlockTypeChecklist:
		block, err = vc.Client.AddChecklistItem(ctx, block.ID, fmt.Sprintf("Action item %d", vc.RNG.Intn(100)))
		if err == nil && vc.RNG.Intn(2) == 0 {
			block, err = vc.Client.ToggleChecklistItem(ctx, block.ID, 0)
		}
	case models.BlockTypeText:
		block, err = vc.Client.UpdateBlockContent(ctx, block.ID, map[string]any{"text": fmt.Sprintf("Session note %d", vc.RNG.Intn(100))})
	case models.BlockTypeLink, models.BlockTypeEmbed, models.BlockTypeFile:
		block, err = vc.Client.UpdateBlockContent(ctx, block.ID, map[string]any{"url": fmt.Sprintf("https://example.com/%d", vc.RNG.Intn(1000))})
	}
	if err != nil {
		return nil, vc.errorf("edit %s block: %w", t, err)
	}

	vc.mu.Lock()
	vc.Blocks[pageID] = append(vc.Blocks[pageID], block)
	vc.mu.Unlock()
	return block, nil
}

func (vc *VirtualCoach) DeleteBlock(ctx context.Context, pageID models.PageID, blockID models.BlockID) error {
	if err := vc.Client.DeleteBlock(ctx, blockID); err != nil {
		return vc.errorf("delete block: %w", err)
	}
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.DeletedBlocks = append(vc.DeletedBlocks, blockID)
	blocks := vc.Blocks[pageID]
	kept := make([]*models.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.ID != blockID {
			kept = append(kept, b)
		}
	}
	vc.Blocks[pageID] = kept
	return nil
}

// DeletePage removes a page. Its blocks stay in the store but are no longer
// tracked.
func (vc *VirtualCoach) DeletePage(ctx context.Context, clientID models.ClientID, pageID models.PageID) error {
	if err := vc.Client.DeletePage(ctx, pageID); err != nil {
		return vc.errorf("delete page: %w", err)
	}
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.DeletedPages = append(vc.DeletedPages, pageID)
	delete(vc.Blocks, pageID)
	pages := vc.Pages[clientID]
	kept := make([]*models.Page, 0, len(pages))
	for _, p := range pages {
		if p.ID != pageID {
			kept = append(kept, p)
		}
	}
	vc.Pages[clientID] = kept
	return nil
}

// ShuffleBlocks reorders a page's blocks randomly, by a full reorder, a
// server-side move or a drag on a board, and records the resulting order.
func (vc *VirtualCoach) ShuffleBlocks(ctx context.Context, pageID models.PageID) error {
	vc.mu.RLock()
	blocks := vc.Blocks[pageID]
	vc.mu.RUnlock()
	if len(blocks) < 2 {
		return nil
	}

	var (
		ordered []*models.Block
		err     error
	)
	switch vc.RNG.Intn(3) {
	case 0:
		ids := make([]models.BlockID, len(blocks))
		for i, b := range blocks {
			ids[i] = b.ID
		}
		vc.RNG.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		ordered, err = vc.Client.ReorderBlocks(ctx, pageID, ids)
	case 1:
		ordered, err = vc.Client.MoveBlock(ctx, pageID, vc.RNG.Intn(len(blocks)), vc.RNG.Intn(len(blocks)))
	default:
		return vc.DragBlock(ctx, pageID, vc.RNG.Intn(len(blocks)), vc.RNG.Intn(len(blocks)))
	}
	if err != nil {
		return vc.errorf("reorder blocks: %w", err)
	}

	vc.mu.Lock()
	vc.Blocks[pageID] = ordered
	vc.mu.Unlock()
	return nil
}

// DragBlock opens a board on the page and drags the block at from to position
// to. The board keeps its new order even when saving fails, so the coach
// records the board's order either way.
func (vc *VirtualCoach) DragBlock(ctx context.Context, pageID models.PageID, from, to int) error {
	board, err := composition.NewBoard(ctx, boardSource{vc.Client}, pageID, vc.Notices)
	if err != nil {
		return vc.errorf("open board: %w", err)
	}
	moveErr := board.Move(ctx, from, to)

	vc.mu.Lock()
	vc.Blocks[pageID] = board.Blocks()
	vc.mu.Unlock()
	if moveErr != nil {
		return vc.errorf("drag block %d to %d: %w", from, to, moveErr)
	}
	return nil
}

// OpenPortal creates a portal with its default pages and enrols every client
// onboarded so far.
func (vc *VirtualCoach) OpenPortal(ctx context.Context) error {
	portal, err := vc.Client.CreatePortal(ctx, &models.Portal{
		Title:   fmt.Sprintf("Program %d", vc.Index),
		OwnerID: vc.ID,
	})
	if err != nil {
		return vc.errorf("create portal: %w", err)
	}
	if _, err := vc.Client.CreateDefaultPages(ctx, portal.ID); err != nil {
		return vc.errorf("create default pages: %w", err)
	}
	vc.mu.RLock()
	clients := append([]*models.Client(nil), vc.Clients...)
	vc.mu.RUnlock()
	for _, c := range clients {
		if _, err := vc.Client.AddMember(ctx, portal.ID, c.ID, models.RoleMember); err != nil {
			return vc.errorf("add member: %w", err)
		}
	}
	vc.mu.Lock()
	vc.Portal = portal
	vc.mu.Unlock()
	return nil
}

// ReviewDeliverable submits work for a client and walks it through a few random
// review statuses.
func (vc *VirtualCoach) ReviewDeliverable(ctx context.Context, clientID models.ClientID) error {
	item, err := vc.Client.CreateDeliverable(ctx, &models.Deliverable{
		ClientID: clientID,
		Title:    fmt.Sprintf("Exercise %d", vc.RNG.Intn(100)),
	})
	if err != nil {
		return vc.errorf("create deliverable: %w", err)
	}
	for i := 0; i < 3; i++ {
		status := models.DeliverableStatuses[vc.RNG.Intn(len(models.DeliverableStatuses))]
		if item, err = vc.Client.UpdateDeliverableStatus(ctx, item.ID, status); err != nil {
			return vc.errorf("move deliverable to %s: %w", status, err)
		}
	}

	board, err := vc.Client.DeliverableBoard(ctx, clientID)
	if err != nil {
		return vc.errorf("deliverable board: %w", err)
	}
	for _, col := range board {
		for _, d := range col.Items {
			if d.ID == item.ID && col.Status != item.Status {
				return vc.errorf("deliverable %s in column %s, want %s", item.ID, col.Status, item.Status)
			}
		}
	}
	return nil
}

// Verify checks the server against everything this coach tracked: page and block
// counts, block order, contiguous sort orders after reorders and the absence of
// deleted records.
func (vc *VirtualCoach) Verify(ctx context.Context) error {
	vc.mu.RLock()
	defer vc.mu.RUnlock()

	for _, c := range vc.Clients {
		pages, err := vc.Client.ListClientPages(ctx, c.ID)
		if err != nil {
			return vc.errorf("list pages: %w", err)
		}
		if len(pages) != len(vc.Pages[c.ID]) {
			return vc.errorf("client %s has %d pages, want %d", c.ID, len(pages), len(vc.Pages[c.ID]))
		}
		for _, p := range vc.Pages[c.ID] {
			blocks, err := vc.Client.ListBlocks(ctx, p.ID)
			if err != nil {
				return vc.errorf("list blocks: %w", err)
			}
			want := vc.Blocks[p.ID]
			if len(blocks) != len(want) {
				return vc.errorf("page %s has %d blocks, want %d", p.ID, len(blocks), len(want))
			}
			for i := range want {
				if blocks[i].ID != want[i].ID {
					return vc.errorf("page %s block %d is %s, want %s", p.ID, i, blocks[i].ID, want[i].ID)
				}
			}
		}
	}

	for _, id := range vc.DeletedPages {
		if _, err := vc.Client.GetPage(ctx, id); !isNotFound(err) {
			return vc.errorf("deleted page %s still readable (err=%v)", id, err)
		}
	}
	for _, id := range vc.DeletedBlocks {
		if _, err := vc.Client.GetBlock(ctx, id); !isNotFound(err) {
			return vc.errorf("deleted block %s still readable (err=%v)", id, err)
		}
	}

	if vc.Portal != nil {
		members, err := vc.Client.ListMembers(ctx, vc.Portal.ID)
		if err != nil {
			return vc.errorf("list members: %w", err)
		}
		if len(members) != len(vc.Clients) {
			return vc.errorf("portal has %d members, want %d", len(members), len(vc.Clients))
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *client.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// RunScenario runs a full session and verifies the result. Even-indexed coaches
// mostly build; odd-indexed ones also delete pages.
func (vc *VirtualCoach) RunScenario(ctx context.Context) error {
	deleter := vc.Index%2 == 1

	numClients := vc.RNG.Intn(2) + 1
	for i := 0; i < numClients; i++ {
		c, err := vc.OnboardClient(ctx, i)
		if err != nil {
			return err
		}

		numPages := vc.RNG.Intn(3) + 1
		for j := 0; j < numPages; j++ {
			page, err := vc.CreatePage(ctx, c.ID, fmt.Sprintf("Week %d", j+1))
			if err != nil {
				return err
			}

			numBlocks := vc.RNG.Intn(5) + 1
			for k := 0; k < numBlocks; k++ {
				t := models.BlockTypes[vc.RNG.Intn(len(models.BlockTypes))]
				block, err := vc.AddBlock(ctx, page.ID, t)
				if err != nil {
					return err
				}
				// Only the newest block is deleted, so append positions stay unique.
				if vc.RNG.Float32() < 0.15 && len(vc.Blocks[page.ID]) > 1 {
					if err := vc.DeleteBlock(ctx, page.ID, block.ID); err != nil {
						return err
					}
				}
			}

			if vc.RNG.Float32() < 0.5 {
				if err := vc.ShuffleBlocks(ctx, page.ID); err != nil {
					return err
				}
			}

			if deleter && vc.RNG.Float32() < 0.2 && len(vc.Pages[c.ID]) > 1 {
				if err := vc.DeletePage(ctx, c.ID, page.ID); err != nil {
					return err
				}
			}
		}

		if err := vc.ReviewDeliverable(ctx, c.ID); err != nil {
			return err
		}
	}

	if err := vc.OpenPortal(ctx); err != nil {
		return err
	}
	return vc.Verify(ctx)
}
