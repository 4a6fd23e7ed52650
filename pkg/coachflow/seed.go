package coachflow

import (
	"context"
	"fmt"

	"github.com/apper-apps/coachflow-optimal/pkg/composition"
	"github.com/apper-apps/coachflow-optimal/pkg/models"
)

// Seeded lists the records created by Seed.
type Seeded struct {
	Client      *models.Client
	Workspace   *models.Page
	Blocks      []*models.Block
	Portal      *models.Portal
	PortalPages []*models.Page
	Member      *models.PortalMember
	Deliverable *models.Deliverable
	Resource    *models.Resource
}

// Seed loads a small demo practice into the store. Every record is created with
// its own store call; a failure leaves what was created so far in place.
func (a *App) Seed(ctx context.Context, cmd *SeedCommand) (*Seeded, error) {
	svc := a.services
	out := &Seeded{}
	var err error

	out.Client, err = svc.Clients.Create(ctx, models.Client{Name: "Jordan Avery", Email: "jordan@example.com"})
	if err != nil {
		return out, fmt.Errorf("create client: %w", err)
	}

	out.Workspace, err = svc.Pages.CreatePage(ctx, composition.ClientParent(out.Client.ID), "Client's Q1 Goals", "Target")
	if err != nil {
		return out, fmt.Errorf("create workspace page: %w", err)
	}
	board, err := svc.Pages.OpenBoard(ctx, out.Workspace.ID, composition.LogNotifier{
		Logger: a.log.With().Str("component", "seed").Str("page_id", out.Workspace.ID.String()).Logger(),
	})
	if err != nil {
		return out, fmt.Errorf("open workspace board: %w", err)
	}
	for _, t := range models.BlockTypes {
		b, err := board.Add(ctx, t)
		if err != nil {
			return out, fmt.Errorf("add %s block: %w", t, err)
		}
		out.Blocks = append(out.Blocks, b)
	}
	if n := len(out.Blocks); n > 0 && out.Blocks[n-1].Type == models.BlockTypeChecklist {
		checklist, err := svc.Pages.AddChecklistItem(ctx, out.Blocks[n-1].ID, "Book the kickoff session")
		if err != nil {
			return out, fmt.Errorf("add checklist item: %w", err)
		}
		out.Blocks[n-1] = checklist
	}

	out.Portal, err = svc.Portals.Create(ctx, models.Portal{
		Title:       "Leadership Foundations",
		Description: "Shared material for the spring cohort",
		OwnerID:     models.NewCoachID(),
	})
	if err != nil {
		return out, fmt.Errorf("create portal: %w", err)
	}
	out.PortalPages, err = svc.Portals.CreateDefaultPages(ctx, out.Portal.ID)
	if err != nil {
		return out, err
	}
	out.Member, err = svc.Members.AddMember(ctx, out.Portal.ID, out.Client.ID, models.RoleMember)
	if err != nil {
		return out, fmt.Errorf("add member: %w", err)
	}

	out.Deliverable, err = svc.Deliverables.CreateForPortal(ctx, out.Portal.ID, models.Deliverable{
		ClientID:    out.Client.ID,
		Title:       "Values reflection",
		Description: "First week's written exercise",
	})
	if err != nil {
		return out, fmt.Errorf("create deliverable: %w", err)
	}
	out.Resource, err = svc.Resources.Create(ctx, models.Resource{
		Title:    "Goal setting worksheet",
		Type:     "pdf",
		FileURL:  "https://example.com/worksheets/goals.pdf",
		Tags:     []string{"goals", "worksheet"},
		IsGlobal: true,
	})
	if err != nil {
		return out, fmt.Errorf("create resource: %w", err)
	}
	if _, err := svc.Notifications.Create(ctx, models.Notification{
		Title:   "New deliverable",
		Message: out.Client.Name + " submitted " + out.Deliverable.Title,
		Type:    "deliverable",
	}); err != nil {
		return out, fmt.Errorf("create notification: %w", err)
	}

	a.log.Info().
		Str("client_id", out.Client.ID.String()).
		Str("portal_id", out.Portal.ID.String()).
		Int("blocks", len(out.Blocks)).
		Msg("demo data seeded")
	return out, nil
}
