package coaching

import (
	"context"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Notifications stores in-app notices for the coach. Delivery is up to the caller.
type Notifications struct {
	store store.Store
}

func NewNotifications(s store.Store) *Notifications {
	return &Notifications{store: s}
}

// Create stores an unread notification.
func (n *Notifications) Create(ctx context.Context, in models.Notification) (*models.Notification, error) {
	rec := &models.Notification{
		Title:   in.Title,
		Message: in.Message,
		Type:    in.Type,
	}
	if err := n.store.Notifications().Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (n *Notifications) List(ctx context.Context) ([]*models.Notification, error) {
	return n.store.Notifications().FetchMany(ctx, store.Query{}.Desc("created_at"))
}

// ListUnread returns unread notifications, newest first.
func (n *Notifications) ListUnread(ctx context.Context) ([]*models.Notification, error) {
	return n.store.Notifications().FetchMany(ctx, store.Where("is_read", false).Desc("created_at"))
}

func (n *Notifications) MarkAsRead(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	return n.store.Notifications().Update(ctx, id, store.Patch{"is_read": true})
}

// MarkAllAsRead marks every unread notification as read and reports how many
// were changed. It stops at the first failed update.
func (n *Notifications) MarkAllAsRead(ctx context.Context) (int, error) {
	unread, err := n.store.Notifications().FetchMany(ctx, store.Where("is_read", false))
	if err != nil {
		return 0, err
	}
	for i, rec := range unread {
		if _, err := n.MarkAsRead(ctx, rec.ID); err != nil {
			return i, err
		}
	}
	return len(unread), nil
}

func (n *Notifications) Delete(ctx context.Context, id models.NotificationID) error {
	return n.store.Notifications().Delete(ctx, id)
}
