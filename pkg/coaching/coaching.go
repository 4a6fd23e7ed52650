// Package coaching implements the coach-facing services around the composition
// engine: portals and their membership, client records, deliverable review,
// the resource library and in-app notifications.
//
// Every service is a thin layer over a [store.Store]. Services keep no state of
// their own, so any number of them may share one store.
package coaching

import (
	"github.com/rs/zerolog"

	"github.com/apper-apps/coachflow-optimal/pkg/composition"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Services bundles the composition engine and every coaching service over one store.
type Services struct {
	Pages         *composition.Engine
	Portals       *Portals
	Members       *Members
	Clients       *Clients
	Deliverables  *Deliverables
	Resources     *Resources
	Notifications *Notifications
}

func New(s store.Store, log zerolog.Logger) *Services {
	pages := composition.NewEngine(s, log)
	return &Services{
		Pages:         pages,
		Portals:       NewPortals(s, pages, log),
		Members:       NewMembers(s, log),
		Clients:       NewClients(s),
		Deliverables:  NewDeliverables(s, log),
		Resources:     NewResources(s),
		Notifications: NewNotifications(s),
	}
}
