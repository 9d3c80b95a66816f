package accounts

import (
	"context"

	domainevents "leadngn_backend/internal/events"
	"leadngn_backend/platform/events"
)

// SubscribeInvalidation drops cached account views whenever a member lead
// changes, so group views never serve stale data past a mutation.
func (s *Service) SubscribeInvalidation(bus events.Bus) {
	handler := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		switch e := event.(type) {
		case domainevents.LeadCreated:
			s.Invalidate(ctx, e.EmailDomain)
		case domainevents.LeadRescored:
			s.Invalidate(ctx, e.EmailDomain)
		case domainevents.LeadFieldReverted:
			s.Invalidate(ctx, e.EmailDomain)
		}
		return nil
	})

	bus.Subscribe(domainevents.LeadCreatedName, handler)
	bus.Subscribe(domainevents.LeadRescoredName, handler)
	bus.Subscribe(domainevents.LeadFieldRevertedName, handler)
}
