package port

import (
	"context"

	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// Directory resolves users and role groups from the corporate directory
type Directory interface {
	GetUser(ctx context.Context, id string) (*entity.User, error)
	LookupUsersByGroup(ctx context.Context, role entity.Role) ([]*entity.User, error)
}

// Notifier delivers a queued notification to its recipient. Delivery failure
// is reported, never fatal to the transition that queued it.
type Notifier interface {
	Send(ctx context.Context, n *entity.Notification) error
}
