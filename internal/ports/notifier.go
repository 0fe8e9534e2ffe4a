package ports

import (
	"context"

	"github.com/bnema/condenser/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification, channels domain.ChannelSettings) error
}
