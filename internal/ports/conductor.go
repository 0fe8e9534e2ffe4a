package ports

import (
	"context"

	"github.com/bnema/condenser/internal/domain"
)

type SignalHandler func(domain.AppSignal)

// AppClient is the connection to the conductor for one installed app and one agent.
type AppClient interface {
	// CallZome decodes the zome function's return value into out. A nil out discards it.
	CallZome(ctx context.Context, call domain.ZomeCall, out any) error
	AppInfo(ctx context.Context) (domain.AppInfo, error)
	CreateCloneCell(ctx context.Context, req domain.CreateCloneCellRequest) (domain.ClonedCell, error)
	EnableCloneCell(ctx context.Context, id domain.CellID) (domain.ClonedCell, error)
	DisableCloneCell(ctx context.Context, id domain.CellID) error
	OnSignal(handler SignalHandler) (unsubscribe func())
	MyPubKey() domain.AgentPubKey
	Close() error
}
