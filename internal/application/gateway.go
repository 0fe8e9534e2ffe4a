package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/metrics"
	"github.com/bnema/condenser/internal/ports"
	"github.com/vmihailenco/msgpack/v5"
)

// Gateway binds zome calls and signal subscriptions to one cell and zome.
// Calls are never retried here.
type Gateway struct {
	client  ports.AppClient
	cell    domain.CellID
	zome    string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type GatewayOption func(*Gateway)

// WithCallTimeout bounds every call. Zero leaves calls unbounded.
func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = d
	}
}

func WithMetrics(m *metrics.Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGateway(client ports.AppClient, cell domain.CellID, zome string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client: client,
		cell:   cell,
		zome:   zome,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) CellID() domain.CellID {
	return g.cell
}

func (g *Gateway) MyPubKey() domain.AgentPubKey {
	return g.client.MyPubKey()
}

// Invoke calls fn with payload and decodes the result into out. Failures come back as *GatewayError.
func (g *Gateway) Invoke(ctx context.Context, fn string, payload any, out any) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	call := domain.ZomeCall{
		CellID:   g.cell,
		ZomeName: g.zome,
		FnName:   fn,
		Payload:  payload,
	}
	if err := g.client.CallZome(ctx, call, out); err != nil {
		gwErr := classifyCallError(fn, err)
		g.metrics.ZomeCall(fn, gwErr.Kind.String())
		return gwErr
	}

	g.metrics.ZomeCall(fn, "ok")
	return nil
}

// Subscribe delivers decoded signals emitted by this gateway's cell and zome. Other signals are dropped.
func (g *Gateway) Subscribe(handler func(domain.EntrySignal)) (unsubscribe func()) {
	return g.client.OnSignal(func(sig domain.AppSignal) {
		if !sig.CellID.Equal(g.cell) || sig.ZomeName != g.zome {
			return
		}
		decoded, err := domain.DecodeEntrySignal(sig)
		if err != nil {
			g.logger.Debug("drop undecodable signal", "cell", g.cell.String(), "zome", g.zome, "error", err)
			return
		}
		handler(decoded)
	})
}

// cloneProperties decodes the dna properties of this gateway's cloned cell.
func (g *Gateway) cloneProperties(ctx context.Context, role string, out any) (domain.ClonedCell, error) {
	info, err := g.client.AppInfo(ctx)
	if err != nil {
		return domain.ClonedCell{}, classifyCallError("app_info", err)
	}
	cell, ok := info.FindClonedCell(role, g.cell)
	if !ok {
		return domain.ClonedCell{}, fmt.Errorf("%s cell %s: %w", role, g.cell, domain.ErrCellNotFound)
	}
	if err := msgpack.Unmarshal(cell.DnaModifiers.Properties, out); err != nil {
		return domain.ClonedCell{}, fmt.Errorf("decode %s dna properties: %w", role, err)
	}
	return cell, nil
}
