package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/ports"
	"github.com/vmihailenco/msgpack/v5"
)

var _ ports.AppClient = (*Conductor)(nil)

// Conductor is one agent's app client on a Network.
type Conductor struct {
	net   *Network
	appID string
	agent domain.AgentPubKey

	sigMu    sync.Mutex
	handlers map[uint64]ports.SignalHandler
	nextID   uint64

	failMu   sync.Mutex
	failures map[string]error

	closed atomic.Bool
}

func newConductor(n *Network, appID string, agent domain.AgentPubKey) *Conductor {
	return &Conductor{
		net:      n,
		appID:    appID,
		agent:    agent,
		handlers: map[uint64]ports.SignalHandler{},
		failures: map[string]error{},
	}
}

func (c *Conductor) MyPubKey() domain.AgentPubKey {
	return c.agent
}

func (c *Conductor) Close() error {
	c.closed.Store(true)
	return nil
}

// FailCalls makes every call of fn on the given dna fail with err. A nil err clears it.
func (c *Conductor) FailCalls(dna domain.DnaHash, fn string, err error) {
	c.failMu.Lock()
	defer c.failMu.Unlock()

	key := dna.B64() + "/" + fn
	if err == nil {
		delete(c.failures, key)
		return
	}
	c.failures[key] = err
}

func (c *Conductor) injected(dna domain.DnaHash, fn string) error {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	return c.failures[dna.B64()+"/"+fn]
}

func (c *Conductor) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return fmt.Errorf("%s: %w", op, domain.ErrConductorUnreachable)
	}
	return nil
}

// agentState returns this conductor's state. Callers hold c.net.mu.
func (c *Conductor) agentState() *agentState {
	return c.net.state.Agents[c.agent.B64()]
}

func (c *Conductor) findCell(id domain.CellID) (*cellState, bool) {
	if !id.AgentPubKey.Equal(c.agent) {
		return nil, false
	}
	for _, cell := range c.agentState().Cells {
		if cell.Clone.CellID.DnaHash.Equal(id.DnaHash) {
			return cell, true
		}
	}
	return nil, false
}

func (c *Conductor) AppInfo(ctx context.Context) (domain.AppInfo, error) {
	if err := c.check(ctx, "app_info"); err != nil {
		return domain.AppInfo{}, err
	}

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	info := domain.AppInfo{
		InstalledAppID: c.appID,
		AgentPubKey:    c.agent,
		CellInfo: map[string][]domain.CellInfo{
			domain.RoleCraving: {},
			domain.RoleLobby:   {},
		},
	}
	for _, cell := range c.agentState().Cells {
		clone := cell.Clone
		info.CellInfo[cell.Role] = append(info.CellInfo[cell.Role], domain.CellInfo{Cloned: &clone})
	}
	return info, nil
}

func (c *Conductor) CreateCloneCell(ctx context.Context, req domain.CreateCloneCellRequest) (domain.ClonedCell, error) {
	if err := c.check(ctx, "create_clone_cell"); err != nil {
		return domain.ClonedCell{}, err
	}
	if _, ok := zomes[req.RoleName]; !ok {
		return domain.ClonedCell{}, &domain.ConductorError{
			Type:    domain.ConductorErrorInternal,
			Message: fmt.Sprintf("no role named %q", req.RoleName),
		}
	}

	props, err := msgpack.Marshal(req.Modifiers.Properties)
	if err != nil {
		return domain.ClonedCell{}, fmt.Errorf("encode clone properties: %w", err)
	}
	modifiers := domain.DnaModifiers{
		NetworkSeed: req.Modifiers.NetworkSeed,
		Properties:  props,
		OriginTime:  req.Modifiers.OriginTime,
	}

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	space := c.net.spaceFor(req.RoleName, modifiers)
	id := domain.CellID{DnaHash: space.DnaHash, AgentPubKey: c.agent}
	if _, ok := c.findCell(id); ok {
		return domain.ClonedCell{}, &domain.ConductorError{
			Type:    domain.ConductorErrorInternal,
			Message: fmt.Sprintf("duplicate cell %s", id),
		}
	}

	state := c.agentState()
	index := state.CloneIndex[req.RoleName]
	state.CloneIndex[req.RoleName] = index + 1

	cell := &cellState{
		Role: req.RoleName,
		Clone: domain.ClonedCell{
			CellID:          id,
			CloneID:         fmt.Sprintf("%s.%d", req.RoleName, index),
			OriginalDnaHash: domain.NewHash(domain.HashKindDna, []byte("role:"+req.RoleName)),
			DnaModifiers:    modifiers,
			Name:            req.Name,
			Enabled:         true,
		},
		InitTime: c.net.timestamp(),
	}
	state.Cells = append(state.Cells, cell)

	return cell.Clone, nil
}

func (c *Conductor) EnableCloneCell(ctx context.Context, id domain.CellID) (domain.ClonedCell, error) {
	if err := c.check(ctx, "enable_clone_cell"); err != nil {
		return domain.ClonedCell{}, err
	}

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	cell, ok := c.findCell(id)
	if !ok {
		return domain.ClonedCell{}, cellMissing(id)
	}
	cell.Clone.Enabled = true
	return cell.Clone, nil
}

func (c *Conductor) DisableCloneCell(ctx context.Context, id domain.CellID) error {
	if err := c.check(ctx, "disable_clone_cell"); err != nil {
		return err
	}

	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	cell, ok := c.findCell(id)
	if !ok {
		return cellMissing(id)
	}
	cell.Clone.Enabled = false
	return nil
}

func cellMissing(id domain.CellID) error {
	return &domain.ConductorError{
		Type:    domain.ConductorErrorInternal,
		Message: fmt.Sprintf("cell missing: %s", id),
	}
}

func (c *Conductor) OnSignal(handler ports.SignalHandler) func() {
	c.sigMu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	c.sigMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.sigMu.Lock()
			delete(c.handlers, id)
			c.sigMu.Unlock()
		})
	}
}

// emit delivers signals to this conductor's handlers. It must be called without any lock held.
func (c *Conductor) emit(signals []domain.AppSignal) {
	if len(signals) == 0 {
		return
	}

	c.sigMu.Lock()
	handlers := make([]ports.SignalHandler, 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.sigMu.Unlock()

	for _, sig := range signals {
		for _, h := range handlers {
			h(sig)
		}
	}
}

func (c *Conductor) CallZome(ctx context.Context, call domain.ZomeCall, out any) error {
	if err := c.check(ctx, call.FnName); err != nil {
		return err
	}
	if err := c.injected(call.CellID.DnaHash, call.FnName); err != nil {
		return err
	}

	payload, err := msgpack.Marshal(call.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", call.FnName, err)
	}

	result, signals, err := c.invoke(call, payload)
	c.emit(signals)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	raw, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", call.FnName, err)
	}
	if err := msgpack.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", call.FnName, err)
	}
	return nil
}

func (c *Conductor) invoke(call domain.ZomeCall, payload []byte) (any, []domain.AppSignal, error) {
	c.net.mu.Lock()
	defer c.net.mu.Unlock()

	cell, ok := c.findCell(call.CellID)
	if !ok {
		return nil, nil, cellMissing(call.CellID)
	}
	if !cell.Clone.Enabled {
		return nil, nil, &domain.ConductorError{
			Type:    domain.ConductorErrorInternal,
			Message: fmt.Sprintf("cell disabled: %s", call.CellID),
		}
	}

	zome := zomes[cell.Role]
	if call.ZomeName != zome.name {
		return nil, nil, &domain.ConductorError{
			Type:    domain.ConductorErrorInternal,
			Message: fmt.Sprintf("zome not found: %s", call.ZomeName),
		}
	}
	fn, ok := zome.fns[call.FnName]
	if !ok {
		return nil, nil, &domain.ConductorError{
			Type:    domain.ConductorErrorRibosome,
			Message: fmt.Sprintf("Attempted to call a zome function that doesn't exist: Zome: %s Fn %s", call.ZomeName, call.FnName),
		}
	}

	inv := &invocation{
		net:     c.net,
		agent:   c.agent,
		cell:    cell,
		space:   c.net.state.Spaces[cell.Clone.CellID.DnaHash.B64()],
		payload: payload,
		zome:    zome.name,
	}
	result, err := fn(inv)
	if err != nil {
		return nil, nil, err
	}
	return result, inv.signals, nil
}
