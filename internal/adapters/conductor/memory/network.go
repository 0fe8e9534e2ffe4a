// Package memory is an in-process conductor running the craving and lobby zomes.
// It backs tests and the offline CLI backend.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/bnema/condenser/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

type Option func(*Network)

func WithClock(now func() time.Time) Option {
	return func(n *Network) {
		if now != nil {
			n.now = now
		}
	}
}

// WithPropagationDelay hides data from agents other than its author until the delay has passed.
func WithPropagationDelay(d time.Duration) Option {
	return func(n *Network) {
		n.delay = d
	}
}

// Network is the shared state of every agent and dna space. One lock guards all of it.
type Network struct {
	mu    sync.Mutex
	now   func() time.Time
	delay time.Duration

	state networkState
}

type networkState struct {
	LastTimestamp int64                  `msgpack:"last_timestamp"`
	Seq           uint64                 `msgpack:"seq"`
	Spaces        map[string]*space      `msgpack:"spaces"`
	Agents        map[string]*agentState `msgpack:"agents"`
}

type agentState struct {
	AppID string       `msgpack:"app_id"`
	Name  string       `msgpack:"name"`
	Cells []*cellState `msgpack:"cells"`
	// next clone index per role
	CloneIndex map[string]int `msgpack:"clone_index"`
}

type cellState struct {
	Role     string            `msgpack:"role"`
	Clone    domain.ClonedCell `msgpack:"clone"`
	InitTime int64             `msgpack:"init_time"`
}

// space is the shared data of one dna: every agent holding a cell of it sees the same records.
type space struct {
	Role      string              `msgpack:"role"`
	DnaHash   domain.DnaHash      `msgpack:"dna_hash"`
	Modifiers domain.DnaModifiers `msgpack:"modifiers"`
	Records   map[string]*stored  `msgpack:"records"`
	Links     []*link             `msgpack:"links"`
}

type stored struct {
	Record    domain.Record      `msgpack:"record"`
	Deleted   bool               `msgpack:"deleted"`
	DeletedBy domain.AgentPubKey `msgpack:"deleted_by"`
	DeletedAt int64              `msgpack:"deleted_at"`
}

type link struct {
	Hash      domain.ActionHash  `msgpack:"hash"`
	Base      string             `msgpack:"base"`
	Target    domain.Hash        `msgpack:"target"`
	Type      string             `msgpack:"type"`
	Author    domain.AgentPubKey `msgpack:"author"`
	Timestamp int64              `msgpack:"timestamp"`
	Deleted   bool               `msgpack:"deleted"`
	DeletedBy domain.AgentPubKey `msgpack:"deleted_by"`
	DeletedAt int64              `msgpack:"deleted_at"`
}

func NewNetwork(opts ...Option) *Network {
	n := &Network{
		now: time.Now,
		state: networkState{
			Spaces: map[string]*space{},
			Agents: map[string]*agentState{},
		},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AgentKey is the public key the network assigns to an agent name.
func AgentKey(name string) domain.AgentPubKey {
	return domain.NewHash(domain.HashKindAgent, []byte("agent:"+name))
}

// Conductor returns the app client of one agent, creating the agent on first use.
func (n *Network) Conductor(appID string, agentName string) *Conductor {
	key := AgentKey(agentName)

	n.mu.Lock()
	if _, ok := n.state.Agents[key.B64()]; !ok {
		n.state.Agents[key.B64()] = &agentState{
			AppID:      appID,
			Name:       agentName,
			CloneIndex: map[string]int{},
		}
	}
	n.mu.Unlock()

	return newConductor(n, appID, key)
}

// Save encodes the whole network so that LoadNetwork can restore it.
func (n *Network) Save() ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	raw, err := msgpack.Marshal(&n.state)
	if err != nil {
		return nil, fmt.Errorf("encode memory network: %w", err)
	}
	return raw, nil
}

func LoadNetwork(raw []byte, opts ...Option) (*Network, error) {
	n := NewNetwork(opts...)
	if len(raw) == 0 {
		return n, nil
	}
	if err := msgpack.Unmarshal(raw, &n.state); err != nil {
		return nil, fmt.Errorf("decode memory network: %w", err)
	}
	if n.state.Spaces == nil {
		n.state.Spaces = map[string]*space{}
	}
	if n.state.Agents == nil {
		n.state.Agents = map[string]*agentState{}
	}
	for _, agent := range n.state.Agents {
		if agent.CloneIndex == nil {
			agent.CloneIndex = map[string]int{}
		}
	}
	return n, nil
}

// timestamp returns a strictly increasing time in microseconds. Callers hold n.mu.
func (n *Network) timestamp() int64 {
	ts := n.now().UnixMicro()
	if ts <= n.state.LastTimestamp {
		ts = n.state.LastTimestamp + 1
	}
	n.state.LastTimestamp = ts
	return ts
}

func (n *Network) nextSeq() uint64 {
	n.state.Seq++
	return n.state.Seq
}

// visible reports whether data authored at ts is visible to viewer. Callers hold n.mu.
func (n *Network) visible(viewer domain.AgentPubKey, author domain.AgentPubKey, ts int64) bool {
	if n.delay <= 0 || viewer.Equal(author) {
		return true
	}
	return n.now().UnixMicro() >= ts+n.delay.Microseconds()
}

// spaceFor returns the dna space for the modifiers, creating it when absent. Callers hold n.mu.
func (n *Network) spaceFor(role string, modifiers domain.DnaModifiers) *space {
	dna := dnaHash(role, modifiers)
	if s, ok := n.state.Spaces[dna.B64()]; ok {
		return s
	}
	s := &space{
		Role:      role,
		DnaHash:   dna,
		Modifiers: modifiers,
		Records:   map[string]*stored{},
	}
	n.state.Spaces[dna.B64()] = s
	return s
}

func dnaHash(role string, modifiers domain.DnaModifiers) domain.DnaHash {
	raw, _ := msgpack.Marshal([]any{role, modifiers.NetworkSeed, modifiers.Properties, modifiers.OriginTime})
	return domain.NewHash(domain.HashKindDna, raw)
}
