package domain

import "fmt"

const (
	RoleCraving = "craving"
	RoleLobby   = "lobby"

	ZomeCraving = "craving"
	ZomeLobby   = "cravings"
)

type CellID struct {
	DnaHash     DnaHash     `msgpack:"dna_hash"`
	AgentPubKey AgentPubKey `msgpack:"agent_pub_key"`
}

// Key identifies the cell among the cells of one agent.
func (c CellID) Key() string {
	return c.DnaHash.B64()
}

func (c CellID) Equal(other CellID) bool {
	return c.DnaHash.Equal(other.DnaHash) && c.AgentPubKey.Equal(other.AgentPubKey)
}

func (c CellID) String() string {
	return fmt.Sprintf("%s:%s", c.DnaHash.B64(), c.AgentPubKey.B64())
}

type DnaModifiers struct {
	NetworkSeed string `msgpack:"network_seed"`
	// Properties are msgpack-encoded and hash-relevant.
	Properties []byte `msgpack:"properties"`
	OriginTime int64  `msgpack:"origin_time"`
}

type ClonedCell struct {
	CellID          CellID       `msgpack:"cell_id"`
	CloneID         string       `msgpack:"clone_id"`
	OriginalDnaHash DnaHash      `msgpack:"original_dna_hash"`
	DnaModifiers    DnaModifiers `msgpack:"dna_modifiers"`
	Name            string       `msgpack:"name"`
	Enabled         bool         `msgpack:"enabled"`
}

type ProvisionedCell struct {
	CellID       CellID       `msgpack:"cell_id"`
	DnaModifiers DnaModifiers `msgpack:"dna_modifiers"`
	Name         string       `msgpack:"name"`
}

// CellInfo holds exactly one of its fields.
type CellInfo struct {
	Provisioned *ProvisionedCell `msgpack:"provisioned,omitempty"`
	Cloned      *ClonedCell      `msgpack:"cloned,omitempty"`
}

type AppInfo struct {
	InstalledAppID string                `msgpack:"installed_app_id"`
	AgentPubKey    AgentPubKey           `msgpack:"agent_pub_key"`
	CellInfo       map[string][]CellInfo `msgpack:"cell_info"`
}

// ClonedCells returns the cloned cells of a role in enumeration order.
func (a AppInfo) ClonedCells(role string) []ClonedCell {
	cells := make([]ClonedCell, 0, len(a.CellInfo[role]))
	for _, info := range a.CellInfo[role] {
		if info.Cloned == nil {
			continue
		}
		cells = append(cells, *info.Cloned)
	}
	return cells
}

func (a AppInfo) FindClonedCell(role string, id CellID) (ClonedCell, bool) {
	for _, cell := range a.ClonedCells(role) {
		if cell.CellID.Equal(id) {
			return cell, true
		}
	}
	return ClonedCell{}, false
}

type CloneModifiers struct {
	NetworkSeed string `msgpack:"network_seed"`
	Properties  any    `msgpack:"properties"`
	OriginTime  int64  `msgpack:"origin_time,omitempty"`
}

type CreateCloneCellRequest struct {
	RoleName  string         `msgpack:"role_name"`
	Modifiers CloneModifiers `msgpack:"modifiers"`
	Name      string         `msgpack:"name"`
}

type ZomeCall struct {
	CellID   CellID `msgpack:"cell_id"`
	ZomeName string `msgpack:"zome_name"`
	FnName   string `msgpack:"fn_name"`
	Payload  any    `msgpack:"payload"`
}
