package domain

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

type ActionType string

const (
	ActionDna        ActionType = "Dna"
	ActionCreate     ActionType = "Create"
	ActionUpdate     ActionType = "Update"
	ActionDelete     ActionType = "Delete"
	ActionCreateLink ActionType = "CreateLink"
	ActionDeleteLink ActionType = "DeleteLink"
)

// Action is the header of a record. Timestamp is in microseconds since the unix epoch.
type Action struct {
	Type      ActionType  `msgpack:"type"`
	Author    AgentPubKey `msgpack:"author"`
	Timestamp int64       `msgpack:"timestamp"`
	EntryType string      `msgpack:"entry_type,omitempty"`
	EntryHash EntryHash   `msgpack:"entry_hash,omitempty"`

	// Set on updates and deletes.
	OriginalActionHash ActionHash `msgpack:"original_action_address,omitempty"`
}

func (a Action) Time() time.Time {
	return time.UnixMicro(a.Timestamp)
}

type Record struct {
	ActionHash ActionHash `msgpack:"action_hash"`
	Action     Action     `msgpack:"action"`
	Entry      []byte     `msgpack:"entry,omitempty"`
}

func (r Record) HasEntry() bool {
	return len(r.Entry) > 0
}

// DecodeEntry decodes the msgpack app entry carried by a record.
func DecodeEntry[T any](r Record) (T, error) {
	var out T
	if !r.HasEntry() {
		return out, fmt.Errorf("decode entry of %s: %w", r.ActionHash, ErrNoEntry)
	}
	if err := msgpack.Unmarshal(r.Entry, &out); err != nil {
		return out, fmt.Errorf("decode entry of %s: %w", r.ActionHash, err)
	}
	return out, nil
}

// EncodeEntry is the inverse of DecodeEntry.
func EncodeEntry(entry any) ([]byte, error) {
	raw, err := msgpack.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	return raw, nil
}

func MicrosToMillis(us int64) int64 {
	return us / 1000
}
