package domain

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type SignalKind string

const (
	SignalEntryCreated SignalKind = "EntryCreated"
	SignalEntryUpdated SignalKind = "EntryUpdated"
	SignalEntryDeleted SignalKind = "EntryDeleted"
	SignalLinkCreated  SignalKind = "LinkCreated"
	SignalLinkDeleted  SignalKind = "LinkDeleted"
)

// AppSignal is a push event as delivered by the conductor, before zome-level decoding.
type AppSignal struct {
	CellID   CellID             `msgpack:"cell_id"`
	ZomeName string             `msgpack:"zome_name"`
	Payload  msgpack.RawMessage `msgpack:"payload"`
}

// AppEntry is a tagged app entry: Type names the entry type, Entry holds its msgpack bytes.
type AppEntry struct {
	Type  string             `msgpack:"type"`
	Entry msgpack.RawMessage `msgpack:"entry"`
}

func NewAppEntry(entryType string, entry any) (AppEntry, error) {
	raw, err := msgpack.Marshal(entry)
	if err != nil {
		return AppEntry{}, fmt.Errorf("encode %s app entry: %w", entryType, err)
	}
	return AppEntry{Type: entryType, Entry: raw}, nil
}

func (e AppEntry) Decode(out any) error {
	if err := msgpack.Unmarshal(e.Entry, out); err != nil {
		return fmt.Errorf("decode %s app entry: %w", e.Type, err)
	}
	return nil
}

type EntrySignal struct {
	Type             SignalKind `msgpack:"type"`
	ActionHash       ActionHash `msgpack:"action_hash"`
	Action           Action     `msgpack:"action"`
	LinkType         string     `msgpack:"link_type,omitempty"`
	Record           *Record    `msgpack:"record,omitempty"`
	AppEntry         *AppEntry  `msgpack:"app_entry,omitempty"`
	OriginalRecord   *Record    `msgpack:"original_record,omitempty"`
	OriginalAppEntry *AppEntry  `msgpack:"original_app_entry,omitempty"`
}

func (s EntrySignal) IsEntryCreated(entryType string) bool {
	return s.Type == SignalEntryCreated && s.AppEntry != nil && s.AppEntry.Type == entryType && s.Record != nil
}

func DecodeEntrySignal(sig AppSignal) (EntrySignal, error) {
	var out EntrySignal
	if err := msgpack.Unmarshal(sig.Payload, &out); err != nil {
		return EntrySignal{}, fmt.Errorf("decode signal from %s/%s: %w", sig.CellID, sig.ZomeName, err)
	}
	return out, nil
}

func EncodeEntrySignal(cell CellID, zome string, payload EntrySignal) (AppSignal, error) {
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return AppSignal{}, fmt.Errorf("encode %s signal: %w", payload.Type, err)
	}
	return AppSignal{CellID: cell, ZomeName: zome, Payload: raw}, nil
}
