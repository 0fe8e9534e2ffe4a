package memory

import (
	"fmt"

	"github.com/bnema/condenser/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

type zomeFn func(inv *invocation) (any, error)

type zomeDef struct {
	name string
	fns  map[string]zomeFn
}

// zomes maps a role name to the coordinator zome its cells run.
var zomes = map[string]zomeDef{
	domain.RoleCraving: {name: domain.ZomeCraving, fns: cravingFns},
	domain.RoleLobby:   {name: domain.ZomeLobby, fns: lobbyFns},
}

// invocation is one zome call. It runs with the network lock held and collects the
// signals to emit once the lock is released.
type invocation struct {
	net     *Network
	agent   domain.AgentPubKey
	cell    *cellState
	space   *space
	zome    string
	payload []byte
	signals []domain.AppSignal
}

func guest(format string, args ...any) error {
	return domain.NewGuestError(fmt.Sprintf(format, args...))
}

func decodePayload[T any](inv *invocation) (T, error) {
	var out T
	if err := msgpack.Unmarshal(inv.payload, &out); err != nil {
		return out, guest("Failed to deserialize input payload: %s", err)
	}
	return out, nil
}

func pathBase(name string) string {
	return "path:" + name
}

func (inv *invocation) signal(sig domain.EntrySignal) {
	encoded, err := domain.EncodeEntrySignal(inv.cell.Clone.CellID, inv.zome, sig)
	if err != nil {
		return
	}
	inv.signals = append(inv.signals, encoded)
}

func (inv *invocation) commit(action domain.Action, entry []byte) domain.Record {
	raw, _ := msgpack.Marshal([]any{action, inv.net.nextSeq()})
	record := domain.Record{
		ActionHash: domain.NewHash(domain.HashKindAction, raw),
		Action:     action,
		Entry:      entry,
	}
	inv.space.Records[record.ActionHash.B64()] = &stored{Record: record}
	return record
}

func (inv *invocation) createEntry(entryType string, entry any) (domain.Record, error) {
	raw, err := msgpack.Marshal(entry)
	if err != nil {
		return domain.Record{}, guest("Failed to serialize %s: %s", entryType, err)
	}

	record := inv.commit(domain.Action{
		Type:      domain.ActionCreate,
		Author:    inv.agent,
		Timestamp: inv.net.timestamp(),
		EntryType: entryType,
		EntryHash: domain.NewHash(domain.HashKindEntry, raw),
	}, raw)

	inv.signal(domain.EntrySignal{
		Type:       domain.SignalEntryCreated,
		ActionHash: record.ActionHash,
		Action:     record.Action,
		Record:     &record,
		AppEntry:   &domain.AppEntry{Type: entryType, Entry: raw},
	})
	return record, nil
}

func (inv *invocation) updateEntry(entryType string, previous domain.ActionHash, entry any) (domain.Record, error) {
	original := inv.get(previous)
	if original == nil {
		return domain.Record{}, guest("Could not find the %s to update: %s", entryType, previous)
	}

	raw, err := msgpack.Marshal(entry)
	if err != nil {
		return domain.Record{}, guest("Failed to serialize %s: %s", entryType, err)
	}

	record := inv.commit(domain.Action{
		Type:               domain.ActionUpdate,
		Author:             inv.agent,
		Timestamp:          inv.net.timestamp(),
		EntryType:          entryType,
		EntryHash:          domain.NewHash(domain.HashKindEntry, raw),
		OriginalActionHash: previous,
	}, raw)

	inv.signal(domain.EntrySignal{
		Type:             domain.SignalEntryUpdated,
		ActionHash:       record.ActionHash,
		Action:           record.Action,
		Record:           &record,
		AppEntry:         &domain.AppEntry{Type: entryType, Entry: raw},
		OriginalRecord:   original,
		OriginalAppEntry: &domain.AppEntry{Type: entryType, Entry: original.Entry},
	})
	return record, nil
}

func (inv *invocation) deleteEntry(target domain.ActionHash) (domain.ActionHash, error) {
	st, ok := inv.space.Records[target.B64()]
	if !ok || inv.get(target) == nil {
		return nil, guest("Could not find the record to delete: %s", target)
	}

	ts := inv.net.timestamp()
	record := inv.commit(domain.Action{
		Type:               domain.ActionDelete,
		Author:             inv.agent,
		Timestamp:          ts,
		OriginalActionHash: target,
	}, nil)

	st.Deleted = true
	st.DeletedBy = inv.agent
	st.DeletedAt = ts

	inv.signal(domain.EntrySignal{
		Type:             domain.SignalEntryDeleted,
		ActionHash:       record.ActionHash,
		Action:           record.Action,
		OriginalAppEntry: &domain.AppEntry{Type: st.Record.Action.EntryType, Entry: st.Record.Entry},
	})
	return record.ActionHash, nil
}

// get returns the record of an action if this agent can see it and it was not deleted.
func (inv *invocation) get(hash domain.ActionHash) *domain.Record {
	st, ok := inv.space.Records[hash.B64()]
	if !ok {
		return nil
	}
	if !inv.net.visible(inv.agent, st.Record.Action.Author, st.Record.Action.Timestamp) {
		return nil
	}
	if st.Deleted && inv.net.visible(inv.agent, st.DeletedBy, st.DeletedAt) {
		return nil
	}
	record := st.Record
	return &record
}

// getEntry returns the earliest live record creating the entry.
func (inv *invocation) getEntry(hash domain.EntryHash) *domain.Record {
	var found *domain.Record
	for key, st := range inv.space.Records {
		if !st.Record.Action.EntryHash.Equal(hash) {
			continue
		}
		record := inv.get(st.Record.ActionHash)
		if record == nil {
			continue
		}
		if found == nil || record.Action.Timestamp < found.Action.Timestamp ||
			(record.Action.Timestamp == found.Action.Timestamp && key < found.ActionHash.B64()) {
			found = record
		}
	}
	return found
}

// latest follows the update links of an original action and returns its newest revision.
func (inv *invocation) latest(original domain.ActionHash, updatesType string) *domain.Record {
	var newest *link
	for _, l := range inv.links(original.B64(), updatesType) {
		if newest == nil || l.Timestamp > newest.Timestamp {
			newest = l
		}
	}
	if newest == nil {
		return inv.get(original)
	}
	return inv.get(newest.Target)
}

func (inv *invocation) createLink(base string, target domain.Hash, linkType string) {
	ts := inv.net.timestamp()
	raw, _ := msgpack.Marshal([]any{base, target, linkType, inv.agent, ts, inv.net.nextSeq()})
	l := &link{
		Hash:      domain.NewHash(domain.HashKindAction, raw),
		Base:      base,
		Target:    target,
		Type:      linkType,
		Author:    inv.agent,
		Timestamp: ts,
	}
	inv.space.Links = append(inv.space.Links, l)

	inv.signal(domain.EntrySignal{
		Type:       domain.SignalLinkCreated,
		ActionHash: l.Hash,
		Action:     domain.Action{Type: domain.ActionCreateLink, Author: inv.agent, Timestamp: ts},
		LinkType:   linkType,
	})
}

func (inv *invocation) deleteLink(l *link) {
	ts := inv.net.timestamp()
	l.Deleted = true
	l.DeletedBy = inv.agent
	l.DeletedAt = ts

	raw, _ := msgpack.Marshal([]any{l.Hash, inv.agent, ts, inv.net.nextSeq()})
	inv.signal(domain.EntrySignal{
		Type:       domain.SignalLinkDeleted,
		ActionHash: domain.NewHash(domain.HashKindAction, raw),
		Action:     domain.Action{Type: domain.ActionDeleteLink, Author: inv.agent, Timestamp: ts},
		LinkType:   l.Type,
	})
}

// links returns the live links of a type from base, oldest first.
func (inv *invocation) links(base string, linkType string) []*link {
	var out []*link
	for _, l := range inv.space.Links {
		if l.Base != base || l.Type != linkType {
			continue
		}
		if !inv.net.visible(inv.agent, l.Author, l.Timestamp) {
			continue
		}
		if l.Deleted && inv.net.visible(inv.agent, l.DeletedBy, l.DeletedAt) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// linkedRecords resolves link targets to live records, skipping the ones that are gone.
func (inv *invocation) linkedRecords(base string, linkType string) []domain.Record {
	links := inv.links(base, linkType)
	records := make([]domain.Record, 0, len(links))
	for _, l := range links {
		if record := inv.get(l.Target); record != nil {
			records = append(records, *record)
		}
	}
	return records
}

// dedupByEntry keeps one record per entry hash, in order of first appearance.
func (inv *invocation) dedupByEntry(records []domain.Record) []domain.Record {
	seen := map[string]struct{}{}
	out := make([]domain.Record, 0, len(records))
	for _, record := range records {
		key := record.Action.EntryHash.B64()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if canonical := inv.getEntry(record.Action.EntryHash); canonical != nil {
			out = append(out, *canonical)
		}
	}
	return out
}
