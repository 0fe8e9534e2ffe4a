package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/bnema/condenser/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ResonatedRecord is a record together with the agents resonating with its entry.
// Timestamp is the action timestamp in microseconds.
type ResonatedRecord struct {
	Record     domain.Record        `json:"-"`
	Resonators []domain.AgentPubKey `json:"resonators"`
	IResonated bool                 `json:"i_resonated"`
	Timestamp  int64                `json:"timestamp"`
}

type (
	AssociationData = ResonatedRecord
	OfferData       = ResonatedRecord
)

type ResonatorsFunc func(ctx context.Context, entryHash domain.EntryHash) ([]domain.AgentPubKey, error)

// Enrich fetches the resonators of every record concurrently and returns them in input order.
// Any failed fetch fails the whole batch.
func Enrich(ctx context.Context, records []domain.Record, me domain.AgentPubKey, resonators ResonatorsFunc) ([]ResonatedRecord, error) {
	out := make([]ResonatedRecord, len(records))

	g, gctx := errgroup.WithContext(ctx)
	for i, record := range records {
		g.Go(func() error {
			agents, err := resonators(gctx, record.Action.EntryHash)
			if err != nil {
				return fmt.Errorf("get resonators for %s: %w", record.ActionHash, err)
			}
			out[i] = ResonatedRecord{
				Record:     record,
				Resonators: agents,
				IResonated: domain.ContainsHash(agents, me),
				Timestamp:  record.Action.Timestamp,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

type SortOrder string

const (
	SortResonance SortOrder = "resonance"
	SortLatest    SortOrder = "latest"
)

func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(raw) {
	case SortResonance, "":
		return SortResonance, nil
	case SortLatest:
		return SortLatest, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", raw)
	}
}

// SortByResonance orders by resonator count, most first. Ties keep their input order.
func SortByResonance(items []ResonatedRecord) []ResonatedRecord {
	out := append([]ResonatedRecord(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Resonators) > len(out[j].Resonators)
	})
	return out
}

// SortByLatest orders newest first. Ties keep their input order.
func SortByLatest(items []ResonatedRecord) []ResonatedRecord {
	out := append([]ResonatedRecord(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

func SortResonated(items []ResonatedRecord, order SortOrder) []ResonatedRecord {
	if order == SortLatest {
		return SortByLatest(items)
	}
	return SortByResonance(items)
}

// SortRecordsNewestFirst orders plain records by action timestamp, newest first.
func SortRecordsNewestFirst(records []domain.Record) []domain.Record {
	out := append([]domain.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Action.Timestamp > out[j].Action.Timestamp
	})
	return out
}
