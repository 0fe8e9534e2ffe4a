package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/ports"
)

var ErrReadOnlyCollection = errors.New("collection baseline is derived and cannot be committed")

// NotificationLedger stores, per craving, the totals the user has already seen.
// It never fetches totals itself; callers pass the fresh total in.
type NotificationLedger struct {
	store  ports.KeyValueStore
	clock  ports.Clock
	logger *slog.Logger

	// serializes read-modify-write of entries
	mu sync.Mutex
}

func NewNotificationLedger(store ports.KeyValueStore, clock ports.Clock, logger *slog.Logger) *NotificationLedger {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &NotificationLedger{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// Entry loads the ledger entry of a craving. Absent or malformed entries read as empty.
func (l *NotificationLedger) Entry(ctx context.Context, craving string) (domain.LedgerEntry, error) {
	raw, err := l.store.Get(ctx, craving)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return domain.NewLedgerEntry(), nil
		}
		return domain.LedgerEntry{}, fmt.Errorf("load ledger entry: %w", err)
	}

	entry := domain.NewLedgerEntry()
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		l.logger.Warn("ignore malformed ledger entry", "craving", craving, "error", err)
		return domain.NewLedgerEntry(), nil
	}
	if entry.Reflections == nil {
		entry.Reflections = map[string]domain.ReflectionSeen{}
	}

	return entry, nil
}

// Delta returns how many items of currentTotal are new. ok is false unless the count is positive.
func (l *NotificationLedger) Delta(ctx context.Context, key domain.CollectionKey, currentTotal int) (n int, ok bool, err error) {
	if err := key.Validate(); err != nil {
		return 0, false, err
	}

	entry, err := l.Entry(ctx, key.Craving)
	if err != nil {
		return 0, false, err
	}

	n = currentTotal - entry.Baseline(key)
	if n <= 0 {
		return 0, false, nil
	}
	return n, true, nil
}

// Commit persists total as the new baseline. Call it only once the delta was surfaced.
func (l *NotificationLedger) Commit(ctx context.Context, key domain.CollectionKey, total int) error {
	if err := key.Validate(); err != nil {
		return err
	}

	return l.update(ctx, key.Craving, func(entry *domain.LedgerEntry, nowMillis int64) error {
		switch key.Kind {
		case domain.CollectionAssociations:
			entry.AssociationCount = &total
			entry.LatestAssociationUpdate = &nowMillis
		case domain.CollectionOffers:
			entry.OffersCount = &total
			entry.LatestOfferUpdate = &nowMillis
		case domain.CollectionReflectionComments:
			entry.Reflections[key.Reflection] = domain.ReflectionSeen{CommentsCount: total, LatestUpdate: nowMillis}
		default:
			return fmt.Errorf("commit %s: %w", key, ErrReadOnlyCollection)
		}
		return nil
	})
}

// MarkReflectionsSeen records reflections not yet known with zero seen comments.
// Known reflections keep their comment baseline.
func (l *NotificationLedger) MarkReflectionsSeen(ctx context.Context, craving string, reflections []string) error {
	return l.update(ctx, craving, func(entry *domain.LedgerEntry, nowMillis int64) error {
		for _, hash := range reflections {
			if _, ok := entry.Reflections[hash]; ok {
				continue
			}
			entry.Reflections[hash] = domain.ReflectionSeen{CommentsCount: 0, LatestUpdate: nowMillis}
		}
		return nil
	})
}

func (l *NotificationLedger) Clear(ctx context.Context, craving string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, craving); err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return fmt.Errorf("clear ledger entry: %w", err)
	}
	return nil
}

func (l *NotificationLedger) update(ctx context.Context, craving string, mutate func(*domain.LedgerEntry, int64) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, err := l.Entry(ctx, craving)
	if err != nil {
		return err
	}
	if err := mutate(&entry, l.clock.Now().UnixMilli()); err != nil {
		return err
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	if err := l.store.Put(ctx, craving, string(raw)); err != nil {
		return fmt.Errorf("save ledger entry: %w", err)
	}
	return nil
}

func notifiedKey(kind domain.CollectionKind, craving string) string {
	return fmt.Sprintf("%sNotified#%s", kind, craving)
}

// Notified returns the total last surfaced as a notification. ok is false when none was recorded.
func (l *NotificationLedger) Notified(ctx context.Context, craving string, kind domain.CollectionKind) (n int, ok bool, err error) {
	raw, err := l.store.Get(ctx, notifiedKey(kind, craving))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("load notified %s count: %w", kind, err)
	}

	n, err = strconv.Atoi(raw)
	if err != nil {
		l.logger.Warn("ignore malformed notified count", "craving", craving, "kind", kind, "error", err)
		return 0, false, nil
	}
	return n, true, nil
}

func (l *NotificationLedger) SetNotified(ctx context.Context, craving string, kind domain.CollectionKind, total int) error {
	if err := l.store.Put(ctx, notifiedKey(kind, craving), strconv.Itoa(total)); err != nil {
		return fmt.Errorf("save notified %s count: %w", kind, err)
	}
	return nil
}

func settingsKey(craving string) string {
	return "notificationSettings#" + craving
}

// NotificationSettingsStore keeps per-craving notification preferences next to the ledger.
type NotificationSettingsStore struct {
	store  ports.KeyValueStore
	logger *slog.Logger
}

func NewNotificationSettingsStore(store ports.KeyValueStore, logger *slog.Logger) *NotificationSettingsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationSettingsStore{store: store, logger: logger}
}

func (s *NotificationSettingsStore) Get(ctx context.Context, craving string) (domain.NotificationSettings, error) {
	raw, err := s.store.Get(ctx, settingsKey(craving))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return domain.DefaultNotificationSettings(), nil
		}
		return domain.NotificationSettings{}, fmt.Errorf("load notification settings: %w", err)
	}

	var settings domain.NotificationSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn("ignore malformed notification settings", "craving", craving, "error", err)
		return domain.DefaultNotificationSettings(), nil
	}
	return settings, nil
}

func (s *NotificationSettingsStore) Put(ctx context.Context, craving string, settings domain.NotificationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode notification settings: %w", err)
	}
	if err := s.store.Put(ctx, settingsKey(craving), string(raw)); err != nil {
		return fmt.Errorf("save notification settings: %w", err)
	}
	return nil
}

func (s *NotificationSettingsStore) Enable(ctx context.Context, craving string) error {
	return s.Put(ctx, craving, domain.EnabledNotificationSettings())
}

func (s *NotificationSettingsStore) Disable(ctx context.Context, craving string) error {
	return s.Put(ctx, craving, domain.DisabledNotificationSettings())
}
