package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/metrics"
	"github.com/bnema/condenser/internal/ports"
	"golang.org/x/sync/errgroup"
)

// NotificationService turns new activity in installed cravings into notifications.
// It keeps its own "notified" baselines so that it never advances the ledger the
// views read from.
type NotificationService struct {
	store    *CondenserStore
	settings *NotificationSettingsStore
	notifier ports.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewNotificationService(store *CondenserStore, settings *NotificationSettingsStore, notifier ports.Notifier, m *metrics.Metrics, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		store:    store,
		settings: settings,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// CravingTotals is the current size of each watched collection of one craving.
type CravingTotals struct {
	Associations int `json:"associations"`
	Offers       int `json:"offers"`
	Reflections  int `json:"reflections"`
	Comments     int `json:"comments"`
}

func (t CravingTotals) of(kind domain.CollectionKind) int {
	switch kind {
	case domain.CollectionAssociations:
		return t.Associations
	case domain.CollectionOffers:
		return t.Offers
	case domain.CollectionReflections:
		return t.Reflections
	default:
		return t.Comments
	}
}

func (t *CravingTotals) set(kind domain.CollectionKind, n int) {
	switch kind {
	case domain.CollectionAssociations:
		t.Associations = n
	case domain.CollectionOffers:
		t.Offers = n
	case domain.CollectionReflections:
		t.Reflections = n
	default:
		t.Comments = n
	}
}

var watchedKinds = []domain.CollectionKind{
	domain.CollectionAssociations,
	domain.CollectionOffers,
	domain.CollectionReflections,
	domain.CollectionComments,
}

// Totals reads the collection sizes of one craving from fresh poll cycles.
func Totals(ctx context.Context, craving *CravingStore) (CravingTotals, error) {
	var totals CravingTotals

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		associations, err := craving.PolledAssociations.Load(gctx)
		totals.Associations = len(associations)
		return err
	})
	g.Go(func() error {
		offers, err := craving.PolledOffers.Load(gctx)
		totals.Offers = len(offers)
		return err
	})
	g.Go(func() error {
		reflections, err := craving.AllReflections.Load(gctx)
		totals.Reflections = len(reflections)
		return err
	})
	g.Go(func() error {
		var err error
		totals.Comments, err = craving.AllCommentsCount.Load(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return CravingTotals{}, err
	}
	return totals, nil
}

// Check runs one pass over every installed craving and returns the notifications it sent.
// A craving whose totals cannot be fetched is skipped; its error is joined into the result.
func (s *NotificationService) Check(ctx context.Context) ([]domain.Notification, error) {
	var (
		sent []domain.Notification
		errs []error
	)
	for _, craving := range s.store.InstalledCravings() {
		out, err := s.CheckCraving(ctx, craving)
		sent = append(sent, out...)
		if err != nil {
			errs = append(errs, fmt.Errorf("craving %q: %w", craving.Craving().Title, err))
		}
	}
	return sent, errors.Join(errs...)
}

// CheckCraving notifies about what was added since the last notification. The first pass
// over a craving only records the baselines.
func (s *NotificationService) CheckCraving(ctx context.Context, craving *CravingStore) ([]domain.Notification, error) {
	totals, err := Totals(ctx, craving)
	if err != nil {
		return nil, err
	}

	key := craving.LedgerKey()
	settings, err := s.settings.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var sent []domain.Notification
	for _, kind := range watchedKinds {
		total := totals.of(kind)

		previous, ok, err := s.store.Ledger().Notified(ctx, key, kind)
		if err != nil {
			return sent, err
		}
		if !ok {
			if err := s.store.Ledger().SetNotified(ctx, key, kind, total); err != nil {
				return sent, err
			}
			continue
		}

		if total > previous {
			channels, err := settings.For(kind)
			if err != nil {
				return sent, err
			}
			n := buildNotification(craving.Craving().Title, key, kind, total-previous)
			if err := s.notifier.Notify(ctx, n, channels); err != nil {
				return sent, fmt.Errorf("notify %s: %w", kind, err)
			}
			s.metrics.Notification(string(kind))
			sent = append(sent, n)
		}

		if total != previous {
			if err := s.store.Ledger().SetNotified(ctx, key, kind, total); err != nil {
				return sent, err
			}
		}
	}

	if len(sent) > 0 {
		s.logger.Debug("sent notifications", "craving", craving.Craving().Title, "count", len(sent))
	}
	return sent, nil
}

func buildNotification(title string, craving string, kind domain.CollectionKind, count int) domain.Notification {
	n := domain.Notification{
		Craving: craving,
		Kind:    kind,
		Title:   title,
		Count:   count,
	}

	switch kind {
	case domain.CollectionAssociations:
		n.Body = plural(count, "new association", "new associations")
		n.Urgency = domain.UrgencyLow
	case domain.CollectionOffers:
		n.Body = plural(count, "new offer", "new offers")
		n.Urgency = domain.UrgencyMedium
	case domain.CollectionReflections:
		n.Body = plural(count, "new reflection", "new reflections")
		n.Urgency = domain.UrgencyMedium
	default:
		n.Body = plural(count, "new comment", "new comments")
		n.Urgency = domain.UrgencyMedium
	}
	return n
}

func plural(n int, one string, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
