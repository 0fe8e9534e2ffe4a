package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/condenser/internal/domain"
	"golang.org/x/sync/errgroup"
)

type PollIntervals struct {
	PolledAssociations   time.Duration
	PolledOffers         time.Duration
	Associations         time.Duration
	Offers               time.Duration
	Reflections          time.Duration
	CommentsCount        time.Duration
	CommentsOnReflection time.Duration
}

func DefaultPollIntervals() PollIntervals {
	return PollIntervals{
		PolledAssociations:   2 * time.Second,
		PolledOffers:         2 * time.Second,
		Associations:         time.Second,
		Offers:               time.Second,
		Reflections:          time.Second,
		CommentsCount:        3500 * time.Millisecond,
		CommentsOnReflection: time.Second,
	}
}

// CravingStore exposes the polled collections of one craving cell and its ledger bookkeeping.
type CravingStore struct {
	service  *CravingService
	craving  domain.CravingDnaProperties
	initTime int64
	ledger   *NotificationLedger

	intervals   PollIntervals
	pollerOpts  []PollerOption
	ledgerKey   string
	commentsMu  sync.Mutex
	commentsFor map[string]*Poller[[]domain.Record]

	// Raw lists, for counts on overview cards.
	PolledAssociations *Poller[[]domain.Record]
	PolledOffers       *Poller[[]domain.Record]

	AllAssociations  *Poller[[]ResonatedRecord]
	AllOffers        *Poller[[]ResonatedRecord]
	AllReflections   *Poller[[]domain.Record]
	AllCommentsCount *Poller[int]
}

// ConnectCravingStore loads the craving's properties and init time. Pollers stay idle until subscribed.
func ConnectCravingStore(ctx context.Context, service *CravingService, ledger *NotificationLedger, intervals PollIntervals, opts ...PollerOption) (*CravingStore, error) {
	craving, err := service.Craving(ctx)
	if err != nil {
		return nil, fmt.Errorf("get craving properties: %w", err)
	}
	initTime, err := service.InitTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("get craving init time: %w", err)
	}

	s := &CravingStore{
		service:     service,
		craving:     craving,
		initTime:    initTime,
		ledger:      ledger,
		intervals:   intervals,
		pollerOpts:  opts,
		ledgerKey:   service.CellID().Key(),
		commentsFor: map[string]*Poller[[]domain.Record]{},
	}

	s.PolledAssociations = NewPoller("polled_associations", intervals.PolledAssociations, service.GetAllAssociations, opts...)
	s.PolledOffers = NewPoller("polled_offers", intervals.PolledOffers, service.GetAllOffers, opts...)
	s.AllAssociations = NewPoller("associations", intervals.Associations, s.fetchEnriched(service.GetAllAssociations), opts...)
	s.AllOffers = NewPoller("offers", intervals.Offers, s.fetchEnriched(service.GetAllOffers), opts...)
	s.AllReflections = NewPoller("reflections", intervals.Reflections, service.GetAllReflections, opts...)
	s.AllCommentsCount = NewPoller("comments_count", intervals.CommentsCount, s.fetchCommentsCount, opts...)

	return s, nil
}

func (s *CravingStore) Service() *CravingService {
	return s.service
}

func (s *CravingStore) CellID() domain.CellID {
	return s.service.CellID()
}

func (s *CravingStore) Craving() domain.CravingDnaProperties {
	return s.craving
}

// InitTime is when the cell was installed, in unix milliseconds.
func (s *CravingStore) InitTime() int64 {
	return s.initTime
}

func (s *CravingStore) LedgerKey() string {
	return s.ledgerKey
}

// CommentsOnReflection returns the poller of one reflection's comments, creating it on first use.
func (s *CravingStore) CommentsOnReflection(reflection domain.ActionHash) *Poller[[]domain.Record] {
	key := reflection.B64()

	s.commentsMu.Lock()
	defer s.commentsMu.Unlock()

	if p, ok := s.commentsFor[key]; ok {
		return p
	}
	p := NewPoller("comments_on_reflection", s.intervals.CommentsOnReflection, func(ctx context.Context) ([]domain.Record, error) {
		return s.service.GetCommentsOnReflection(ctx, reflection)
	}, s.pollerOpts...)
	s.commentsFor[key] = p
	return p
}

func (s *CravingStore) fetchEnriched(list func(context.Context) ([]domain.Record, error)) FetchFunc[[]ResonatedRecord] {
	return func(ctx context.Context) ([]ResonatedRecord, error) {
		records, err := list(ctx)
		if err != nil {
			return nil, err
		}
		return Enrich(ctx, records, s.service.MyPubKey(), s.service.GetResonatorsForEntry)
	}
}

func (s *CravingStore) fetchCommentsCount(ctx context.Context) (int, error) {
	reflections, err := s.service.GetAllReflections(ctx)
	if err != nil {
		return 0, err
	}

	counts := make([]int, len(reflections))
	g, gctx := errgroup.WithContext(ctx)
	for i, reflection := range reflections {
		g.Go(func() error {
			comments, err := s.service.GetCommentsOnReflection(gctx, reflection.ActionHash)
			if err != nil {
				return err
			}
			counts[i] = len(comments)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// LedgerEntry returns what was last committed for this craving.
func (s *CravingStore) LedgerEntry(ctx context.Context) (domain.LedgerEntry, error) {
	return s.ledger.Entry(ctx, s.ledgerKey)
}

func (s *CravingStore) key(kind domain.CollectionKind) domain.CollectionKey {
	return domain.CollectionKey{Craving: s.ledgerKey, Kind: kind}
}

func (s *CravingStore) NewAssociationsCount(ctx context.Context, current int) (int, bool, error) {
	return s.ledger.Delta(ctx, s.key(domain.CollectionAssociations), current)
}

func (s *CravingStore) NewOffersCount(ctx context.Context, current int) (int, bool, error) {
	return s.ledger.Delta(ctx, s.key(domain.CollectionOffers), current)
}

func (s *CravingStore) NewReflectionsCount(ctx context.Context, current int) (int, bool, error) {
	return s.ledger.Delta(ctx, s.key(domain.CollectionReflections), current)
}

func (s *CravingStore) NewCommentsCount(ctx context.Context, current int) (int, bool, error) {
	return s.ledger.Delta(ctx, s.key(domain.CollectionComments), current)
}

func (s *CravingStore) NewCommentsForReflectionCount(ctx context.Context, reflection domain.ActionHash, current int) (int, bool, error) {
	key := s.key(domain.CollectionReflectionComments)
	key.Reflection = reflection.B64()
	return s.ledger.Delta(ctx, key, current)
}

func (s *CravingStore) UpdateAssociationsCount(ctx context.Context, total int) error {
	return s.ledger.Commit(ctx, s.key(domain.CollectionAssociations), total)
}

func (s *CravingStore) UpdateOffersCount(ctx context.Context, total int) error {
	return s.ledger.Commit(ctx, s.key(domain.CollectionOffers), total)
}

func (s *CravingStore) UpdateCommentsCount(ctx context.Context, reflection domain.ActionHash, total int) error {
	key := s.key(domain.CollectionReflectionComments)
	key.Reflection = reflection.B64()
	return s.ledger.Commit(ctx, key, total)
}

func (s *CravingStore) UpdateReflectionsCount(ctx context.Context, reflections []domain.ActionHash) error {
	hashes := make([]string, 0, len(reflections))
	for _, h := range reflections {
		hashes = append(hashes, h.B64())
	}
	return s.ledger.MarkReflectionsSeen(ctx, s.ledgerKey, hashes)
}
