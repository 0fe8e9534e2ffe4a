package application

import (
	"context"
	"errors"
	"testing"
	"time"

	memorystore "github.com/bnema/condenser/internal/adapters/storage/memory"
	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCraving = "uhC0kCraving"

func newTestLedger(t *testing.T, now time.Time) (*NotificationLedger, *memorystore.Store) {
	t.Helper()

	store := memorystore.NewStore()
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(now).Maybe()
	return NewNotificationLedger(store, clock, nil), store
}

func TestLedgerDeltaWithoutBaselineCountsEverything(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Now())

	n, ok, err := ledger.Delta(context.Background(), domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionAssociations}, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, n)
}

func TestLedgerCommitMovesBaseline(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	ledger, _ := newTestLedger(t, now)
	ctx := context.Background()
	key := domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionOffers}

	require.NoError(t, ledger.Commit(ctx, key, 3))

	n, ok, err := ledger.Delta(ctx, key, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, n)

	n, ok, err = ledger.Delta(ctx, key, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	entry, err := ledger.Entry(ctx, testCraving)
	require.NoError(t, err)
	require.NotNil(t, entry.OffersCount)
	require.NotNil(t, entry.LatestOfferUpdate)
	assert.Equal(t, 3, *entry.OffersCount)
	assert.Equal(t, now.UnixMilli(), *entry.LatestOfferUpdate)
	assert.Nil(t, entry.AssociationCount)
}

func TestLedgerDeltaNeverGoesNegative(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Now())
	ctx := context.Background()
	key := domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionAssociations}

	require.NoError(t, ledger.Commit(ctx, key, 6))

	n, ok, err := ledger.Delta(ctx, key, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestLedgerReflectionBaselines(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Now())
	ctx := context.Background()

	require.NoError(t, ledger.MarkReflectionsSeen(ctx, testCraving, []string{"uhCkkA", "uhCkkB"}))
	require.NoError(t, ledger.Commit(ctx, domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionReflectionComments, Reflection: "uhCkkA"}, 2))
	// Marking again keeps the comment baseline of known reflections.
	require.NoError(t, ledger.MarkReflectionsSeen(ctx, testCraving, []string{"uhCkkA", "uhCkkC"}))

	n, _, err := ledger.Delta(ctx, domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionReflections}, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, _, err = ledger.Delta(ctx, domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionComments}, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, _, err = ledger.Delta(ctx, domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionReflectionComments, Reflection: "uhCkkA"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLedgerCommitRejectsDerivedCollections(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Now())

	err := ledger.Commit(context.Background(), domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionReflections}, 1)
	require.ErrorIs(t, err, ErrReadOnlyCollection)

	err = ledger.Commit(context.Background(), domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionReflectionComments}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no reflection")
}

func TestLedgerMalformedEntryReadsAsEmpty(t *testing.T) {
	ledger, store := newTestLedger(t, time.Now())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, testCraving, "{not json"))

	entry, err := ledger.Entry(ctx, testCraving)
	require.NoError(t, err)
	assert.Nil(t, entry.AssociationCount)
	assert.NotNil(t, entry.Reflections)
}

func TestLedgerClearForgetsBaselines(t *testing.T) {
	ledger, _ := newTestLedger(t, time.Now())
	ctx := context.Background()
	key := domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionAssociations}

	require.NoError(t, ledger.Commit(ctx, key, 2))
	require.NoError(t, ledger.Clear(ctx, testCraving))
	require.NoError(t, ledger.Clear(ctx, testCraving))

	n, _, err := ledger.Delta(ctx, key, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLedgerNotifiedCounts(t *testing.T) {
	ledger, store := newTestLedger(t, time.Now())
	ctx := context.Background()

	_, ok, err := ledger.Notified(ctx, testCraving, domain.CollectionOffers)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.SetNotified(ctx, testCraving, domain.CollectionOffers, 7))

	n, ok, err := ledger.Notified(ctx, testCraving, domain.CollectionOffers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	raw, err := store.Get(ctx, "offersNotified#"+testCraving)
	require.NoError(t, err)
	assert.Equal(t, "7", raw)
}

func TestLedgerPropagatesStoreErrors(t *testing.T) {
	store := mocks.NewMockKeyValueStore(t)
	ledger := NewNotificationLedger(store, nil, nil)
	boom := errors.New("disk on fire")

	store.EXPECT().Get(mockAnyContext(), testCraving).Return("", boom)

	_, _, err := ledger.Delta(context.Background(), domain.CollectionKey{Craving: testCraving, Kind: domain.CollectionOffers}, 1)
	require.ErrorIs(t, err, boom)
}

func TestNotificationSettingsStore(t *testing.T) {
	store := memorystore.NewStore()
	settings := NewNotificationSettingsStore(store, nil)
	ctx := context.Background()

	got, err := settings.Get(ctx, testCraving)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationSettings(), got)

	require.NoError(t, settings.Disable(ctx, testCraving))
	got, err = settings.Get(ctx, testCraving)
	require.NoError(t, err)
	assert.Equal(t, domain.DisabledNotificationSettings(), got)

	require.NoError(t, store.Put(ctx, "notificationSettings#"+testCraving, "nope"))
	got, err = settings.Get(ctx, testCraving)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationSettings(), got)
}
