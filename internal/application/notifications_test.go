package application

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/condenser/internal/adapters/conductor/memory"
	memorystore "github.com/bnema/condenser/internal/adapters/storage/memory"
	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/metrics"
	"github.com/bnema/condenser/internal/ports/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type notificationFixture struct {
	alice    *CondenserStore
	bob      *CondenserStore
	rain     *CravingStore
	bobRain  *CravingStore
	settings *NotificationSettingsStore
	notifier *mocks.MockNotifier
	metrics  *metrics.Metrics
	service  *NotificationService
}

func newNotificationFixture(t *testing.T) notificationFixture {
	t.Helper()
	ctx := context.Background()

	network := memory.NewNetwork()
	alice := connectStore(t, network, "alice")
	bob := connectStore(t, network, "bob")

	rain := createTestCraving(t, alice, "Rain")
	recipe, err := alice.RecipeForCraving(ctx, rain.CellID())
	require.NoError(t, err)
	joined, err := bob.JoinCraving(ctx, recipe)
	require.NoError(t, err)
	bobRain, ok := bob.CravingStore(joined.CellID)
	require.True(t, ok)

	settings := NewNotificationSettingsStore(memorystore.NewStore(), nil)
	notifier := mocks.NewMockNotifier(t)
	m := metrics.New()

	return notificationFixture{
		alice:    alice,
		bob:      bob,
		rain:     rain,
		bobRain:  bobRain,
		settings: settings,
		notifier: notifier,
		metrics:  m,
		service:  NewNotificationService(alice, settings, notifier, m, nil),
	}
}

func TestNotificationFirstCheckOnlySeedsBaselines(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()

	_, err := f.bobRain.Service().CreateOffer(ctx, domain.Offer{Offer: "petrichor"})
	require.NoError(t, err)

	sent, err := f.service.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, sent)

	notified, ok, err := f.alice.Ledger().Notified(ctx, f.rain.LedgerKey(), domain.CollectionOffers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, notified)
}

func TestNotificationForNewOffers(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()

	_, err := f.service.Check(ctx)
	require.NoError(t, err)

	_, err = f.bobRain.Service().CreateOffer(ctx, domain.Offer{Offer: "petrichor"})
	require.NoError(t, err)
	_, err = f.bobRain.Service().CreateOffer(ctx, domain.Offer{Offer: "mist"})
	require.NoError(t, err)

	f.notifier.EXPECT().
		Notify(mockAnyContext(), mock.MatchedBy(func(n domain.Notification) bool {
			return n.Kind == domain.CollectionOffers && n.Count == 2
		}), domain.ChannelSettings{Systray: true, InApp: true}).
		Return(nil).
		Once()

	sent, err := f.service.Check(ctx)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "Rain", sent[0].Title)
	assert.Equal(t, "2 new offers", sent[0].Body)
	assert.Equal(t, domain.UrgencyMedium, sent[0].Urgency)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.NotificationCounter("offers")))

	// Nothing new: no second notification.
	sent, err = f.service.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, sent)
}

func TestNotificationDoesNotTouchSeenLedger(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()

	_, err := f.service.Check(ctx)
	require.NoError(t, err)
	_, err = f.bobRain.Service().CreateAssociation(ctx, domain.Association{Association: "drizzle"})
	require.NoError(t, err)

	f.notifier.EXPECT().
		Notify(mockAnyContext(), mock.MatchedBy(func(n domain.Notification) bool {
			return n.Kind == domain.CollectionAssociations && n.Body == "1 new association"
		}), domain.ChannelSettings{InApp: true}).
		Return(nil)

	_, err = f.service.Check(ctx)
	require.NoError(t, err)

	n, ok, err := f.rain.NewAssociationsCount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestNotificationUsesCravingSettings(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()
	require.NoError(t, f.settings.Disable(ctx, f.rain.LedgerKey()))

	_, err := f.service.Check(ctx)
	require.NoError(t, err)
	reflection, err := f.bobRain.Service().CreateReflection(ctx, domain.Reflection{Title: "Monsoon", Reflection: "waiting"})
	require.NoError(t, err)
	_, err = f.bobRain.Service().CreateCommentOnReflection(ctx, domain.CommentOnReflection{ReflectionHash: reflection.ActionHash, Comment: "yes"})
	require.NoError(t, err)

	f.notifier.EXPECT().
		Notify(mockAnyContext(), mock.MatchedBy(func(n domain.Notification) bool {
			return n.Kind == domain.CollectionReflections
		}), domain.ChannelSettings{InApp: true}).
		Return(nil)
	f.notifier.EXPECT().
		Notify(mockAnyContext(), mock.MatchedBy(func(n domain.Notification) bool {
			return n.Kind == domain.CollectionComments && n.Body == "1 new comment"
		}), domain.ChannelSettings{InApp: true}).
		Return(nil)

	sent, err := f.service.Check(ctx)
	require.NoError(t, err)
	assert.Len(t, sent, 2)
}

func TestNotificationFailureKeepsBaseline(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()
	boom := errors.New("no terminal")

	_, err := f.service.Check(ctx)
	require.NoError(t, err)
	_, err = f.bobRain.Service().CreateOffer(ctx, domain.Offer{Offer: "petrichor"})
	require.NoError(t, err)

	f.notifier.EXPECT().Notify(mockAnyContext(), mock.Anything, mock.Anything).Return(boom).Once()
	_, err = f.service.Check(ctx)
	require.ErrorIs(t, err, boom)

	f.notifier.EXPECT().Notify(mockAnyContext(), mock.Anything, mock.Anything).Return(nil).Once()
	sent, err := f.service.Check(ctx)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, 1, sent[0].Count)
}
