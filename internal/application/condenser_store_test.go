package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/condenser/internal/adapters/conductor/memory"
	memorystore "github.com/bnema/condenser/internal/adapters/storage/memory"
	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectStore(t *testing.T, network *memory.Network, agentName string) *CondenserStore {
	t.Helper()

	conductor := network.Conductor("condenser", agentName)
	ledger := NewNotificationLedger(memorystore.NewStore(), nil, nil)
	store, err := ConnectCondenserStore(context.Background(), conductor, ledger, CondenserStoreConfig{
		Intervals: DefaultPollIntervals(),
		Metrics:   metrics.New(),
	})
	require.NoError(t, err)
	return store
}

func createTestCraving(t *testing.T, store *CondenserStore, title string) *CravingStore {
	t.Helper()

	cell, err := store.CreateCraving(context.Background(), domain.CravingDnaProperties{Title: title}, "", 0)
	require.NoError(t, err)
	craving, ok := store.CravingStore(cell.CellID)
	require.True(t, ok)
	return craving
}

func TestCondenserStoreStartsEmpty(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")

	assert.Empty(t, store.InstalledCravings())
	assert.Empty(t, store.Lobbies())
	assert.Empty(t, store.AvailableCravings())
	assert.False(t, store.Snapshot().BuiltAt.IsZero())
}

func TestCreateCravingInstallsAndIndexes(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")
	ctx := context.Background()

	limit := 40
	cell, err := store.CreateCraving(ctx, domain.CravingDnaProperties{Title: "Rain", MaxOfferChars: &limit}, "seed-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Rain", cell.Name)

	cravings := store.InstalledCravings()
	require.Len(t, cravings, 1)
	assert.Equal(t, "Rain", cravings[0].Craving().Title)
	assert.Equal(t, 40, *cravings[0].Craving().MaxOfferChars)
	assert.Equal(t, cell.CellID.Key(), cravings[0].LedgerKey())
	assert.NotZero(t, cravings[0].InitTime())

	recipe, err := store.RecipeForCraving(ctx, cell.CellID)
	require.NoError(t, err)
	assert.Equal(t, "Rain", recipe.Title)
	require.NotNil(t, recipe.NetworkSeed)
	assert.Equal(t, "seed-1", *recipe.NetworkSeed)
	assert.True(t, recipe.ResultingDnaHash.Equal(cell.CellID.DnaHash))
}

func TestCreateCravingRejectsEmptyTitle(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")

	_, err := store.CreateCraving(context.Background(), domain.CravingDnaProperties{Title: "  "}, "", 0)
	require.Error(t, err)
	assert.Empty(t, store.InstalledCravings())
}

func TestCreateCravingUsesRandomSeeds(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")

	first := createTestCraving(t, store, "Rain")
	second := createTestCraving(t, store, "Rain")

	assert.False(t, first.CellID().DnaHash.Equal(second.CellID().DnaHash))
	assert.Len(t, store.InstalledCravings(), 2)
}

func TestShareAndJoinCravingThroughLobby(t *testing.T) {
	network := memory.NewNetwork()
	alice := connectStore(t, network, "alice")
	bob := connectStore(t, network, "bob")
	ctx := context.Background()

	rain := createTestCraving(t, alice, "Rain")
	rules := "be kind"
	lobbyCell, err := alice.CreateLobby(ctx, CreateLobbyInput{Name: "Poets", Description: "We write", UnenforcedRules: &rules})
	require.NoError(t, err)
	lobby, ok := alice.LobbyStore(lobbyCell.DnaHash)
	require.True(t, ok)
	assert.Equal(t, "Poets", lobby.Name())

	require.NoError(t, alice.ShareCraving(ctx, rain.CellID(), []domain.DnaHash{lobbyCell.DnaHash}))
	lobbies := alice.LobbiesForCraving(rain.CellID().DnaHash)
	require.Len(t, lobbies, 1)
	assert.Equal(t, "Poets", lobbies[0].Name)
	assert.Empty(t, alice.AvailableCravings())

	_, err = bob.JoinLobbyInvite(ctx, lobby.InviteLink())
	require.NoError(t, err)
	require.Len(t, bob.Lobbies(), 1)

	info, err := bob.Lobbies()[0].Info()
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "We write", info.Description)

	available := bob.AvailableCravings()
	require.Len(t, available, 1)
	assert.Equal(t, "Rain", available[0].Recipe.Title)
	assert.True(t, available[0].DnaHash.Equal(rain.CellID().DnaHash))

	joined, err := bob.JoinCraving(ctx, available[0].Recipe)
	require.NoError(t, err)
	assert.True(t, joined.CellID.DnaHash.Equal(rain.CellID().DnaHash))
	assert.Empty(t, bob.AvailableCravings())
	require.Len(t, bob.InstalledCravings(), 1)

	_, err = bob.JoinLobbyInvite(ctx, lobby.InviteLink())
	require.ErrorIs(t, err, domain.ErrLobbyInstalled)
}

func TestShareCravingUnknownLobby(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")
	rain := createTestCraving(t, store, "Rain")

	err := store.ShareCraving(context.Background(), rain.CellID(), []domain.DnaHash{domain.NewHash(domain.HashKindDna, []byte("nowhere"))})
	require.ErrorIs(t, err, domain.ErrCellNotFound)
}

func TestDisableAndEnableCraving(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")
	ctx := context.Background()
	rain := createTestCraving(t, store, "Rain")

	require.NoError(t, store.DisableCraving(ctx, rain.CellID()))
	assert.Empty(t, store.InstalledCravings())
	disabled := store.DisabledCravings()
	require.Len(t, disabled, 1)
	assert.Equal(t, "Rain", disabled[0].Name)

	require.NoError(t, store.EnableCraving(ctx, disabled[0].CellID))
	assert.Len(t, store.InstalledCravings(), 1)
	assert.Empty(t, store.DisabledCravings())
}

func TestDisabledCravingsWithSameTitleAreAllKept(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")
	ctx := context.Background()
	first := createTestCraving(t, store, "Rain")
	second := createTestCraving(t, store, "Rain")
	require.False(t, first.CellID().Equal(second.CellID()))

	require.NoError(t, store.DisableCraving(ctx, first.CellID()))
	require.NoError(t, store.DisableCraving(ctx, second.CellID()))

	assert.Empty(t, store.InstalledCravings())
	disabled := store.DisabledCravings()
	require.Len(t, disabled, 2)
	assert.Equal(t, "Rain", disabled[0].Name)
	assert.Equal(t, "Rain", disabled[1].Name)

	require.NoError(t, store.EnableCraving(ctx, second.CellID()))
	_, ok := store.CravingStore(second.CellID())
	assert.True(t, ok)
	disabled = store.DisabledCravings()
	require.Len(t, disabled, 1)
	assert.True(t, disabled[0].CellID.Equal(first.CellID()))
}

func TestDisabledLobbiesWithSameNameAreAllKept(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")
	ctx := context.Background()

	first, err := store.CreateLobby(ctx, CreateLobbyInput{Name: "Poets", NetworkSeed: "seed-1"})
	require.NoError(t, err)
	second, err := store.CreateLobby(ctx, CreateLobbyInput{Name: "Poets", NetworkSeed: "seed-2"})
	require.NoError(t, err)

	require.NoError(t, store.DisableLobby(ctx, first))
	require.NoError(t, store.DisableLobby(ctx, second))

	assert.Empty(t, store.Lobbies())
	assert.Len(t, store.DisabledLobbies(), 2)
}

func TestRefreshLeavesOutFailingCells(t *testing.T) {
	network := memory.NewNetwork()
	conductor := network.Conductor("condenser", "alice")
	m := metrics.New()
	store, err := ConnectCondenserStore(context.Background(), conductor, NewNotificationLedger(memorystore.NewStore(), nil, nil), CondenserStoreConfig{
		Intervals: DefaultPollIntervals(),
		Metrics:   m,
	})
	require.NoError(t, err)

	rain := createTestCraving(t, store, "Rain")
	createTestCraving(t, store, "Fog")

	conductor.FailCalls(rain.CellID().DnaHash, "get_init_time", errors.New("cell is broken"))
	require.NoError(t, store.Refresh(context.Background()))

	cravings := store.InstalledCravings()
	require.Len(t, cravings, 1)
	assert.Equal(t, "Fog", cravings[0].Craving().Title)

	conductor.FailCalls(rain.CellID().DnaHash, "get_init_time", nil)
	require.NoError(t, store.Refresh(context.Background()))
	assert.Len(t, store.InstalledCravings(), 2)
}

func TestOverviewCountsNewActivityUntilSeen(t *testing.T) {
	network := memory.NewNetwork()
	alice := connectStore(t, network, "alice")
	ctx := context.Background()
	rain := createTestCraving(t, alice, "Rain")

	service := rain.Service()
	_, err := service.CreateAssociation(ctx, domain.Association{Association: "drizzle"})
	require.NoError(t, err)
	_, err = service.CreateOffer(ctx, domain.Offer{Offer: "petrichor"})
	require.NoError(t, err)
	reflection, err := service.CreateReflection(ctx, domain.Reflection{Title: "Monsoon", Reflection: "waiting"})
	require.NoError(t, err)
	_, err = service.CreateCommentOnReflection(ctx, domain.CommentOnReflection{ReflectionHash: reflection.ActionHash, Comment: "so true"})
	require.NoError(t, err)

	ov, err := alice.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, ov.Cravings, 1)
	card := ov.Cravings[0]
	assert.Equal(t, CravingTotals{Associations: 1, Offers: 1, Reflections: 1, Comments: 1}, card.Totals)
	assert.Equal(t, CravingTotals{Associations: 1, Offers: 1, Reflections: 1, Comments: 1}, card.New)

	detail, err := alice.CravingDetail(ctx, rain.CellID(), SortLatest)
	require.NoError(t, err)
	require.Len(t, detail.Reflections, 1)
	assert.Equal(t, 1, detail.Reflections[0].Comments)
	assert.True(t, detail.Associations[0].Mine)
	require.NoError(t, alice.MarkSeen(ctx, detail))

	ov, err = alice.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, CravingTotals{}, ov.Cravings[0].New)

	entry, err := rain.LedgerEntry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, *entry.AssociationCount)
	assert.Equal(t, 1, entry.Reflections[reflection.ActionHash.B64()].CommentsCount)
}

func TestCravingDetailResonance(t *testing.T) {
	network := memory.NewNetwork()
	alice := connectStore(t, network, "alice")
	ctx := context.Background()
	rain := createTestCraving(t, alice, "Rain")
	service := rain.Service()

	quiet, err := service.CreateOffer(ctx, domain.Offer{Offer: "quiet"})
	require.NoError(t, err)
	loud, err := service.CreateOffer(ctx, domain.Offer{Offer: "loud"})
	require.NoError(t, err)
	require.NoError(t, service.AddResonatorForEntry(ctx, loud.Action.EntryHash))

	detail, err := alice.CravingDetail(ctx, rain.CellID(), SortResonance)
	require.NoError(t, err)
	require.Len(t, detail.Offers, 2)
	assert.Equal(t, "loud", detail.Offers[0].Text)
	assert.Equal(t, 1, detail.Offers[0].Resonators)
	assert.True(t, detail.Offers[0].IResonated)
	assert.True(t, detail.Offers[1].ActionHash.Equal(quiet.ActionHash))

	_, err = alice.CravingDetail(ctx, domain.CellID{DnaHash: domain.NewHash(domain.HashKindDna, []byte("x"))}, SortLatest)
	require.ErrorIs(t, err, domain.ErrCellNotFound)
}

func TestLobbyDetailMarksInstalledRecipes(t *testing.T) {
	network := memory.NewNetwork()
	alice := connectStore(t, network, "alice")
	ctx := context.Background()
	rain := createTestCraving(t, alice, "Rain")

	lobbyCell, err := alice.CreateLobby(ctx, CreateLobbyInput{Name: "Poets"})
	require.NoError(t, err)
	require.NoError(t, alice.ShareCraving(ctx, rain.CellID(), []domain.DnaHash{lobbyCell.DnaHash}))

	detail, err := alice.LobbyDetail(ctx, lobbyCell.DnaHash)
	require.NoError(t, err)
	assert.Equal(t, "Poets", detail.Name)
	require.Len(t, detail.Recipes, 1)
	assert.Equal(t, "Rain", detail.Recipes[0].Title)
	assert.True(t, detail.Recipes[0].Installed)
	assert.NotEmpty(t, detail.InviteLink)
}

func TestCravingDetailReadsThroughPollersOnce(t *testing.T) {
	conductor := memory.NewNetwork().Conductor("condenser", "alice")
	m := metrics.New()
	hourly := PollIntervals{
		PolledAssociations:   time.Hour,
		PolledOffers:         time.Hour,
		Associations:         time.Hour,
		Offers:               time.Hour,
		Reflections:          time.Hour,
		CommentsCount:        time.Hour,
		CommentsOnReflection: time.Hour,
	}
	store, err := ConnectCondenserStore(context.Background(), conductor, NewNotificationLedger(memorystore.NewStore(), nil, nil), CondenserStoreConfig{
		Intervals:      hourly,
		GatewayOptions: []GatewayOption{WithMetrics(m)},
		PollerOptions:  []PollerOption{WithPollMetrics(m)},
		Metrics:        m,
	})
	require.NoError(t, err)
	ctx := context.Background()
	rain := createTestCraving(t, store, "Rain")

	service := rain.Service()
	_, err = service.CreateAssociation(ctx, domain.Association{Association: "drizzle"})
	require.NoError(t, err)
	reflection, err := service.CreateReflection(ctx, domain.Reflection{Title: "Monsoon", Reflection: "waiting"})
	require.NoError(t, err)
	_, err = service.CreateCommentOnReflection(ctx, domain.CommentOnReflection{ReflectionHash: reflection.ActionHash, Comment: "so true"})
	require.NoError(t, err)

	detail, err := store.CravingDetail(ctx, rain.CellID(), SortResonance)
	require.NoError(t, err)
	assert.Equal(t, CravingTotals{Associations: 1, Reflections: 1, Comments: 1}, detail.Totals)
	assert.Equal(t, CravingTotals{Associations: 1, Reflections: 1, Comments: 1}, detail.New)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ZomeCallCounter("get_all_associations", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ZomeCallCounter("get_all_reflections", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollCycleCounter("associations", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollCycleCounter("comments_on_reflection", "ok")))
	assert.Zero(t, testutil.ToFloat64(m.PollCycleCounter("polled_associations", "ok")))
}

func TestCravingDetailSeesEntriesWhilePollerRuns(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")
	ctx := context.Background()
	rain := createTestCraving(t, store, "Rain")

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sub := rain.AllAssociations.Subscribe(subCtx)
	assert.Empty(t, receive(t, sub).Value)

	_, err := rain.Service().CreateAssociation(ctx, domain.Association{Association: "drizzle"})
	require.NoError(t, err)

	detail, err := store.CravingDetail(ctx, rain.CellID(), SortLatest)
	require.NoError(t, err)
	require.Len(t, detail.Associations, 1)
	assert.Equal(t, "drizzle", detail.Associations[0].Text)
}

func TestCravingStorePollersStayIdleUntilSubscribed(t *testing.T) {
	store := connectStore(t, memory.NewNetwork(), "alice")
	rain := createTestCraving(t, store, "Rain")

	_, err := rain.Service().CreateAssociation(context.Background(), domain.Association{Association: "drizzle"})
	require.NoError(t, err)
	assert.False(t, rain.AllAssociations.Running())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := rain.AllAssociations.Next(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Value, 1)
	assert.Empty(t, snap.Value[0].Resonators)

	count, err := rain.AllCommentsCount.Next(ctx)
	require.NoError(t, err)
	assert.Zero(t, count.Value)

	assert.Same(t, rain.CommentsOnReflection(domain.NewHash(domain.HashKindAction, []byte("r"))), rain.CommentsOnReflection(domain.NewHash(domain.HashKindAction, []byte("r"))))
}
