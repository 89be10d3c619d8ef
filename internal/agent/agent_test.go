package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/internal/session"
	"github.com/grovetools/pantry/internal/storage"
	"github.com/grovetools/pantry/internal/storage/kv"
	"github.com/grovetools/pantry/internal/storage/kv/kvmap"
	"github.com/grovetools/pantry/pkg/ident"
	"github.com/grovetools/pantry/pkg/models"
	"github.com/grovetools/pantry/testutil"
)

var (
	alice = models.UserInfo{UUID: "11111111-1111-1111-1111-111111111111", Name: "alice"}
	bob   = models.UserInfo{UUID: "22222222-2222-2222-2222-222222222222", Name: "bob"}
)

// fixedSession is a session whose state the test sets directly.
type fixedSession struct {
	state atomic.Pointer[session.State]
	subs  *registry.Registry[session.State]
}

func newFixedSession(st session.State) *fixedSession {
	logger, _ := testutil.NullLogger("session")
	s := &fixedSession{subs: registry.New[session.State](10, logger)}
	s.state.Store(&st)
	return s
}

func (s *fixedSession) Current() session.State { return *s.state.Load() }

func (s *fixedSession) Subscribe() *registry.Subscription[session.State] {
	return s.subs.Subscribe(session.Topic)
}

func (s *fixedSession) Unsubscribe(token registry.Token) { s.subs.Unsubscribe(token) }

func (s *fixedSession) set(st session.State) {
	s.state.Store(&st)
	s.subs.Broadcast(0, func(registry.Topic) (session.State, bool) { return st, true })
}

type failingBucket struct {
	*kvmap.KVMap
}

func (failingBucket) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func startAgent(t *testing.T, bucket kv.Bucket, sess Session, opts ...Option) *Agent {
	t.Helper()
	logger, _ := testutil.NullLogger("agent")
	a := New(storage.New(bucket, logger), sess, logger, opts...)
	testutil.StartRunner(t, a)
	return a
}

func newAgent(t *testing.T, st session.State, opts ...Option) (*Agent, *fixedSession) {
	t.Helper()
	sess := newFixedSession(st)
	return startAgent(t, kvmap.NewBucket(), sess, opts...), sess
}

func do(t *testing.T, a *Agent, req Request) Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := a.Send(ctx, req)
	require.NoError(t, err)
	return resp
}

func inventories(t *testing.T, a *Agent) []models.Inventory {
	t.Helper()
	resp := do(t, a, GetInventories{})
	require.IsType(t, Inventories{}, resp)
	return resp.(Inventories).Inventories
}

func createInventory(t *testing.T, a *Agent, name string) string {
	t.Helper()
	resp := do(t, a, CreateInventory{Name: name})
	require.IsType(t, NewInventoryUUID{}, resp)
	return resp.(NewInventoryUUID).InventoryUUID
}

func createItem(t *testing.T, a *Agent, inv, name string) string {
	t.Helper()
	resp := do(t, a, CreateItem{InventoryUUID: inv, Name: name})
	require.IsType(t, NewItemUUID{}, resp)
	return resp.(NewItemUUID).ItemUUID
}

func ptr(s string) *string { return &s }

func TestCreateThenGet(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))

	id := createInventory(t, a, "Kitchen")
	assert.True(t, ident.Valid(id))

	resp := do(t, a, GetInventory{InventoryUUID: id})
	require.IsType(t, Inventory{}, resp)
	inv := resp.(Inventory).Inventory
	assert.Equal(t, id, inv.UUID)
	assert.Equal(t, "Kitchen", inv.Name)
	assert.Equal(t, alice.UUID, inv.Owner)
	assert.Empty(t, inv.Items)
	assert.Empty(t, inv.Admins)
}

func TestGetInventoriesIsIdempotent(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")
	createItem(t, a, inv, "Rice")

	first := inventories(t, a)
	second := inventories(t, a)
	assert.Equal(t, first, second)
	assert.Len(t, first, 1)
}

func TestUnknownIDs(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")

	assert.Equal(t, InvalidInventoryUUID{InventoryUUID: "nope"}, do(t, a, GetInventory{InventoryUUID: "nope"}))
	assert.Equal(t, InvalidInventoryUUID{InventoryUUID: "nope"}, do(t, a, GetItem{InventoryUUID: "nope", ItemUUID: "x"}))
	assert.Equal(t, InvalidItemUUID{InventoryUUID: inv, ItemUUID: "x"}, do(t, a, GetItem{InventoryUUID: inv, ItemUUID: "x"}))
	assert.Equal(t, InvalidItemUUID{InventoryUUID: inv, ItemUUID: "x"}, do(t, a, CreateUnit{InventoryUUID: inv, ItemUUID: "x", Name: "u"}))
	assert.Equal(t, InvalidInventoryUUID{InventoryUUID: "nope"}, do(t, a, DeleteInventory{InventoryUUID: "nope"}))
}

func TestUnauthenticatedCreateLeavesCollectionUnchanged(t *testing.T) {
	a, _ := newAgent(t, session.LoggedOut())
	before := len(inventories(t, a))

	resp := do(t, a, CreateInventory{Name: "Kitchen"})
	assert.Equal(t, Unauthorized{Op: "create inventory"}, resp)
	assert.Len(t, inventories(t, a), before)
}

func TestMutationsRequireSession(t *testing.T) {
	a, sess := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")
	item := createItem(t, a, inv, "Rice")

	for _, st := range []session.State{session.LoggedOut(), session.Unknown(), {Status: session.StatusLoggingIn}, session.Failed(errors.New("boom"))} {
		sess.set(st)
		requests := []Request{
			CreateInventory{Name: "x"},
			UpdateInventory{InventoryUUID: inv, Name: "x", Owner: alice.UUID},
			DeleteInventory{InventoryUUID: inv},
			CreateItem{InventoryUUID: inv, Name: "x"},
			UpdateItem{InventoryUUID: inv, ItemUUID: item, Name: "x"},
			DeleteItem{InventoryUUID: inv, ItemUUID: item},
			CreateUnit{InventoryUUID: inv, ItemUUID: item, Name: "x"},
		}
		for _, req := range requests {
			assert.IsType(t, Unauthorized{}, do(t, a, req), "%s while %s", RequestType(req), st)
		}
	}

	// Reads and debug tools are not gated.
	assert.IsType(t, Inventory{}, do(t, a, GetInventory{InventoryUUID: inv}))
	assert.IsType(t, Item{}, do(t, a, GetItem{InventoryUUID: inv, ItemUUID: item}))
	assert.IsType(t, NewInventoryUUID{}, do(t, a, MakeDebugInventory{}))

	got := inventories(t, a)
	require.Len(t, got, 2)
	assert.Equal(t, "Kitchen", got[0].Name)
	assert.Len(t, got[0].Items, 1)
}

func TestDeleteInventoryMakesItemsNotFound(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")
	item := createItem(t, a, inv, "Rice")

	assert.Equal(t, DeletedInventory{InventoryUUID: inv}, do(t, a, DeleteInventory{InventoryUUID: inv}))
	assert.Equal(t, InvalidInventoryUUID{InventoryUUID: inv}, do(t, a, GetItem{InventoryUUID: inv, ItemUUID: item}))
	assert.Empty(t, inventories(t, a))
}

func TestItemAndUnitLifecycle(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")

	resp := do(t, a, CreateItem{InventoryUUID: inv, Name: "Rice", EAN: ptr("  ")})
	require.IsType(t, NewItemUUID{}, resp)
	item := resp.(NewItemUUID).ItemUUID

	got := do(t, a, GetItem{InventoryUUID: inv, ItemUUID: item}).(Item).Item
	assert.Nil(t, got.EAN, "blank EAN is stored as absent")
	assert.Equal(t, inv, got.InventoryUUID)

	assert.Equal(t, UpdatedItem{InventoryUUID: inv, ItemUUID: item},
		do(t, a, UpdateItem{InventoryUUID: inv, ItemUUID: item, Name: "Basmati", EAN: ptr("4006381333931")}))

	resp = do(t, a, CreateUnit{InventoryUUID: inv, ItemUUID: item, Name: "bag 1"})
	require.IsType(t, NewUnitUUID{}, resp)
	unit := resp.(NewUnitUUID)

	got = do(t, a, GetItem{InventoryUUID: inv, ItemUUID: item}).(Item).Item
	assert.Equal(t, "Basmati", got.Name)
	require.NotNil(t, got.EAN)
	assert.Equal(t, "4006381333931", *got.EAN)
	require.Len(t, got.Units, 1)
	assert.Equal(t, models.Unit{UUID: unit.UnitUUID, ItemUUID: item, InventoryUUID: inv, Name: "bag 1"}, got.Units[0])

	assert.Equal(t, DeletedItem{InventoryUUID: inv, ItemUUID: item}, do(t, a, DeleteItem{InventoryUUID: inv, ItemUUID: item}))
	assert.IsType(t, InvalidItemUUID{}, do(t, a, GetItem{InventoryUUID: inv, ItemUUID: item}))
}

func TestBackReferencesHoldAfterMutations(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))

	kitchen := createInventory(t, a, "Kitchen")
	cellar := createInventory(t, a, "Cellar")
	rice := createItem(t, a, kitchen, "Rice")
	wine := createItem(t, a, cellar, "Wine")
	oil := createItem(t, a, kitchen, "Oil")

	steps := []Request{
		CreateUnit{InventoryUUID: kitchen, ItemUUID: rice, Name: "bag"},
		CreateUnit{InventoryUUID: cellar, ItemUUID: wine, Name: "bottle"},
		UpdateItem{InventoryUUID: kitchen, ItemUUID: oil, Name: "Olive oil"},
		DeleteItem{InventoryUUID: kitchen, ItemUUID: rice},
		CreateUnit{InventoryUUID: kitchen, ItemUUID: oil, Name: "can"},
		UpdateInventory{InventoryUUID: cellar, Name: "Wine cellar", Owner: alice.UUID, Admins: []string{bob.UUID}},
		MakeDebugInventory{},
	}
	for _, req := range steps {
		require.False(t, Failed(do(t, a, req)), RequestType(req))
		assert.Empty(t, models.CheckConsistency(inventories(t, a)), "after %s", RequestType(req))
	}
}

func TestUpdateInventory(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")
	item := createItem(t, a, inv, "Rice")

	resp := do(t, a, UpdateInventory{
		InventoryUUID: inv,
		Name:          " Pantry ",
		Owner:         alice.UUID,
		Admins:        []string{bob.UUID, bob.UUID, "", alice.UUID},
		Writables:     []string{" carol "},
		Readables:     nil,
	})
	assert.Equal(t, UpdatedInventory{InventoryUUID: inv}, resp)

	got := do(t, a, GetInventory{InventoryUUID: inv}).(Inventory).Inventory
	assert.Equal(t, "Pantry", got.Name)
	assert.Equal(t, []string{bob.UUID}, got.Admins)
	assert.Equal(t, []string{"carol"}, got.Writables)
	assert.Equal(t, []string{}, got.Readables)
	require.Len(t, got.Items, 1, "items survive an update")
	assert.Equal(t, item, got.Items[0].UUID)
}

func TestInvalidRequests(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")
	item := createItem(t, a, inv, "Rice")

	for _, req := range []Request{
		CreateInventory{Name: "  "},
		UpdateInventory{InventoryUUID: inv, Name: "", Owner: alice.UUID},
		UpdateInventory{InventoryUUID: inv, Name: "x", Owner: " "},
		CreateItem{InventoryUUID: inv},
		UpdateItem{InventoryUUID: inv, ItemUUID: item},
		CreateUnit{InventoryUUID: inv, ItemUUID: item},
	} {
		assert.IsType(t, InvalidRequest{}, do(t, a, req), RequestType(req))
	}
	got := inventories(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, "Kitchen", got[0].Name)
	assert.Equal(t, "Rice", got[0].Items[0].Name)
}

func TestAccessTiers(t *testing.T) {
	a, sess := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")
	item := createItem(t, a, inv, "Rice")

	// bob holds no tier yet
	sess.set(session.LoggedIn(bob))
	assert.Equal(t, Forbidden{Op: "create item", User: bob.UUID}, do(t, a, CreateItem{InventoryUUID: inv, Name: "Oil"}))
	assert.IsType(t, Forbidden{}, do(t, a, DeleteInventory{InventoryUUID: inv}))
	assert.IsType(t, InvalidItemUUID{}, do(t, a, DeleteItem{InventoryUUID: inv, ItemUUID: "missing"}), "not found is reported first")

	sess.set(session.LoggedIn(alice))
	do(t, a, UpdateInventory{InventoryUUID: inv, Name: "Kitchen", Owner: alice.UUID, Readables: []string{bob.UUID}})
	sess.set(session.LoggedIn(bob))
	assert.IsType(t, Item{}, do(t, a, GetItem{InventoryUUID: inv, ItemUUID: item}))
	assert.IsType(t, Forbidden{}, do(t, a, CreateUnit{InventoryUUID: inv, ItemUUID: item, Name: "bag"}))

	sess.set(session.LoggedIn(alice))
	do(t, a, UpdateInventory{InventoryUUID: inv, Name: "Kitchen", Owner: alice.UUID, Writables: []string{bob.UUID}})
	sess.set(session.LoggedIn(bob))
	assert.IsType(t, NewUnitUUID{}, do(t, a, CreateUnit{InventoryUUID: inv, ItemUUID: item, Name: "bag"}))
	assert.IsType(t, Forbidden{}, do(t, a, UpdateInventory{InventoryUUID: inv, Name: "Mine", Owner: alice.UUID}))

	sess.set(session.LoggedIn(alice))
	do(t, a, UpdateInventory{InventoryUUID: inv, Name: "Kitchen", Owner: alice.UUID, Admins: []string{bob.UUID}})
	sess.set(session.LoggedIn(bob))
	assert.IsType(t, UpdatedInventory{}, do(t, a, UpdateInventory{InventoryUUID: inv, Name: "Shared", Owner: alice.UUID, Admins: []string{bob.UUID}}))
	assert.Equal(t, Forbidden{Op: "transfer inventory", User: bob.UUID},
		do(t, a, UpdateInventory{InventoryUUID: inv, Name: "Shared", Owner: bob.UUID}))

	sess.set(session.LoggedIn(alice))
	assert.IsType(t, UpdatedInventory{}, do(t, a, UpdateInventory{InventoryUUID: inv, Name: "Shared", Owner: bob.UUID, Admins: []string{bob.UUID}}))
	got := do(t, a, GetInventory{InventoryUUID: inv}).(Inventory).Inventory
	assert.Equal(t, bob.UUID, got.Owner)
	assert.Empty(t, got.Admins, "new owner is dropped from admins")
	assert.Equal(t, models.RoleNone, got.Role(alice.UUID))
}

func TestTierEnforcementDisabled(t *testing.T) {
	a, sess := newAgent(t, session.LoggedIn(alice), WithTierEnforcement(false))
	inv := createInventory(t, a, "Kitchen")

	sess.set(session.LoggedIn(bob))
	assert.IsType(t, NewItemUUID{}, do(t, a, CreateItem{InventoryUUID: inv, Name: "Oil"}))
	assert.IsType(t, DeletedInventory{}, do(t, a, DeleteInventory{InventoryUUID: inv}))
}

func TestMakeDebugInventory(t *testing.T) {
	a, sess := newAgent(t, session.LoggedOut())

	resp := do(t, a, MakeDebugInventory{})
	require.IsType(t, NewInventoryUUID{}, resp)
	inv := do(t, a, GetInventory{InventoryUUID: resp.(NewInventoryUUID).InventoryUUID}).(Inventory).Inventory
	assert.Equal(t, "my inv", inv.Name)
	assert.True(t, ident.Valid(inv.Owner), "placeholder owner is a fresh uuid")
	assert.NotEqual(t, inv.UUID, inv.Owner)

	sess.set(session.LoggedIn(alice))
	resp = do(t, a, MakeDebugInventory{})
	inv = do(t, a, GetInventory{InventoryUUID: resp.(NewInventoryUUID).InventoryUUID}).(Inventory).Inventory
	assert.Equal(t, alice.UUID, inv.Owner)
}

func TestMakeDebugInventoryDrawsOwnerOnlyWhenLoggedOut(t *testing.T) {
	ids := ident.NewStaticIDs("inv-1", "owner-2", "inv-3")
	a, sess := newAgent(t, session.LoggedIn(alice), WithIDs(ids))

	resp := do(t, a, MakeDebugInventory{})
	assert.Equal(t, NewInventoryUUID{InventoryUUID: "inv-1"}, resp)

	sess.set(session.LoggedOut())
	resp = do(t, a, MakeDebugInventory{})
	assert.Equal(t, NewInventoryUUID{InventoryUUID: "inv-3"}, resp)
	inv := do(t, a, GetInventory{InventoryUUID: "inv-3"}).(Inventory).Inventory
	assert.Equal(t, "owner-2", inv.Owner)
}

func TestDeleteAllData(t *testing.T) {
	bucket := kvmap.NewBucket()
	a := startAgent(t, bucket, newFixedSession(session.LoggedOut()))
	do(t, a, MakeDebugInventory{})
	do(t, a, MakeDebugInventory{})

	assert.Equal(t, Inventories{Inventories: []models.Inventory{}}, do(t, a, DeleteAllData{}))
	assert.Empty(t, inventories(t, a))

	data, err := bucket.Get(context.Background(), storage.SnapshotKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestResponsesAreCopies(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")
	createItem(t, a, inv, "Rice")

	got := inventories(t, a)
	got[0].Name = "changed"
	got[0].Items[0].Name = "changed"
	got[0].Admins = append(got[0].Admins, "intruder")

	again := inventories(t, a)
	assert.Equal(t, "Kitchen", again[0].Name)
	assert.Equal(t, "Rice", again[0].Items[0].Name)
	assert.Empty(t, again[0].Admins)
}

func TestPersistenceRoundTrip(t *testing.T) {
	bucket := kvmap.NewBucket()
	sess := newFixedSession(session.LoggedIn(alice))
	logger, _ := testutil.NullLogger("agent")

	first := New(storage.New(bucket, logger), sess, logger)
	stop := testutil.StartRunner(t, first)
	inv := createInventory(t, first, "Kitchen")
	item := createItem(t, first, inv, "Rice")
	do(t, first, CreateUnit{InventoryUUID: inv, ItemUUID: item, Name: "bag"})
	do(t, first, UpdateInventory{InventoryUUID: inv, Name: "Kitchen", Owner: alice.UUID,
		Admins: []string{bob.UUID}, Writables: []string{"w"}, Readables: []string{"r"}})
	want := inventories(t, first)
	stop()

	second := startAgent(t, bucket, sess)
	assert.Equal(t, want, inventories(t, second))
}

func TestSaveFailureStillReplies(t *testing.T) {
	logger, _ := testutil.NullLogger("agent")
	snaps := storage.New(failingBucket{kvmap.NewBucket()}, logger)
	a := New(snaps, newFixedSession(session.LoggedIn(alice)), logger)
	testutil.StartRunner(t, a)

	id := createInventory(t, a, "Kitchen")
	assert.IsType(t, Inventory{}, do(t, a, GetInventory{InventoryUUID: id}), "memory keeps the change")
	assert.Equal(t, int64(1), snaps.Failures())
}

func TestBroadcastExcludesRequester(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	requester := a.Subscribe(registry.TopicChanges)
	snapshots := a.Subscribe(registry.TopicSnapshots)
	changes := a.Subscribe(registry.TopicChanges)

	ctx := context.Background()
	resp, err := a.SendAs(ctx, requester.Token, CreateInventory{Name: "Kitchen"})
	require.NoError(t, err)
	require.IsType(t, NewInventoryUUID{}, resp)

	snap := testutil.Receive(t, snapshots.C)
	require.IsType(t, Inventories{}, snap)
	require.Len(t, snap.(Inventories).Inventories, 1)
	assert.Equal(t, resp, testutil.Receive(t, changes.C))

	// The agent is serial, so once this reply arrives the broadcast above is done.
	inventories(t, a)
	assert.Empty(t, requester.C, "requester is answered directly only")
}

func TestSnapshotSubscribersGetIndependentCopies(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	first := a.Subscribe(registry.TopicSnapshots)
	second := a.Subscribe(registry.TopicSnapshots)

	createInventory(t, a, "Kitchen")

	one := testutil.Receive(t, first.C).(Inventories)
	two := testutil.Receive(t, second.C).(Inventories)
	require.Len(t, one.Inventories, 1)
	require.Len(t, two.Inventories, 1)

	one.Inventories[0].Name = "Garage"
	one.Inventories[0].Admins = append(one.Inventories[0].Admins, bob.UUID)
	assert.Equal(t, "Kitchen", two.Inventories[0].Name)
	assert.Empty(t, two.Inventories[0].Admins)
	assert.Equal(t, "Kitchen", inventories(t, a)[0].Name)
}

func TestOneShotMutationReachesEverySubscriber(t *testing.T) {
	a, _ := newAgent(t, session.LoggedIn(alice))
	subs := []*registry.Subscription[Response]{
		a.Subscribe(registry.TopicChanges),
		a.Subscribe(registry.TopicChanges),
	}

	resp := do(t, a, CreateInventory{Name: "Kitchen"})
	for _, sub := range subs {
		assert.Equal(t, resp, testutil.Receive(t, sub.C))
	}

	// A stale token is not a subscriber and excludes nobody.
	a.Unsubscribe(subs[0].Token)
	_, err := a.SendAs(context.Background(), subs[0].Token, MakeDebugInventory{})
	require.NoError(t, err)
	assert.IsType(t, NewInventoryUUID{}, testutil.Receive(t, subs[1].C))
	assert.False(t, a.Live(subs[0].Token))
}

func TestReadsAndFailuresAreNotBroadcast(t *testing.T) {
	a, sess := newAgent(t, session.LoggedIn(alice))
	inv := createInventory(t, a, "Kitchen")
	sub := a.Subscribe(registry.TopicSnapshots)

	do(t, a, GetInventory{InventoryUUID: inv})
	do(t, a, GetInventory{InventoryUUID: "nope"})
	do(t, a, CreateItem{InventoryUUID: inv})
	sess.set(session.LoggedOut())
	do(t, a, DeleteInventory{InventoryUUID: inv})
	inventories(t, a)

	assert.Empty(t, sub.C)
}

func TestSendAfterStop(t *testing.T) {
	logger, _ := testutil.NullLogger("agent")
	a := New(storage.New(kvmap.NewBucket(), logger), nil, logger)
	stop := testutil.StartRunner(t, a)
	stop()

	_, err := a.Send(context.Background(), GetInventories{})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestNilSessionIsUnauthorized(t *testing.T) {
	a := startAgent(t, kvmap.NewBucket(), nil)
	assert.IsType(t, Unauthorized{}, do(t, a, CreateInventory{Name: "Kitchen"}))
}

// Login, create an inventory and an item, read them back, wipe everything.
func TestScenarioWithSessionMachine(t *testing.T) {
	auth := testutil.NewFakeAuth(alice)
	logger, _ := testutil.NullLogger("session")
	machine := session.New(auth, logger)
	testutil.StartRunner(t, machine)

	a := startAgent(t, kvmap.NewBucket(), machine)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := machine.Settle(ctx)
	require.NoError(t, err)

	assert.IsType(t, Unauthorized{}, do(t, a, CreateInventory{Name: "Kitchen"}))

	st, err := machine.Do(ctx, session.Login{UserLogin: models.UserLogin{
		Identifier: models.UserIdentifier{Name: "alice"},
		Password:   "alice-pw",
	}})
	require.NoError(t, err)
	require.Equal(t, session.StatusLoggedIn, st.Status)

	inv := createInventory(t, a, "Kitchen")
	item := createItem(t, a, inv, "Rice")

	got := do(t, a, GetInventory{InventoryUUID: inv}).(Inventory).Inventory
	assert.Equal(t, alice.UUID, got.Owner)
	require.Len(t, got.Items, 1)
	assert.Equal(t, item, got.Items[0].UUID)

	assert.Equal(t, Inventories{Inventories: []models.Inventory{}}, do(t, a, DeleteAllData{}))
	assert.IsType(t, InvalidInventoryUUID{}, do(t, a, GetInventory{InventoryUUID: inv}))

	_, err = machine.Do(ctx, session.Logout{})
	require.NoError(t, err)
	assert.IsType(t, Unauthorized{}, do(t, a, CreateInventory{Name: "Kitchen"}))
}
