package shop

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chrich02/pizzashop/internal/config"
	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/order"
	"github.com/Chrich02/pizzashop/internal/session"
	"github.com/Chrich02/pizzashop/internal/testutil"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.SessionPath = filepath.Join(t.TempDir(), "session.json")
	cfg.MonitorInterval = time.Hour
	cfg.Workers = 2
	return cfg
}

type harness struct {
	shop    *Shop
	logbook *testutil.MemoryLogbook
	rec     *testutil.Recorder
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	h := &harness{logbook: &testutil.MemoryLogbook{}, rec: testutil.NewRecorder()}
	s, err := New(cfg, WithClock(testutil.NewStepClock()), WithLogbook(h.logbook))
	require.NoError(t, err)
	s.Subscribe(h.rec)
	h.shop = s
	return h
}

func (h *harness) start(t *testing.T) int {
	t.Helper()
	n, err := h.shop.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.shop.Shutdown() })
	return n
}

func (h *harness) finish(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.shop.Wait(ctx))
	require.NoError(t, h.shop.Shutdown())
}

func TestShop_SubmitRunsToCollected(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg)
	h.start(t)

	id, err := h.shop.Submit(context.Background(), "margherita", "Small", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	h.finish(t)

	rec, ok := h.shop.Order(id)
	require.True(t, ok)
	assert.Equal(t, "Margherita", rec.ItemKind, "item kind is canonicalised")
	assert.Equal(t, order.SizeSmall, rec.Size)
	assert.Equal(t, order.StatusCollected, rec.Status)
	require.NotNil(t, rec.CompletedAt)

	assert.Equal(t, map[inventory.Ingredient]int{
		inventory.Base: 3, inventory.Sauce: 3, inventory.Topping: 1,
	}, h.shop.Inventory())
	assert.Equal(t, []string{"Registered", "Cooking", "ReadyForCollection", "Collected"}, h.logbook.Actions(id))
	assert.Equal(t, order.Stages(), h.rec.Statuses(id))
	assert.Empty(t, h.shop.Orders(false), "collected orders leave the active view")
	assert.Len(t, h.shop.Orders(true), 1)

	snap, err := session.NewManager(cfg.SessionPath).Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.NextOrderID)
	assert.Equal(t, order.StatusCollected, snap.Orders[id].Status)
}

func TestShop_ValidationRejectsBeforeMutation(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg)
	h.start(t)
	ctx := context.Background()

	_, err := h.shop.Submit(ctx, "Hawaiian", "small", 1)
	assert.True(t, order.IsValidation(err))
	_, err = h.shop.Submit(ctx, "Margherita", "family", 1)
	assert.True(t, order.IsValidation(err))
	_, err = h.shop.Submit(ctx, "Margherita", "small", 0)
	assert.True(t, order.IsValidation(err))

	assert.Empty(t, h.shop.Orders(true))
	id, err := h.shop.Submit(ctx, "Pepperoni", "medium", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id, "rejected submissions do not consume ids")

	_, err = os.Stat(cfg.SessionPath)
	assert.NoError(t, err)
}

func TestShop_IDsMonotonicAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first := newHarness(t, cfg)
	first.start(t)
	for i := 0; i < 3; i++ {
		_, err := first.shop.Submit(ctx, "Vegetable", "small", 1)
		require.NoError(t, err)
	}
	first.finish(t)

	second := newHarness(t, cfg)
	second.start(t)
	id, err := second.shop.Submit(ctx, "Vegetable", "small", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
	second.finish(t)
	assert.Len(t, second.shop.Orders(true), 4)
}

func TestShop_RecoversUnfinishedOrders(t *testing.T) {
	cfg := testConfig(t)
	at := testutil.Epoch
	require.NoError(t, session.NewManager(cfg.SessionPath).Save(session.Snapshot{
		Orders: map[int64]order.Record{
			1: {ID: 1, ItemKind: "Margherita", Size: order.SizeSmall, Quantity: 1, Status: order.StatusRegistered, SubmittedAt: at},
			2: {ID: 2, ItemKind: "Meat Feast", Size: order.SizeLarge, Quantity: 1, Status: order.StatusCooking, SubmittedAt: at},
			3: {ID: 3, ItemKind: "Pepperoni", Size: order.SizeMedium, Quantity: 1, Status: order.StatusCollected, SubmittedAt: at},
		},
		NextOrderID: 4,
	}))

	h := newHarness(t, cfg)
	assert.Equal(t, 2, h.start(t))
	h.finish(t)

	for _, id := range []int64{1, 2, 3} {
		rec, _ := h.shop.Order(id)
		assert.Equal(t, order.StatusCollected, rec.Status, "order %d", id)
	}

	assert.Equal(t, map[inventory.Ingredient]int{
		inventory.Base: 4, inventory.Sauce: 4, inventory.Topping: 3,
	}, h.shop.Inventory(), "only the Registered order reserves")
	assert.Equal(t, []string{"Registered", "Cooking", "ReadyForCollection", "Collected"}, h.logbook.Actions(1))
	assert.Equal(t, []string{"Resumed", "ReadyForCollection", "Collected"}, h.logbook.Actions(2))
	assert.Empty(t, h.logbook.Actions(3))
}

func TestShop_CorruptSessionStartsEmpty(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.SessionPath, []byte("{not json"), 0o644))

	h := newHarness(t, cfg)
	assert.True(t, session.IsCorrupt(h.shop.Warning()))
	assert.Empty(t, h.shop.Orders(true))

	h.start(t)
	id, err := h.shop.Submit(context.Background(), "Margherita", "small", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	h.finish(t)
}

func TestShop_DraftAutosave(t *testing.T) {
	cfg := testConfig(t)

	first := newHarness(t, cfg)
	require.NoError(t, first.shop.SaveDraft(order.Draft{"item_kind": "Pepperoni", "size": "large", "quantity": 2}))

	second := newHarness(t, cfg)
	draft := second.shop.Draft()
	require.NotNil(t, draft)
	assert.Equal(t, "Pepperoni", draft["item_kind"])
	assert.Equal(t, float64(2), draft["quantity"])
	assert.Equal(t, testutil.Epoch, draft["updated_at"])

	second.start(t)
	_, err := second.shop.Submit(context.Background(), "Pepperoni", "large", 2)
	require.NoError(t, err)
	assert.Nil(t, second.shop.Draft(), "submitting clears the draft")
	second.finish(t)
}

func TestShop_ProcessedLimitKeepsOrdersRegistered(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 1
	cfg.MaxProcessed = 2
	ctx := context.Background()

	h := newHarness(t, cfg)
	h.start(t)
	for i := 0; i < 4; i++ {
		_, err := h.shop.Submit(ctx, "Margherita", "small", 1)
		require.NoError(t, err)
	}
	h.finish(t)

	assert.Equal(t, 2, h.shop.Stats().Processed)
	assert.Equal(t, []int64{3, 4}, h.shop.Pending())
	for _, id := range []int64{3, 4} {
		rec, _ := h.shop.Order(id)
		assert.Equal(t, order.StatusRegistered, rec.Status)
	}

	cfg.MaxProcessed = 0
	next := newHarness(t, cfg)
	assert.Equal(t, 2, next.start(t))
	next.finish(t)
	assert.Empty(t, next.shop.Orders(false))
}

func TestShop_ShortfallFillsShoppingList(t *testing.T) {
	cfg := testConfig(t)
	cfg.InitialStock[inventory.Base] = 0

	h := newHarness(t, cfg)
	h.start(t)
	_, err := h.shop.Submit(context.Background(), "Meat Feast", "large", 3)
	require.NoError(t, err)
	h.finish(t)

	assert.Equal(t, map[inventory.Ingredient]int{
		inventory.Base: -4, inventory.Sauce: -1, inventory.Topping: -7,
	}, h.shop.Inventory())
	assert.Equal(t, []inventory.ShoppingItem{
		{Ingredient: inventory.Base, Current: -4, ToOrder: 9},
		{Ingredient: inventory.Sauce, Current: -1, ToOrder: 6},
		{Ingredient: inventory.Topping, Current: -7, ToOrder: 12},
	}, h.shop.ShoppingList())
	assert.Empty(t, h.shop.ShoppingList(), "flags clear once listed")
}

func TestShop_Simulate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 4

	h := newHarness(t, cfg)
	h.start(t)
	res, err := h.shop.Simulate(context.Background(), 30, 7)
	require.NoError(t, err)
	require.NoError(t, h.shop.Shutdown())

	assert.Len(t, res.Submitted, 30)
	assert.Equal(t, 30, res.Collected)
	assert.Empty(t, res.Pending)

	for _, rec := range h.shop.Orders(true) {
		_, known := cfg.Menu.Match(rec.ItemKind)
		assert.True(t, known)
		assert.GreaterOrEqual(t, rec.Quantity, 1)
		assert.LessOrEqual(t, rec.Quantity, 3)
	}
}

func TestShop_SimulateIsSeeded(t *testing.T) {
	batch := func() []order.Record {
		cfg := testConfig(t)
		h := newHarness(t, cfg)
		h.start(t)
		_, err := h.shop.Simulate(context.Background(), 10, 42)
		require.NoError(t, err)
		require.NoError(t, h.shop.Shutdown())

		out := h.shop.Orders(true)
		for i := range out {
			out[i].Status = ""
			out[i].SubmittedAt = time.Time{}
			out[i].CompletedAt = nil
		}
		return out
	}

	assert.Equal(t, batch(), batch())
}

func TestShop_WaitBeforeStart(t *testing.T) {
	h := newHarness(t, testConfig(t))
	assert.ErrorIs(t, h.shop.Wait(context.Background()), ErrNotStarted)
	assert.NoError(t, h.shop.Shutdown())
}
