package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestSlots(t *testing.T) Slots {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, Migrate(db))
	return NewSlots(db)
}

func newTestStore(t *testing.T) (*RecordStore, Slots) {
	t.Helper()
	slots := newTestSlots(t)
	store := NewRecordStore(slots, KeyPeritagens, nil)
	n := 0
	store.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	store.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return store, slots
}

func TestSlotsSetGetDelete(t *testing.T) {
	ctx := context.Background()
	slots := newTestSlots(t)

	_, ok, err := slots.Get(ctx, KeyOfflineMode)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, slots.Set(ctx, KeyOfflineMode, "true"))
	require.NoError(t, slots.Set(ctx, KeyOfflineMode, "false"))
	v, ok, err := slots.Get(ctx, KeyOfflineMode)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", v)

	require.NoError(t, slots.Delete(ctx, KeyOfflineMode))
	_, ok, err = slots.Get(ctx, KeyOfflineMode)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	settings := NewSettings(newTestSlots(t))

	on, err := settings.OfflineMode(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, settings.SetOfflineMode(ctx, true))
	require.NoError(t, settings.SetPlan(ctx, PlanBasic))
	on, err = settings.OfflineMode(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	plan, err := settings.Plan(ctx)
	require.NoError(t, err)
	assert.Equal(t, PlanBasic, plan)

	assert.Error(t, settings.SetPlan(ctx, Plan("gold")))
}

func TestLoadMissingOrMalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	store, slots := newTestStore(t)

	assert.Empty(t, store.Load(ctx))

	require.NoError(t, slots.Set(ctx, KeyPeritagens, "{not json"))
	records := store.Load(ctx)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestInsertAssignsIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	added, err := store.Insert(ctx, []Record{
		{"cliente": "Vale", "id": "client-chosen"},
		{"cliente": "CSN", "created_at": "2025-01-01T00:00:00Z"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "id-1", added[0]["id"])
	assert.Equal(t, "2025-06-01T12:00:00Z", added[0]["created_at"])
	assert.Equal(t, "2025-01-01T00:00:00Z", added[1]["created_at"])

	all := store.Load(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, "Vale", all[0]["cliente"])
}

func TestQueryFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Insert(ctx, []Record{
		{"status": "Aguardando Compras", "created_at": "2025-01-10T08:00:00Z"},
		{"status": "Aguardando Compras", "created_at": "2025-03-05T08:00:00Z"},
		{"status": "Aguardando Orçamento", "created_at": "2025-02-01"},
		{"status": "Orçamento Finalizado", "created_at": "not a date"},
	})
	require.NoError(t, err)

	compras := "Aguardando Compras"
	got := store.Query(ctx, Query{StatusEq: &compras, Order: OrderCreatedDesc})
	require.Len(t, got, 2)
	assert.Equal(t, "2025-03-05T08:00:00Z", got[0]["created_at"], "march sorts before january")

	got = store.Query(ctx, Query{StatusIn: []string{"Aguardando Compras", "Aguardando Orçamento"}, Order: OrderCreatedAsc})
	require.Len(t, got, 3)
	assert.Equal(t, "2025-01-10T08:00:00Z", got[0]["created_at"])
	assert.Equal(t, "2025-02-01", got[1]["created_at"])

	got = store.Query(ctx, Query{Order: OrderCreatedDesc})
	require.Len(t, got, 4)
	assert.Equal(t, "not a date", got[3]["created_at"], "unparseable dates sort last")

	got = store.Query(ctx, Query{IDEq: "id-3"})
	require.Len(t, got, 1)
	assert.Equal(t, "Aguardando Orçamento", got[0]["status"])
}

func TestQueryEmptyStatusFilters(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Insert(ctx, []Record{
		{"status": "Aguardando Compras"},
		{"status": ""},
		{"cliente": "sem status"},
	})
	require.NoError(t, err)

	empty := ""
	got := store.Query(ctx, Query{StatusEq: &empty})
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0]["status"])

	assert.Empty(t, store.Query(ctx, Query{StatusIn: []string{}}))

	got = store.Query(ctx, Query{StatusIn: []string{""}})
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0]["status"])

	assert.Len(t, store.Query(ctx, Query{}), 3)
}

func TestPatchMissingIDLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store, slots := newTestStore(t)
	_, err := store.Insert(ctx, []Record{{"status": "Aguardando Compras"}})
	require.NoError(t, err)
	before, _, _ := slots.Get(ctx, KeyPeritagens)

	rec, ok, err := store.Patch(ctx, "nope", Record{"status": "Orçamento Finalizado"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rec)

	after, _, _ := slots.Get(ctx, KeyPeritagens)
	assert.Equal(t, before, after)
}

func TestPatchShallowMergeKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var items []any
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"1","component":"Haste","costs":{"cost":""}}]`), &items))
	added, err := store.Insert(ctx, []Record{{"cliente": "Gerdau", "status": "Aguardando Compras", "items": items}})
	require.NoError(t, err)
	id := added[0].ID()

	var updated []any
	require.NoError(t, json.Unmarshal([]byte(`[{"id":"1","component":"Haste","costs":{"cost":"150.00","supplier":"Parker"}}]`), &updated))
	rec, ok, err := store.Patch(ctx, id, Record{"items": updated})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Gerdau", rec["cliente"])

	loaded := store.Query(ctx, Query{IDEq: id})
	require.Len(t, loaded, 1)
	first := loaded[0]["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "Haste", first["component"])
	assert.Equal(t, "150.00", first["costs"].(map[string]any)["cost"])
	assert.Equal(t, "Aguardando Compras", loaded[0]["status"])
}

func TestSaveOfLoadIsNoop(t *testing.T) {
	ctx := context.Background()
	store, slots := newTestStore(t)
	_, err := store.Insert(ctx, []Record{
		{"cliente": "Suzano", "items": []any{map[string]any{"id": json.Number("1735689600000")}}},
	})
	require.NoError(t, err)
	before, _, _ := slots.Get(ctx, KeyPeritagens)

	require.NoError(t, store.Save(ctx, store.Load(ctx)))
	after, _, _ := slots.Get(ctx, KeyPeritagens)
	assert.Equal(t, before, after)
}

func TestPatchMatchesNumericIDsAsStrings(t *testing.T) {
	ctx := context.Background()
	store, slots := newTestStore(t)
	require.NoError(t, slots.Set(ctx, KeyPeritagens, `[{"id":1735689600000,"status":"Aguardando Compras"}]`))

	rec, ok, err := store.Patch(ctx, "1735689600000", Record{"status": "Aguardando Orçamento"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Aguardando Orçamento", rec["status"])
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	_, err := store.Insert(ctx, []Record{{"cliente": "Weg"}, {"cliente": "JBS"}})
	require.NoError(t, err)

	ok, err := store.Delete(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, ok)

	all := store.Load(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "JBS", all[0]["cliente"])
}
