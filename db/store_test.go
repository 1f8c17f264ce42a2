package db_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/onnwee/chatkeeper/catalog"
	"github.com/onnwee/chatkeeper/db"
	"github.com/onnwee/chatkeeper/testutil"
)

func TestStoreRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := db.NewStore(database)
	ctx := context.Background()

	snap := catalog.Snapshot{
		Commands: []catalog.Command{
			{Name: "!hello", Text: "Hello %param%!", Auth: "+a ", CooldownSeconds: 10},
			{Name: "!promo", Text: "follow me", Auth: "+a ", Repeating: true, IntervalSeconds: 120, InitialDelaySeconds: 30},
		},
		Counters: []catalog.Counter{{Name: "deaths", Value: 42}},
		Filters: []catalog.Filter{
			{Name: "zeta", Reason: "first"},
			{Name: "alpha", Reason: "second", Disabled: true},
		},
		Config: map[string]string{catalog.ConfigPyramidResponse: "Stop."},
	}
	if err := store.Commit(ctx, snap); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got.Commands, snap.Commands) {
		t.Errorf("commands = %+v, want %+v", got.Commands, snap.Commands)
	}
	if !reflect.DeepEqual(got.Counters, snap.Counters) {
		t.Errorf("counters = %+v, want %+v", got.Counters, snap.Counters)
	}
	// Filters must come back in insertion order, not name order.
	if !reflect.DeepEqual(got.Filters, snap.Filters) {
		t.Errorf("filters = %+v, want %+v", got.Filters, snap.Filters)
	}
	if got.Config[catalog.ConfigPyramidResponse] != "Stop." {
		t.Errorf("config = %+v", got.Config)
	}

	// A second commit fully replaces the previous contents.
	if err := store.Commit(ctx, catalog.Snapshot{}); err != nil {
		t.Fatalf("empty commit: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("load after empty commit: %v", err)
	}
	if len(got.Commands) != 0 || len(got.Counters) != 0 || len(got.Filters) != 0 || len(got.Config) != 0 {
		t.Errorf("expected empty snapshot, got %+v", got)
	}
}
