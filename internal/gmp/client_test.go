package gmp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/gmp/gmptest"
)

func newClient(t *testing.T, entities ...gmp.Entity) (*gmp.Client, *gmptest.Backend) {
	t.Helper()
	backend := gmptest.NewBackend(entities...)
	client := gmp.NewClient(backend, gmp.ClientOptions{CacheTTL: time.Minute, DefaultRows: 10})
	return client, backend
}

func TestGetServesCacheThenStaleOnceAfterMutation(t *testing.T) {
	ctx := context.Background()
	client, backend := newClient(t,
		gmp.Entity{ID: "t1", EntityType: gmp.TypeTag, Name: "alpha"},
		gmp.Entity{ID: "t2", EntityType: gmp.TypeTag, Name: "beta"},
	)
	tags := client.Tags()

	first, err := tags.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first.Meta.FromCache || first.Meta.Dirty {
		t.Fatalf("first read meta = %+v, want backend read", first.Meta)
	}

	second, err := tags.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !second.Meta.FromCache || second.Meta.Stale() {
		t.Fatalf("second read meta = %+v, want clean cache hit", second.Meta)
	}

	if err := tags.Patch(ctx, "t2", map[string]any{"active": false}); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	stale, err := tags.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !stale.Meta.Stale() {
		t.Fatalf("read after mutation meta = %+v, want stale", stale.Meta)
	}

	fresh, err := tags.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fresh.Meta.FromCache {
		t.Fatalf("follow-up read meta = %+v, want backend read", fresh.Meta)
	}

	gets, _ := backend.Calls()
	if gets != 2 {
		t.Fatalf("backend gets = %d, want 2", gets)
	}
}

func TestGetAllAppliesDefaultRowsAndCaches(t *testing.T) {
	ctx := context.Background()
	var entities []gmp.Entity
	for _, name := range []string{"e", "d", "c", "b", "a"} {
		entities = append(entities, gmp.Entity{ID: name, EntityType: gmp.TypeReport, Name: name})
	}
	backend := gmptest.NewBackend(entities...)
	client := gmp.NewClient(backend, gmp.ClientOptions{CacheTTL: time.Minute, DefaultRows: 2})

	coll, err := client.Reports().GetAll(ctx, gmp.MustParseFilter("sort=name"))
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if got := coll.IDs(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("IDs() = %v, want [a b]", got)
	}
	if coll.Counts.Filtered != 5 || coll.Counts.Rows != 2 || coll.Counts.Last() != 2 {
		t.Fatalf("counts = %+v", coll.Counts)
	}
	if coll.Filter.Rows() != 2 {
		t.Fatalf("filter rows = %d, want 2", coll.Filter.Rows())
	}

	again, err := client.Reports().GetAll(ctx, gmp.MustParseFilter("sort=name"))
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if !again.Meta.FromCache {
		t.Fatal("second GetAll must be served from cache")
	}
	if _, lists := backend.Calls(); lists != 1 {
		t.Fatalf("backend lists = %d, want 1", lists)
	}
}

func TestGetAllEmptyIsNotNil(t *testing.T) {
	client, _ := newClient(t)
	coll, err := client.OvalDefs().GetAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if coll.Entities == nil || len(coll.Entities) != 0 {
		t.Fatalf("Entities = %#v, want empty non-nil", coll.Entities)
	}
}

func TestFetchErrorsWrapBackendFailures(t *testing.T) {
	client, backend := newClient(t)

	_, err := client.Reports().Get(context.Background(), "missing")
	if !gmp.IsNotFound(err) {
		t.Fatalf("Get() error = %v, want not found", err)
	}
	var fe *gmp.FetchError
	if !errors.As(err, &fe) || fe.EntityType != gmp.TypeReport || fe.ID != "missing" {
		t.Fatalf("error = %#v, want *FetchError for report missing", err)
	}

	backend.SetErr(gmptest.ErrBackendDown)
	_, err = client.Reports().GetAll(context.Background(), nil)
	if !errors.Is(err, gmptest.ErrBackendDown) {
		t.Fatalf("GetAll() error = %v, want backend down", err)
	}
}

func TestCommandRejectsUnknownType(t *testing.T) {
	client, _ := newClient(t)
	if _, err := client.Command("widgets"); !errors.Is(err, gmp.ErrUnknownEntityType) {
		t.Fatalf("Command() error = %v, want ErrUnknownEntityType", err)
	}
	cmd, err := client.Command("scanconfigs")
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if cmd.EntityType() != gmp.TypeScanConfig {
		t.Fatalf("EntityType() = %q", cmd.EntityType())
	}
}

func TestNilBackend(t *testing.T) {
	client := gmp.NewClient(nil, gmp.ClientOptions{})
	if _, err := client.Tags().Get(context.Background(), "x"); !errors.Is(err, gmp.ErrNoBackend) {
		t.Fatalf("Get() error = %v, want ErrNoBackend", err)
	}
}

func TestCacheDisabledWithZeroTTL(t *testing.T) {
	backend := gmptest.NewBackend(gmp.Entity{ID: "v1", EntityType: gmp.TypeVuln, Name: "CVE"})
	client := gmp.NewClient(backend, gmp.ClientOptions{})

	for i := 0; i < 3; i++ {
		resp, err := client.Vulns().Get(context.Background(), "v1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if resp.Meta.FromCache {
			t.Fatal("cache must be disabled")
		}
	}
	if gets, _ := backend.Calls(); gets != 3 {
		t.Fatalf("gets = %d, want 3", gets)
	}
}

func TestSeverityClassCounts(t *testing.T) {
	client, _ := newClient(t,
		gmp.Entity{ID: "v1", EntityType: gmp.TypeVuln, Severity: gmptest.Severity(9.8)},
		gmp.Entity{ID: "v2", EntityType: gmp.TypeVuln, Severity: gmptest.Severity(5.0)},
		gmp.Entity{ID: "v3", EntityType: gmp.TypeVuln, Severity: gmptest.Severity(5.04)},
	)
	counts, err := client.SeverityClassCounts(context.Background(), gmp.TypeVuln, nil)
	if err != nil {
		t.Fatalf("SeverityClassCounts() error = %v", err)
	}
	got := map[string]int{}
	for _, cc := range counts {
		got[cc.Class] = cc.Count
	}
	if got[gmp.SeverityHigh] != 1 || got[gmp.SeverityMedium] != 2 {
		t.Fatalf("counts = %v", got)
	}
}
