package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/logging"
)

// newTestStore connects to GSA_TEST_DATABASE_URL, migrates, and seeds the
// testdata fixtures. Tests are skipped when the variable is unset.
func newTestStore(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("GSA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GSA_TEST_DATABASE_URL not set")
	}
	if _, err := Migrate(url); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx := context.Background()
	pool, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `TRUNCATE entities, capabilities`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	fx, err := LoadFixturesFile("testdata/fixtures.yaml")
	if err != nil {
		t.Fatalf("LoadFixturesFile() error = %v", err)
	}
	s := New(pool, logging.Discard())
	if _, err := s.Seed(ctx, fx); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return s
}

func TestPostgresListEntities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entities, counts, err := s.ListEntities(ctx, gmp.TypeReport, gmp.MustParseFilter("sort-reverse=severity rows=1"))
	if err != nil {
		t.Fatalf("ListEntities() error = %v", err)
	}
	if len(entities) != 1 || entities[0].Name != "Weekly scan" {
		t.Fatalf("ListEntities() = %+v", entities)
	}
	if counts.All != 2 || counts.Filtered != 2 || counts.Length != 1 || counts.First != 1 {
		t.Fatalf("counts = %+v", counts)
	}

	entities, counts, err = s.ListEntities(ctx, gmp.TypeTag, gmp.MustParseFilter("resource_type=host"))
	if err != nil {
		t.Fatalf("ListEntities() error = %v", err)
	}
	if len(entities) != 1 || counts.Filtered != 1 || counts.All != 2 {
		t.Fatalf("filtered tags = %+v, counts %+v", entities, counts)
	}
	if !gmp.ParseTag(entities[0]).Active {
		t.Fatal("expected active tag")
	}
}

func TestPostgresMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const id = "0b1c2d3e-1111-4222-8333-944455566602"

	if err := s.PatchEntity(ctx, gmp.TypeTag, id, map[string]any{"active": true}); err != nil {
		t.Fatalf("PatchEntity() error = %v", err)
	}
	e, err := s.GetEntity(ctx, gmp.TypeTag, id)
	if err != nil {
		t.Fatalf("GetEntity() error = %v", err)
	}
	if !e.Bool("active") || e.Text("resource_type") != "target" {
		t.Fatalf("patched fields = %v", e.Fields)
	}

	clone, err := s.CloneEntity(ctx, gmp.TypeTag, id)
	if err != nil {
		t.Fatalf("CloneEntity() error = %v", err)
	}
	if clone.ID == id || clone.Name != "legacy Clone 1" {
		t.Fatalf("clone = %+v", clone)
	}

	if err := s.DeleteEntity(ctx, gmp.TypeTag, id); err != nil {
		t.Fatalf("DeleteEntity() error = %v", err)
	}
	if _, err := s.GetEntity(ctx, gmp.TypeTag, id); !errors.Is(err, gmp.ErrNotFound) {
		t.Fatalf("GetEntity() after delete error = %v", err)
	}
	if err := s.DeleteEntity(ctx, gmp.TypeTag, id); !errors.Is(err, gmp.ErrNotFound) {
		t.Fatalf("second DeleteEntity() error = %v", err)
	}
}

func TestPostgresCapabilitiesAndHistogram(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	caps, err := s.Capabilities(ctx)
	if err != nil {
		t.Fatalf("Capabilities() error = %v", err)
	}
	if !gmp.NewCapabilities(caps).MayAccess(gmp.TypeVuln) {
		t.Fatalf("capabilities = %v", caps)
	}

	buckets, err := s.SeverityHistogram(ctx, gmp.TypeVuln, nil)
	if err != nil {
		t.Fatalf("SeverityHistogram() error = %v", err)
	}
	if len(buckets) != 2 || buckets[0].Score == nil || *buckets[0].Score != 5.3 {
		t.Fatalf("buckets = %+v", buckets)
	}
}
