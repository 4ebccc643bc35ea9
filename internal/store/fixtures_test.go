package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/open-gsa/gsa/internal/gmp"
)

func TestLoadFixturesFile(t *testing.T) {
	fx, err := LoadFixturesFile("testdata/fixtures.yaml")
	if err != nil {
		t.Fatalf("LoadFixturesFile() error = %v", err)
	}
	if len(fx.Capabilities) == 0 {
		t.Fatal("expected capabilities")
	}

	byType := map[string]int{}
	for _, e := range fx.Entities {
		byType[e.EntityType]++
		if e.ID == "" {
			t.Fatalf("entity %q has no id", e.Name)
		}
		if e.CreationTime.IsZero() || e.ModificationTime.IsZero() {
			t.Fatalf("entity %q has zero timestamps", e.Name)
		}
	}
	if byType[gmp.TypeReport] != 2 {
		t.Fatalf("reports = %d, want 2 (aliases normalized)", byType[gmp.TypeReport])
	}
	if byType[gmp.TypeScanConfig] != 1 {
		t.Fatalf("scan configs = %d, want 1", byType[gmp.TypeScanConfig])
	}

	report := gmp.ParseReport(fx.Entities[0])
	if report.Results.High != 3 || report.Status != "Done" {
		t.Fatalf("ParseReport() = %+v", report)
	}
}

func TestLoadFixturesGeneratesIDs(t *testing.T) {
	fx, err := LoadFixtures(strings.NewReader("entities:\n  - type: tags\n    name: a\n"))
	if err != nil {
		t.Fatalf("LoadFixtures() error = %v", err)
	}
	if len(fx.Entities) != 1 || fx.Entities[0].ID == "" || fx.Entities[0].EntityType != gmp.TypeTag {
		t.Fatalf("LoadFixtures() = %+v", fx.Entities)
	}
}

func TestLoadFixturesErrors(t *testing.T) {
	tests := map[string]string{
		"unknown type":  "entities:\n  - type: widget\n    name: a\n",
		"unknown field": "entities:\n  - type: tag\n    colour: red\n",
		"duplicate":     "entities:\n  - {type: tag, id: x}\n  - {type: tags, id: x}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFixtures(strings.NewReader(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, err := LoadFixtures(strings.NewReader("entities:\n  - type: widget\n"))
	if !errors.Is(err, gmp.ErrUnknownEntityType) {
		t.Fatalf("error = %v, want ErrUnknownEntityType", err)
	}
}

func TestLoadFixturesEmpty(t *testing.T) {
	fx, err := LoadFixtures(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFixtures() error = %v", err)
	}
	if len(fx.Entities) != 0 {
		t.Fatalf("entities = %v", fx.Entities)
	}
}
