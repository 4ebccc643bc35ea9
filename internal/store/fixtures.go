package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/open-gsa/gsa/internal/gmp"
	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML document loaded by `gsa seed`.
type Fixtures struct {
	Capabilities []string     `yaml:"capabilities"`
	Entities     []gmp.Entity `yaml:"entities"`
}

func LoadFixturesFile(path string) (Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixtures{}, err
	}
	defer f.Close()

	fx, err := LoadFixtures(f)
	if err != nil {
		return Fixtures{}, fmt.Errorf("%s: %w", path, err)
	}
	return fx, nil
}

// LoadFixtures decodes and normalizes a fixtures document. Entity types
// accept the list aliases ("reports", "configs"); missing ids are generated.
func LoadFixtures(r io.Reader) (Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return Fixtures{}, nil
		}
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	seen := make(map[string]int, len(fx.Entities))
	for i := range fx.Entities {
		e := &fx.Entities[i]
		e.EntityType = gmp.NormalizeType(e.EntityType)
		if !gmp.IsKnownType(e.EntityType) {
			return Fixtures{}, fmt.Errorf("entities[%d]: %w: %q", i, gmp.ErrUnknownEntityType, e.EntityType)
		}
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		key := e.EntityType + "/" + e.ID
		if prev, ok := seen[key]; ok {
			return Fixtures{}, fmt.Errorf("entities[%d]: duplicate %s (also entities[%d])", i, key, prev)
		}
		seen[key] = i
		if e.CreationTime.IsZero() {
			e.CreationTime = now
		}
		if e.ModificationTime.IsZero() {
			e.ModificationTime = e.CreationTime
		}
	}
	for i, c := range fx.Capabilities {
		fx.Capabilities[i] = strings.TrimSpace(c)
	}
	return fx, nil
}

// Seed upserts fixtures in one transaction and returns the number of
// entities written.
func (p *Postgres) Seed(ctx context.Context, fx Fixtures) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range fx.Capabilities {
		if c == "" {
			continue
		}
		batch.Queue(`INSERT INTO capabilities (command) VALUES ($1) ON CONFLICT DO NOTHING`, c)
	}
	for _, e := range fx.Entities {
		fields := e.Fields
		if fields == nil {
			fields = map[string]any{}
		}
		doc, err := json.Marshal(fields)
		if err != nil {
			return 0, fmt.Errorf("%s %s: encode fields: %w", e.EntityType, e.ID, err)
		}
		caps := e.UserCapabilities
		if caps == nil {
			caps = []string{}
		}
		batch.Queue(`
			INSERT INTO entities (entity_type, uuid, name, comment, owner, severity, fields, user_capabilities, creation_time, modification_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)
			ON CONFLICT (entity_type, uuid) DO UPDATE SET
				name = EXCLUDED.name,
				comment = EXCLUDED.comment,
				owner = EXCLUDED.owner,
				severity = EXCLUDED.severity,
				fields = EXCLUDED.fields,
				user_capabilities = EXCLUDED.user_capabilities,
				modification_time = EXCLUDED.modification_time`,
			e.EntityType, e.ID, e.Name, e.Comment, e.Owner, e.Severity, string(doc), caps, e.CreationTime, e.ModificationTime,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	p.logger.Info("seeded fixtures", "entities", len(fx.Entities), "capabilities", len(fx.Capabilities))
	return len(fx.Entities), nil
}
