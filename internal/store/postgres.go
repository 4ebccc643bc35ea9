// Package store is the PostgreSQL backend behind the gmp client.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/logging"
)

const entityColumns = `uuid, entity_type, name, comment, owner, severity, fields, user_capabilities, creation_time, modification_time`

// Postgres implements gmp.Backend on a single generic entities table.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ gmp.Backend = (*Postgres)(nil)

func New(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logging.Component(logger, "store")}
}

// Connect opens a pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func scanEntity(row pgx.Row) (gmp.Entity, error) {
	var e gmp.Entity
	var fields map[string]any
	err := row.Scan(
		&e.ID,
		&e.EntityType,
		&e.Name,
		&e.Comment,
		&e.Owner,
		&e.Severity,
		&fields,
		&e.UserCapabilities,
		&e.CreationTime,
		&e.ModificationTime,
	)
	if err != nil {
		return gmp.Entity{}, err
	}
	if len(fields) > 0 {
		e.Fields = fields
	}
	return e, nil
}

func (p *Postgres) GetEntity(ctx context.Context, entityType, id string) (gmp.Entity, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE entity_type = $1 AND uuid = $2`,
		entityType, id,
	)
	e, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return gmp.Entity{}, gmp.ErrNotFound
	}
	return e, err
}

func (p *Postgres) ListEntities(ctx context.Context, entityType string, filter *gmp.Filter) ([]gmp.Entity, gmp.Counts, error) {
	var args sqlArgs
	where, err := compileWhere(entityType, filter, &args)
	if err != nil {
		return nil, gmp.Counts{}, err
	}

	counts := gmp.Counts{First: filter.First(), Rows: filter.Rows()}
	countArgs := append(sqlArgs{}, args...)
	countSQL := `SELECT count(*) FILTER (WHERE entity_type = $1), count(*) FILTER (WHERE ` + where + `) FROM entities`
	if err := p.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&counts.All, &counts.Filtered); err != nil {
		return nil, gmp.Counts{}, fmt.Errorf("count %s: %w", entityType, err)
	}

	query := `SELECT ` + entityColumns + ` FROM entities WHERE ` + where + ` ` + compileOrder(filter, &args) + compilePage(filter, &args)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, gmp.Counts{}, fmt.Errorf("list %s: %w", entityType, err)
	}
	entities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (gmp.Entity, error) {
		return scanEntity(row)
	})
	if err != nil {
		return nil, gmp.Counts{}, fmt.Errorf("list %s: %w", entityType, err)
	}
	counts.Length = len(entities)

	p.logger.Debug("listed entities", "entity_type", entityType, "filter", filter.String(), "length", counts.Length, "filtered", counts.Filtered)
	return entities, counts, nil
}

func (p *Postgres) DeleteEntity(ctx context.Context, entityType, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM entities WHERE entity_type = $1 AND uuid = $2`, entityType, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return gmp.ErrNotFound
	}
	return nil
}

func (p *Postgres) CloneEntity(ctx context.Context, entityType, id string) (gmp.Entity, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO entities (entity_type, uuid, name, comment, owner, severity, fields, user_capabilities, creation_time, modification_time)
		SELECT entity_type, $3, name || ' Clone 1', comment, owner, severity, fields, user_capabilities, now(), now()
		FROM entities
		WHERE entity_type = $1 AND uuid = $2
		RETURNING `+entityColumns,
		entityType, id, uuid.NewString(),
	)
	e, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return gmp.Entity{}, gmp.ErrNotFound
	}
	return e, err
}

// PatchEntity merges fields into the stored fields document.
func (p *Postgres) PatchEntity(ctx context.Context, entityType, id string, fields map[string]any) error {
	doc, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE entities
		SET fields = fields || $3::jsonb, modification_time = now()
		WHERE entity_type = $1 AND uuid = $2`,
		entityType, id, string(doc),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return gmp.ErrNotFound
	}
	return nil
}

func (p *Postgres) Capabilities(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT command FROM capabilities ORDER BY command`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// SeverityHistogram counts matching entities per severity score rounded to
// one decimal. Unscored entities land in a bucket with a nil score.
func (p *Postgres) SeverityHistogram(ctx context.Context, entityType string, filter *gmp.Filter) ([]gmp.SeverityBucket, error) {
	var args sqlArgs
	where, err := compileWhere(entityType, filter, &args)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, `
		SELECT round(severity::numeric, 1)::double precision AS score, count(*)
		FROM entities
		WHERE `+where+`
		GROUP BY 1
		ORDER BY 1 DESC NULLS LAST`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (gmp.SeverityBucket, error) {
		var b gmp.SeverityBucket
		err := row.Scan(&b.Score, &b.Count)
		return b, err
	})
}
