package gmp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/open-gsa/gsa/internal/logging"
)

// Backend is the storage the client reads from and writes to.
type Backend interface {
	GetEntity(ctx context.Context, entityType, id string) (Entity, error)
	ListEntities(ctx context.Context, entityType string, filter *Filter) ([]Entity, Counts, error)
	DeleteEntity(ctx context.Context, entityType, id string) error
	CloneEntity(ctx context.Context, entityType, id string) (Entity, error)
	PatchEntity(ctx context.Context, entityType, id string, fields map[string]any) error
	Capabilities(ctx context.Context) ([]string, error)
	SeverityHistogram(ctx context.Context, entityType string, filter *Filter) ([]SeverityBucket, error)
}

type ClientOptions struct {
	CacheTTL    time.Duration
	DefaultRows int
	Logger      *slog.Logger
}

// Client is the data-access client handed to views and controllers.
type Client struct {
	backend     Backend
	cache       *Cache
	defaultRows int
	logger      *slog.Logger
}

func NewClient(backend Backend, opts ClientOptions) *Client {
	return &Client{
		backend:     backend,
		cache:       NewCache(opts.CacheTTL),
		defaultRows: opts.DefaultRows,
		logger:      logging.Component(opts.Logger, "gmp"),
	}
}

// Command returns the command set for entityType.
func (c *Client) Command(entityType string) (*EntityCommand, error) {
	entityType = NormalizeType(entityType)
	if !IsKnownType(entityType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
	return &EntityCommand{client: c, entityType: entityType}, nil
}

func (c *Client) mustCommand(entityType string) *EntityCommand {
	cmd, err := c.Command(entityType)
	if err != nil {
		panic(err)
	}
	return cmd
}

func (c *Client) Reports() *EntityCommand { return c.mustCommand(TypeReport) }
func (c *Client) Tags() *EntityCommand { return c.mustCommand(TypeTag) }
func (c *Client) ScanConfigs() *EntityCommand { return c.mustCommand(TypeScanConfig) }
func (c *Client) OvalDefs() *EntityCommand { return c.mustCommand(TypeOvalDef) }
func (c *Client) Vulns() *EntityCommand { return c.mustCommand(TypeVuln) }
func (c *Client) Permissions() *EntityCommand { return c.mustCommand(TypePermission) }
func (c *Client) DfnCertAdvs() *EntityCommand { return c.mustCommand(TypeDfnCertAdv) }

// Capabilities loads the command set of the current user.
func (c *Client) Capabilities(ctx context.Context) (Capabilities, error) {
	if c == nil || c.backend == nil {
		return Capabilities{}, ErrNoBackend
	}
	commands, err := c.backend.Capabilities(ctx)
	if err != nil {
		return Capabilities{}, wrapFetch("capabilities", "capabilities", "", err)
	}
	return NewCapabilities(commands), nil
}

// SeverityClassCounts groups the entities matching filter by severity class.
func (c *Client) SeverityClassCounts(ctx context.Context, entityType string, filter *Filter) ([]ClassCount, error) {
	if c == nil || c.backend == nil {
		return nil, ErrNoBackend
	}
	entityType = NormalizeType(entityType)
	buckets, err := c.backend.SeverityHistogram(ctx, entityType, filter)
	if err != nil {
		return nil, wrapFetch("histogram", entityType, "", err)
	}
	return GroupSeverityClasses(buckets), nil
}

// Invalidate marks the cached reads of entityType dirty.
func (c *Client) Invalidate(entityType string) {
	if c == nil {
		return
	}
	c.cache.Invalidate(NormalizeType(entityType))
}

// EntityCommand groups the reads and writes of one entity type.
type EntityCommand struct {
	client     *Client
	entityType string
}

func (cmd *EntityCommand) EntityType() string {
	return cmd.entityType
}

func (cmd *EntityCommand) backend() (Backend, error) {
	if cmd == nil || cmd.client == nil || cmd.client.backend == nil {
		return nil, ErrNoBackend
	}
	return cmd.client.backend, nil
}

// Get reads one entity, from the cache when possible.
func (cmd *EntityCommand) Get(ctx context.Context, id string) (Response, error) {
	backend, err := cmd.backend()
	if err != nil {
		return Response{}, err
	}
	if v, meta, ok := cmd.client.cache.lookup(cmd.entityType, cacheKindGet, id); ok {
		if entity, ok := v.(Entity); ok {
			return Response{Data: entity, Meta: meta}, nil
		}
	}

	entity, err := backend.GetEntity(ctx, cmd.entityType, id)
	if err != nil {
		return Response{}, wrapFetch("get", cmd.entityType, id, err)
	}
	cmd.client.cache.store(cmd.entityType, cacheKindGet, id, entity)
	cmd.client.logger.Debug("loaded entity", "entity_type", cmd.entityType, "id", id)
	return Response{Data: entity}, nil
}

// GetAll reads one page of entities matching filter.
func (cmd *EntityCommand) GetAll(ctx context.Context, filter *Filter) (Collection, error) {
	backend, err := cmd.backend()
	if err != nil {
		return Collection{}, err
	}
	if filter.Rows() == 0 && cmd.client.defaultRows > 0 {
		filter = filter.WithRows(cmd.client.defaultRows)
	}
	key := filter.String()
	if v, meta, ok := cmd.client.cache.lookup(cmd.entityType, cacheKindAll, key); ok {
		if coll, ok := v.(Collection); ok {
			coll.Meta = meta
			return coll, nil
		}
	}

	entities, counts, err := backend.ListEntities(ctx, cmd.entityType, filter)
	if err != nil {
		return Collection{}, wrapFetch("list", cmd.entityType, "", err)
	}
	if entities == nil {
		entities = []Entity{}
	}
	coll := Collection{Entities: entities, Counts: counts, Filter: filter}
	cmd.client.cache.store(cmd.entityType, cacheKindAll, key, coll)
	cmd.client.logger.Debug("loaded entities", "entity_type", cmd.entityType, "filter", key, "count", len(entities))
	return coll, nil
}

func (cmd *EntityCommand) Delete(ctx context.Context, id string) error {
	backend, err := cmd.backend()
	if err != nil {
		return err
	}
	if err := backend.DeleteEntity(ctx, cmd.entityType, id); err != nil {
		return wrapFetch("delete", cmd.entityType, id, err)
	}
	cmd.client.Invalidate(cmd.entityType)
	return nil
}

func (cmd *EntityCommand) Clone(ctx context.Context, id string) (Entity, error) {
	backend, err := cmd.backend()
	if err != nil {
		return Entity{}, err
	}
	clone, err := backend.CloneEntity(ctx, cmd.entityType, id)
	if err != nil {
		return Entity{}, wrapFetch("clone", cmd.entityType, id, err)
	}
	cmd.client.Invalidate(cmd.entityType)
	return clone, nil
}

// Patch merges fields into the entity's attributes.
func (cmd *EntityCommand) Patch(ctx context.Context, id string, fields map[string]any) error {
	backend, err := cmd.backend()
	if err != nil {
		return err
	}
	if err := backend.PatchEntity(ctx, cmd.entityType, id, fields); err != nil {
		return wrapFetch("patch", cmd.entityType, id, err)
	}
	cmd.client.Invalidate(cmd.entityType)
	return nil
}
