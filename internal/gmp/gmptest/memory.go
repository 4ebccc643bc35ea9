// Package gmptest provides an in-memory gmp.Backend for tests.
package gmptest

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-gsa/gsa/internal/gmp"
)

// Backend is a goroutine-safe in-memory gmp.Backend. It understands free
// text, name~, and key=value criteria, sorting by name, and paging.
type Backend struct {
	mu           gosync.Mutex
	entities     map[string][]gmp.Entity
	capabilities []string

	err     error
	getErr  map[string]error
	listErr map[string]error

	gets  int
	lists int
}

func NewBackend(entities ...gmp.Entity) *Backend {
	b := &Backend{entities: make(map[string][]gmp.Entity)}
	for _, e := range entities {
		b.Put(e)
	}
	return b
}

// Put inserts or replaces e.
func (b *Backend) Put(e gmp.Entity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.EntityType = gmp.NormalizeType(e.EntityType)
	list := b.entities[e.EntityType]
	for i := range list {
		if list[i].ID == e.ID {
			list[i] = e
			return
		}
	}
	b.entities[e.EntityType] = append(list, e)
}

// SetErr makes every call fail with err; nil restores normal operation.
func (b *Backend) SetErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// FailGet makes GetEntity fail for id; a nil err clears the failure.
func (b *Backend) FailGet(id string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.getErr == nil {
		b.getErr = make(map[string]error)
	}
	if err == nil {
		delete(b.getErr, id)
		return
	}
	b.getErr[id] = err
}

// FailList makes ListEntities and SeverityHistogram fail for entityType; a
// nil err clears the failure.
func (b *Backend) FailList(entityType string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr == nil {
		b.listErr = make(map[string]error)
	}
	if err == nil {
		delete(b.listErr, entityType)
		return
	}
	b.listErr[entityType] = err
}

func (b *Backend) SetCapabilities(commands ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.capabilities = append([]string(nil), commands...)
}

// Calls returns how many GetEntity and ListEntities calls reached the backend.
func (b *Backend) Calls() (gets, lists int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets, b.lists
}

func (b *Backend) GetEntity(_ context.Context, entityType, id string) (gmp.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gets++
	if b.err != nil {
		return gmp.Entity{}, b.err
	}
	if err := b.getErr[id]; err != nil {
		return gmp.Entity{}, err
	}
	for _, e := range b.entities[entityType] {
		if e.ID == id {
			return e, nil
		}
	}
	return gmp.Entity{}, gmp.ErrNotFound
}

func (b *Backend) ListEntities(_ context.Context, entityType string, filter *gmp.Filter) ([]gmp.Entity, gmp.Counts, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists++
	if b.err != nil {
		return nil, gmp.Counts{}, b.err
	}
	if err := b.listErr[entityType]; err != nil {
		return nil, gmp.Counts{}, err
	}

	all := b.entities[entityType]
	matched := make([]gmp.Entity, 0, len(all))
	for _, e := range all {
		if matches(e, filter) {
			matched = append(matched, e)
		}
	}
	if filter.SortBy() == "name" {
		desc := filter.SortOrder() == gmp.SortDesc
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i].Name > matched[j].Name
			}
			return matched[i].Name < matched[j].Name
		})
	}

	first := filter.First()
	rows := filter.Rows()
	start := first - 1
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if rows > 0 && start+rows < end {
		end = start + rows
	}
	page := append([]gmp.Entity{}, matched[start:end]...)
	counts := gmp.Counts{
		All:      len(all),
		Filtered: len(matched),
		First:    first,
		Rows:     rows,
		Length:   len(page),
	}
	return page, counts, nil
}

func matches(e gmp.Entity, filter *gmp.Filter) bool {
	groups := filter.Groups()
	if len(groups) == 0 {
		return true
	}
	for _, g := range groups {
		ok := true
		for _, t := range g {
			if termMatches(e, t) == t.Negated {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func termMatches(e gmp.Entity, t gmp.Term) bool {
	value := strings.ToLower(t.Value)
	switch {
	case t.Relation == gmp.RelationText:
		return strings.Contains(strings.ToLower(e.Name), value) || strings.Contains(strings.ToLower(e.Comment), value)
	case t.Keyword == "name" && t.Relation == gmp.RelationContains:
		return strings.Contains(strings.ToLower(e.Name), value)
	case t.Keyword == "name":
		return strings.ToLower(e.Name) == value
	case t.Keyword == "uuid" || t.Keyword == "id":
		return e.ID == t.Value
	default:
		return strings.ToLower(e.Text(t.Keyword)) == value
	}
}

func (b *Backend) DeleteEntity(_ context.Context, entityType, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	list := b.entities[entityType]
	for i := range list {
		if list[i].ID == id {
			b.entities[entityType] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return gmp.ErrNotFound
}

func (b *Backend) CloneEntity(_ context.Context, entityType, id string) (gmp.Entity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return gmp.Entity{}, b.err
	}
	for _, e := range b.entities[entityType] {
		if e.ID != id {
			continue
		}
		clone := e
		clone.ID = uuid.NewString()
		clone.Name = e.Name + " Clone 1"
		clone.CreationTime = time.Now().UTC()
		clone.ModificationTime = clone.CreationTime
		clone.Fields = copyFields(e.Fields)
		b.entities[entityType] = append(b.entities[entityType], clone)
		return clone, nil
	}
	return gmp.Entity{}, gmp.ErrNotFound
}

func (b *Backend) PatchEntity(_ context.Context, entityType, id string, fields map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	list := b.entities[entityType]
	for i := range list {
		if list[i].ID != id {
			continue
		}
		merged := copyFields(list[i].Fields)
		if merged == nil {
			merged = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			merged[k] = v
		}
		list[i].Fields = merged
		list[i].ModificationTime = time.Now().UTC()
		return nil
	}
	return gmp.ErrNotFound
}

func (b *Backend) Capabilities(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	return append([]string(nil), b.capabilities...), nil
}

func (b *Backend) SeverityHistogram(_ context.Context, entityType string, filter *gmp.Filter) ([]gmp.SeverityBucket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	if err := b.listErr[entityType]; err != nil {
		return nil, err
	}
	counts := make(map[float64]int)
	unscored := 0
	for _, e := range b.entities[entityType] {
		if !matches(e, filter) {
			continue
		}
		if e.Severity == nil {
			unscored++
			continue
		}
		counts[math.Round(*e.Severity*10)/10]++
	}
	out := make([]gmp.SeverityBucket, 0, len(counts)+1)
	for score, n := range counts {
		s := score
		out = append(out, gmp.SeverityBucket{Score: &s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Score > *out[j].Score })
	if unscored > 0 {
		out = append(out, gmp.SeverityBucket{Count: unscored})
	}
	return out, nil
}

func copyFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// ErrBackendDown is a convenience failure for tests.
var ErrBackendDown = errors.New("backend unavailable")

// Severity returns a pointer to score.
func Severity(score float64) *float64 {
	return &score
}
