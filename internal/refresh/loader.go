package refresh

import (
	"context"

	"github.com/open-gsa/gsa/internal/gmp"
)

// EntitySlice is the state slice filled by the primary loader.
const EntitySlice = "entity"

// Result is what a loader hands back: the value stored under the loader's
// name and the cache provenance of that value.
type Result struct {
	Value any
	Meta  gmp.Meta
}

// Loader fetches one named slice of state for a subject id.
type Loader struct {
	Name string
	Load func(ctx context.Context, id string) (Result, error)
}

// Getter is satisfied by *gmp.EntityCommand.
type Getter interface {
	Get(ctx context.Context, id string) (gmp.Response, error)
}

// Lister is satisfied by *gmp.EntityCommand.
type Lister interface {
	GetAll(ctx context.Context, filter *gmp.Filter) (gmp.Collection, error)
}

// EntityLoader loads the subject itself. Its value is a gmp.Entity.
func EntityLoader(cmd Getter) Loader {
	return Loader{
		Name: EntitySlice,
		Load: func(ctx context.Context, id string) (Result, error) {
			resp, err := cmd.Get(ctx, id)
			if err != nil {
				return Result{}, err
			}
			return Result{Value: resp.Data, Meta: resp.Meta}, nil
		},
	}
}

// CollectionLoader loads a collection related to the subject, selected by
// the filter filterFor builds from the subject id. Its value is a
// gmp.Collection.
func CollectionLoader(name string, cmd Lister, filterFor func(id string) *gmp.Filter) Loader {
	return Loader{
		Name: name,
		Load: func(ctx context.Context, id string) (Result, error) {
			coll, err := cmd.GetAll(ctx, filterFor(id))
			if err != nil {
				return Result{}, err
			}
			return Result{Value: coll, Meta: coll.Meta}, nil
		},
	}
}

// PermissionsSlice is the slice name used by the permission loaders.
const PermissionsSlice = "permissions"

// PermissionsResourceFilter selects permissions granted on resource id.
func PermissionsResourceFilter(id string) *gmp.Filter {
	return (*gmp.Filter)(nil).
		And(gmp.Term{Keyword: "resource_uuid", Relation: gmp.RelationEqual, Value: id}).
		WithRows(gmp.RowsAll)
}

// PermissionsSubjectFilter selects permissions where id is the subject and
// a resource is set, or where id is the resource.
func PermissionsSubjectFilter(id string) *gmp.Filter {
	return (*gmp.Filter)(nil).
		And(gmp.Term{Keyword: "subject_uuid", Relation: gmp.RelationEqual, Value: id}).
		And(gmp.Term{Keyword: "resource_uuid", Relation: gmp.RelationEqual, Value: "", Negated: true}).
		Or(gmp.Term{Keyword: "resource_uuid", Relation: gmp.RelationEqual, Value: id}).
		WithRows(gmp.RowsAll)
}

func PermissionsResourceLoader(cmd Lister) Loader {
	return CollectionLoader(PermissionsSlice, cmd, PermissionsResourceFilter)
}

func PermissionsSubjectLoader(cmd Lister) Loader {
	return CollectionLoader(PermissionsSlice, cmd, PermissionsSubjectFilter)
}
