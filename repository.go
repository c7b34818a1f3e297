package coral

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/coralorm/coral/builder"
	"github.com/coralorm/coral/caster"
	"github.com/coralorm/coral/logger"
	"github.com/coralorm/coral/schema"
)

// Criteria is a field-name-keyed filter for FindBy and FindOneBy. Slice
// values become IN conditions, nil values IS NULL.
type Criteria map[string]interface{}

type queryOptions struct {
	orders [][2]string
	limit  *int
	offset *int
}

// QueryOption adjusts ordering and paging of a fetch.
type QueryOption func(*queryOptions)

// OrderBy orders the result. Direction must be ASC or DESC.
func OrderBy(field, direction string) QueryOption {
	return func(o *queryOptions) { o.orders = append(o.orders, [2]string{field, direction}) }
}

// Limit caps the result size.
func Limit(n int) QueryOption {
	return func(o *queryOptions) { o.limit = &n }
}

// Offset skips leading rows.
func Offset(n int) QueryOption {
	return func(o *queryOptions) { o.offset = &n }
}

// Repository is the per-entity-type data access facade. Fetches return
// materialized entities; Save and Delete report success as a boolean and log
// the underlying cause on failure.
type Repository struct {
	conn     *Connection
	schema   *schema.Schema
	registry *schema.Registry
	logger   logger.Interface
	nowFunc  func() time.Time
	ctx      context.Context
	preloads []string
}

// NewRepository resolves the entity schema and builds a repository on top of
// the connection.
func NewRepository(conn *Connection, entity string, config *Config) (*Repository, error) {
	registry := config.registry()
	s, err := registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	return &Repository{
		conn:     conn,
		schema:   s,
		registry: registry,
		logger:   config.logger(),
		nowFunc:  config.now(),
		ctx:      context.Background(),
	}, nil
}

// Schema returns the repository's entity metadata.
func (r *Repository) Schema() *schema.Schema { return r.schema }

// WithContext returns a repository clone bound to ctx.
func (r *Repository) WithContext(ctx context.Context) *Repository {
	clone := *r
	clone.ctx = ctx
	return &clone
}

// With declares relations to eager load on the next fetch call only. The
// list is cleared after that fetch whether it succeeds or not.
func (r *Repository) With(relations ...string) *Repository {
	r.preloads = append(r.preloads, relations...)
	return r
}

// Find fetches one entity by primary key, nil when no row matches.
func (r *Repository) Find(pk interface{}) (*Entity, error) {
	return r.FindOneBy(Criteria{r.schema.PrimaryFieldName(): pk})
}

// FindAll fetches every row of the entity's table.
func (r *Repository) FindAll(opts ...QueryOption) ([]*Entity, error) {
	return r.FindBy(nil, opts...)
}

// FindBy fetches the entities matching criteria. Criteria keys must name
// declared column fields; anything else is a configuration error.
func (r *Repository) FindBy(criteria Criteria, opts ...QueryOption) ([]*Entity, error) {
	preloads := r.preloads
	r.preloads = nil

	var options queryOptions
	for _, opt := range opts {
		opt(&options)
	}

	sel := builder.Select().From(r.schema.Table)

	names := make([]string, 0, len(criteria))
	for name := range criteria {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field, err := r.columnField(name)
		if err != nil {
			return nil, err
		}
		switch value := criteria[name].(type) {
		case nil:
			sel.Where(field.DBName + " IS NULL")
		default:
			if values, ok := asSlice(value); ok {
				storage := make([]interface{}, len(values))
				for i, v := range values {
					storage[i] = caster.ToStorage(v)
				}
				sel.WhereIn(field.DBName, storage)
			} else {
				sel.Where(field.DBName+" = ?", caster.ToStorage(value))
			}
		}
	}

	for _, order := range options.orders {
		field, err := r.columnField(order[0])
		if err != nil {
			return nil, err
		}
		sel.OrderBy(field.DBName, order[1])
	}
	if options.limit != nil {
		sel.Limit(*options.limit)
	}
	if options.offset != nil {
		sel.Offset(*options.offset)
	}

	query, args, err := sel.Build()
	if err != nil {
		return nil, err
	}

	rows, err := r.conn.QueryRows(r.ctx, query, args...)
	if err != nil {
		return nil, err
	}

	entities := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, r.materialize(row))
	}

	if len(entities) > 0 {
		seen := map[string]bool{}
		for _, relation := range preloads {
			if seen[relation] {
				continue
			}
			seen[relation] = true
			if err := r.loadRelation(entities, relation); err != nil {
				return nil, err
			}
		}
	}

	return entities, nil
}

// FindOneBy fetches the first entity matching criteria, nil when none does.
func (r *Repository) FindOneBy(criteria Criteria, opts ...QueryOption) (*Entity, error) {
	entities, err := r.FindBy(criteria, append(opts, Limit(1))...)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return entities[0], nil
}

// Save inserts a new entity or updates a dirty one. Execution failures are
// logged and reported as false, never re-raised.
func (r *Repository) Save(entity *Entity) bool {
	if entity == nil {
		r.logger.Warn(r.ctx, "save called without an entity")
		return false
	}

	isNew, err := r.isNew(entity)
	if err != nil {
		r.logger.Error(r.ctx, "save %s: %v", r.schema.Name, err)
		return false
	}

	entity.nowFunc = r.nowFunc
	entity.TouchTimestamps(isNew)

	if isNew {
		return r.insert(entity)
	}
	return r.update(entity)
}

func (r *Repository) isNew(entity *Entity) (bool, error) {
	pk := entity.PrimaryKey()
	if pk == nil {
		return true, nil
	}
	if !r.schema.PrimaryField.AutoAssign {
		return false, nil
	}

	query, args, err := builder.Select(r.schema.PrimaryDBName()).
		From(r.schema.Table).
		Where(r.schema.PrimaryDBName()+" = ?", caster.ToStorage(pk)).
		Limit(1).
		Build()
	if err != nil {
		return false, err
	}
	row, err := r.conn.QueryRow(r.ctx, query, args...)
	if err != nil {
		return false, err
	}
	return row == nil, nil
}

func (r *Repository) insert(entity *Entity) bool {
	query, args, err := builder.Insert(r.schema.Table).Values(entity.AllForStorage()).Build()
	if err != nil {
		r.logger.Error(r.ctx, "insert %s: %v", r.schema.Name, err)
		return false
	}

	result, err := r.conn.Execute(r.ctx, query, args...)
	if err != nil {
		r.logger.Error(r.ctx, "insert %s: %v", r.schema.Name, err)
		return false
	}

	pkField := r.schema.PrimaryField
	if pkField.AutoAssign && entity.PrimaryKey() == nil {
		if id, err := result.LastInsertId(); err == nil {
			entity.Set(pkField.Name, id)
		} else {
			r.logger.Warn(r.ctx, "insert %s: no generated identifier: %v", r.schema.Name, err)
		}
	}

	entity.MarkPristine()
	return true
}

func (r *Repository) update(entity *Entity) bool {
	if !entity.IsDirty() {
		return true
	}

	values := entity.DirtyForStorage()
	delete(values, r.schema.PrimaryDBName())
	if len(values) == 0 {
		return true
	}

	query, args, err := builder.Update(r.schema.Table).
		Set(values).
		Where(r.schema.PrimaryDBName()+" = ?", caster.ToStorage(entity.PrimaryKey())).
		Build()
	if err != nil {
		r.logger.Error(r.ctx, "update %s: %v", r.schema.Name, err)
		return false
	}

	if _, err := r.conn.Execute(r.ctx, query, args...); err != nil {
		r.logger.Error(r.ctx, "update %s: %v", r.schema.Name, err)
		return false
	}

	entity.MarkPristine()
	return true
}

// Delete removes the entity's row by primary key. Entities without a primary
// key value fail without touching the database.
func (r *Repository) Delete(entity *Entity) bool {
	if entity == nil || entity.PrimaryKey() == nil {
		r.logger.Warn(r.ctx, "delete %s requires a primary key", r.schema.Name)
		return false
	}

	query, args, err := builder.Delete(r.schema.Table).
		Where(r.schema.PrimaryDBName()+" = ?", caster.ToStorage(entity.PrimaryKey())).
		Build()
	if err != nil {
		r.logger.Error(r.ctx, "delete %s: %v", r.schema.Name, err)
		return false
	}

	if _, err := r.conn.Execute(r.ctx, query, args...); err != nil {
		r.logger.Error(r.ctx, "delete %s: %v", r.schema.Name, err)
		return false
	}
	return true
}

func (r *Repository) materialize(row map[string]interface{}) *Entity {
	entity := NewEntityFromRow(r.schema, row)
	entity.nowFunc = r.nowFunc
	return entity
}

func (r *Repository) columnField(name string) (*schema.Field, error) {
	field, ok := r.schema.LookupField(name)
	if !ok || !field.IsColumn {
		return nil, fmt.Errorf("%w: %s.%s", ErrInvalidField, r.schema.Name, name)
	}
	return field, nil
}

// asSlice unpacks slice criteria values of any element type.
func asSlice(value interface{}) ([]interface{}, bool) {
	if values, ok := value.([]interface{}); ok {
		return values, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	values := make([]interface{}, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, true
}

// related builds a repository for the relation's target entity, sharing the
// connection, registry and context.
func (r *Repository) related(entity string) (*Repository, error) {
	s, err := r.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	return &Repository{
		conn:     r.conn,
		schema:   s,
		registry: r.registry,
		logger:   r.logger,
		nowFunc:  r.nowFunc,
		ctx:      r.ctx,
	}, nil
}
