package coral

import (
	"fmt"
	"reflect"
	"time"

	"github.com/coralorm/coral/caster"
	"github.com/coralorm/coral/schema"
)

// RelationState tells loaded and unloaded relation values apart: a relation
// that was never eager loaded is distinguishable from one that resolved to
// nothing.
type RelationState int

const (
	// RelationUnloaded the relation was never assigned or loaded
	RelationUnloaded RelationState = iota
	// RelationLoaded a single related entity is present
	RelationLoaded
	// RelationLoadedMany a list of related entities is present
	RelationLoadedMany
	// RelationAbsent the relation was loaded and resolved to nothing
	RelationAbsent
)

type relationValue struct {
	state RelationState
	one   *Entity
	many  []*Entity
}

// Entity is an in-memory row: a baseline of last-known-persisted values plus
// an overlay of fields changed since. The overlay only ever holds true
// deltas — setting a field back to its baseline value removes it again.
type Entity struct {
	schema    *schema.Schema
	baseline  map[string]interface{}
	overlay   map[string]interface{}
	relations map[string]*relationValue
	nowFunc   func() time.Time
}

// NewEntity creates a fresh, unpersisted instance. Every subsequent Set is a
// delta against the empty baseline.
func NewEntity(s *schema.Schema) *Entity {
	return &Entity{
		schema:    s,
		baseline:  map[string]interface{}{},
		overlay:   map[string]interface{}{},
		relations: map[string]*relationValue{},
	}
}

// NewEntityFromRow materializes an entity from a raw storage row. Each column
// value is cast to its logical type and the entity starts pristine.
func NewEntityFromRow(s *schema.Schema, row map[string]interface{}) *Entity {
	e := NewEntity(s)
	for dbName, value := range row {
		field, ok := s.LookupColumn(dbName)
		if !ok {
			continue
		}
		e.baseline[field.Name] = caster.ToLogical(value, field.DataType)
	}
	return e
}

// Schema returns the entity's metadata descriptor.
func (e *Entity) Schema() *schema.Schema { return e.schema }

// Get returns the current logical value of a field: the overlay wins over the
// baseline, the baseline over a declared default, and nil otherwise.
func (e *Entity) Get(name string) interface{} {
	if value, ok := e.overlay[name]; ok {
		return value
	}
	if value, ok := e.baseline[name]; ok {
		return value
	}
	if field, ok := e.schema.LookupField(name); ok && field.HasDefaultValue {
		if field.IsColumn {
			return caster.ToLogical(field.DefaultValue, field.DataType)
		}
		return field.DefaultValue
	}
	return nil
}

// Set assigns a field. Scalar values are cast to the field's logical type and
// compared against the baseline so the overlay stays a set of true deltas.
// Relation fields accept an entity, a list of entities or nil and are stored
// verbatim, outside the dirty comparison.
func (e *Entity) Set(name string, value interface{}) error {
	if _, ok := e.schema.Relationships[name]; ok {
		return e.setRelation(name, value)
	}

	field, ok := e.schema.LookupField(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrInvalidField, e.schema.Name, name)
	}

	casted := caster.ToLogical(value, field.DataType)

	baseline, hasBaseline := e.baseline[name]
	if !hasBaseline || valuesDiffer(casted, baseline) {
		e.overlay[name] = casted
	} else {
		delete(e.overlay, name)
	}
	return nil
}

func (e *Entity) setRelation(name string, value interface{}) error {
	switch v := value.(type) {
	case nil:
		e.relations[name] = &relationValue{state: RelationAbsent}
	case *Entity:
		if v == nil {
			e.relations[name] = &relationValue{state: RelationAbsent}
		} else {
			e.relations[name] = &relationValue{state: RelationLoaded, one: v}
		}
	case []*Entity:
		e.relations[name] = &relationValue{state: RelationLoadedMany, many: v}
	default:
		return fmt.Errorf("%w: %s.%s got %T", ErrInvalidRelationValue, e.schema.Name, name, value)
	}
	return nil
}

// RelationState reports whether a relation field was loaded and with what
// cardinality.
func (e *Entity) RelationState(name string) RelationState {
	if rv, ok := e.relations[name]; ok {
		return rv.state
	}
	return RelationUnloaded
}

// Related returns the loaded to-one relation value, nil when unloaded or
// absent.
func (e *Entity) Related(name string) *Entity {
	if rv, ok := e.relations[name]; ok && rv.state == RelationLoaded {
		return rv.one
	}
	return nil
}

// RelatedMany returns the loaded to-many relation value, nil when unloaded.
func (e *Entity) RelatedMany(name string) []*Entity {
	if rv, ok := e.relations[name]; ok && rv.state == RelationLoadedMany {
		return rv.many
	}
	return nil
}

// IsDirty reports whether any field differs from the baseline.
func (e *Entity) IsDirty() bool {
	return len(e.overlay) > 0
}

// DirtyProperties returns the changed fields with their logical values.
func (e *Entity) DirtyProperties() map[string]interface{} {
	dirty := make(map[string]interface{}, len(e.overlay))
	for name, value := range e.overlay {
		dirty[name] = value
	}
	return dirty
}

// DirtyForStorage returns the changed column fields keyed by storage name,
// values in storage representation.
func (e *Entity) DirtyForStorage() map[string]interface{} {
	dirty := make(map[string]interface{}, len(e.overlay))
	for name, value := range e.overlay {
		field, ok := e.schema.LookupField(name)
		if !ok || !field.IsColumn {
			continue
		}
		dirty[field.DBName] = caster.ToStorage(value)
	}
	return dirty
}

// AllForStorage returns every column's current value keyed by storage name,
// in storage representation. An auto assigned primary key is included only
// when present. This is the INSERT payload.
func (e *Entity) AllForStorage() map[string]interface{} {
	all := map[string]interface{}{}
	for _, field := range e.schema.Columns() {
		value := e.Get(field.Name)
		if field.PrimaryKey && field.AutoAssign && value == nil {
			continue
		}
		all[field.DBName] = caster.ToStorage(value)
	}
	return all
}

// MarkPristine merges the overlay into the baseline, leaving the entity
// clean.
func (e *Entity) MarkPristine() {
	for name, value := range e.overlay {
		e.baseline[name] = value
	}
	e.overlay = map[string]interface{}{}
}

// PrimaryKey returns the current primary key value.
func (e *Entity) PrimaryKey() interface{} {
	if e.schema.PrimaryField == nil {
		return nil
	}
	return e.Get(e.schema.PrimaryField.Name)
}

// TouchTimestamps stamps the declared timestamp fields: created at once on
// new records, updated at on every call.
func (e *Entity) TouchTimestamps(isNew bool) {
	now := e.now()
	if isNew && e.schema.CreatedAtField != nil && e.Get(e.schema.CreatedAtField.Name) == nil {
		e.Set(e.schema.CreatedAtField.Name, now)
	}
	if e.schema.UpdatedAtField != nil {
		e.Set(e.schema.UpdatedAtField.Name, now)
	}
}

// Validate applies the declared validation rules against the current values.
func (e *Entity) Validate() error {
	for name, rules := range e.schema.Validations {
		value := e.Get(name)
		for _, rule := range rules {
			switch rule.Kind {
			case schema.NotNullRule:
				if value == nil {
					return fmt.Errorf("%w: %s.%s must not be null", ErrValidation, e.schema.Name, name)
				}
			case schema.LengthBetween:
				str, ok := value.(string)
				if !ok {
					continue
				}
				if rule.Min != schema.Unbounded && len(str) < rule.Min {
					return fmt.Errorf("%w: %s.%s shorter than %d", ErrValidation, e.schema.Name, name, rule.Min)
				}
				if rule.Max != schema.Unbounded && len(str) > rule.Max {
					return fmt.Errorf("%w: %s.%s longer than %d", ErrValidation, e.schema.Name, name, rule.Max)
				}
			}
		}
	}
	return nil
}

func (e *Entity) now() time.Time {
	if e.nowFunc != nil {
		return e.nowFunc()
	}
	return time.Now()
}

// valuesDiffer is the type-aware inequality used by dirty comparison:
// timestamps compare by instant, booleans by value, everything else by value
// equality.
func valuesDiffer(a, b interface{}) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return !at.Equal(bt)
		}
		return true
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab != bb
		}
		return true
	}
	return !reflect.DeepEqual(a, b)
}
