package schema

import (
	"fmt"
)

// Definition is the declarative description of one entity type, collected
// through the fluent builder and turned into a Schema by a Registry.
type Definition struct {
	name      string
	table     string
	fields    []*fieldDef
	relations []*relationDef
}

type fieldDef struct {
	name         string
	dataType     DataType
	column       string
	hasColumn    bool
	primaryKey   bool
	manualAssign bool
	createdAt    bool
	updatedAt    bool
	notNull      bool
	hasLength    bool
	lengthMin    int
	lengthMax    int
	hasDefault   bool
	defaultValue interface{}
}

type relationDef struct {
	name        string
	kind        RelationshipKind
	related     string
	foreignKey  string
	reference   string
	joinTable   string
	joinLocal   string
	joinRelated string
}

// FieldOption configures one field declaration.
type FieldOption func(*fieldDef)

// Column maps the field to an explicit storage column.
func Column(name string) FieldOption {
	return func(f *fieldDef) {
		f.column = name
		f.hasColumn = true
	}
}

// MappedColumn maps the field to a column using the naming strategy default.
func MappedColumn() FieldOption {
	return func(f *fieldDef) { f.hasColumn = true }
}

// PrimaryKey marks the field as the entity's primary key.
func PrimaryKey() FieldOption {
	return func(f *fieldDef) { f.primaryKey = true }
}

// ManualAssign marks a primary key as not database generated.
func ManualAssign() FieldOption {
	return func(f *fieldDef) { f.manualAssign = true }
}

// CreatedAt marks the field as the creation timestamp column.
func CreatedAt() FieldOption {
	return func(f *fieldDef) { f.createdAt = true }
}

// UpdatedAt marks the field as the update timestamp column.
func UpdatedAt() FieldOption {
	return func(f *fieldDef) { f.updatedAt = true }
}

// NotNull requires a non nil value on validation.
func NotNull() FieldOption {
	return func(f *fieldDef) { f.notNull = true }
}

// Length constrains the string length of the field. Pass Unbounded to leave
// one side open; at least one bound must be present.
func Length(min, max int) FieldOption {
	return func(f *fieldDef) {
		f.hasLength = true
		f.lengthMin = min
		f.lengthMax = max
	}
}

// Default declares an in-memory default returned by Get before any value is
// set or loaded.
func Default(value interface{}) FieldOption {
	return func(f *fieldDef) {
		f.hasDefault = true
		f.defaultValue = value
	}
}

// RelationOption configures one relation declaration.
type RelationOption func(*relationDef)

// ForeignKey overrides the foreign key column. For BelongsTo this is the
// column on the declaring table, for HasOne/HasMany the column on the related
// table.
func ForeignKey(column string) RelationOption {
	return func(r *relationDef) { r.foreignKey = column }
}

// References overrides the key column the foreign key points at. For
// BelongsTo this is the owner key on the related table, for HasOne/HasMany
// the local key on the declaring table.
func References(column string) RelationOption {
	return func(r *relationDef) { r.reference = column }
}

// Define starts the declaration of an entity type.
func Define(name string) *Definition {
	return &Definition{name: name}
}

// Name returns the entity type name.
func (d *Definition) Name() string { return d.name }

// Table overrides the derived table name.
func (d *Definition) Table(name string) *Definition {
	d.table = name
	return d
}

// Field declares a field. Pass an empty DataType for untyped pass-through.
func (d *Definition) Field(name string, dataType DataType, opts ...FieldOption) *Definition {
	f := &fieldDef{name: name, dataType: dataType}
	for _, opt := range opts {
		opt(f)
	}
	d.fields = append(d.fields, f)
	return d
}

// BelongsTo declares a to-one relation whose foreign key lives on this
// entity's table.
func (d *Definition) BelongsTo(name, related string, opts ...RelationOption) *Definition {
	return d.relation(name, BelongsTo, related, opts)
}

// HasOne declares a to-one relation whose foreign key lives on the related
// table. The foreign key must be declared with ForeignKey.
func (d *Definition) HasOne(name, related string, opts ...RelationOption) *Definition {
	return d.relation(name, HasOne, related, opts)
}

// HasMany declares a to-many relation whose foreign key lives on the related
// table. The foreign key must be declared with ForeignKey.
func (d *Definition) HasMany(name, related string, opts ...RelationOption) *Definition {
	return d.relation(name, HasMany, related, opts)
}

// ManyToMany declares a to-many relation resolved through a join table. The
// join table name and both of its key columns are always explicit.
func (d *Definition) ManyToMany(name, related, joinTable, localColumn, relatedColumn string) *Definition {
	d.relations = append(d.relations, &relationDef{
		name:        name,
		kind:        ManyToMany,
		related:     related,
		joinTable:   joinTable,
		joinLocal:   localColumn,
		joinRelated: relatedColumn,
	})
	return d
}

func (d *Definition) relation(name string, kind RelationshipKind, related string, opts []RelationOption) *Definition {
	r := &relationDef{name: name, kind: kind, related: related}
	for _, opt := range opts {
		opt(r)
	}
	d.relations = append(d.relations, r)
	return d
}

// build turns the definition into an immutable Schema. The registry is needed
// to resolve default BelongsTo owner keys against related schemas.
func (d *Definition) build(r *Registry) (*Schema, error) {
	s := &Schema{
		Name:           d.name,
		Table:          d.table,
		FieldsByName:   map[string]*Field{},
		FieldsByDBName: map[string]*Field{},
		Relationships:  map[string]*Relationship{},
		Validations:    map[string][]ValidationRule{},
	}

	if s.Table == "" {
		s.Table = r.namer.TableName(d.name)
	}

	for _, fd := range d.fields {
		if _, ok := s.FieldsByName[fd.name]; ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateField, d.name, fd.name)
		}

		field := &Field{
			Name:            fd.name,
			DataType:        fd.dataType,
			PrimaryKey:      fd.primaryKey,
			AutoAssign:      fd.primaryKey && !fd.manualAssign,
			AutoCreateTime:  fd.createdAt,
			AutoUpdateTime:  fd.updatedAt,
			HasDefaultValue: fd.hasDefault,
			DefaultValue:    fd.defaultValue,
			Schema:          s,
		}

		field.DBName = fd.column
		if field.DBName == "" {
			field.DBName = r.namer.ColumnName(fd.name)
		}
		field.IsColumn = fd.hasColumn || fd.primaryKey || fd.createdAt || fd.updatedAt

		if fd.createdAt || fd.updatedAt {
			if field.DataType == "" {
				field.DataType = Time
			}
		}

		if fd.primaryKey {
			if s.PrimaryField != nil {
				return nil, fmt.Errorf("%w: %s has %s and %s", ErrDuplicatePrimaryKey, d.name, s.PrimaryField.Name, fd.name)
			}
			s.PrimaryField = field
		}
		if fd.createdAt {
			if s.CreatedAtField != nil {
				return nil, fmt.Errorf("%w: %s created at on %s and %s", ErrDuplicateTimestamp, d.name, s.CreatedAtField.Name, fd.name)
			}
			s.CreatedAtField = field
		}
		if fd.updatedAt {
			if s.UpdatedAtField != nil {
				return nil, fmt.Errorf("%w: %s updated at on %s and %s", ErrDuplicateTimestamp, d.name, s.UpdatedAtField.Name, fd.name)
			}
			s.UpdatedAtField = field
		}

		if fd.notNull {
			s.Validations[fd.name] = append(s.Validations[fd.name], ValidationRule{Kind: NotNullRule})
		}
		if fd.hasLength {
			if fd.lengthMin == Unbounded && fd.lengthMax == Unbounded {
				return nil, fmt.Errorf("%w: %s.%s has no length bound", ErrInvalidValidation, d.name, fd.name)
			}
			if fd.lengthMin != Unbounded && fd.lengthMax != Unbounded && fd.lengthMin > fd.lengthMax {
				return nil, fmt.Errorf("%w: %s.%s min %d > max %d", ErrInvalidValidation, d.name, fd.name, fd.lengthMin, fd.lengthMax)
			}
			s.Validations[fd.name] = append(s.Validations[fd.name], ValidationRule{Kind: LengthBetween, Min: fd.lengthMin, Max: fd.lengthMax})
		}

		if field.IsColumn {
			if _, ok := s.FieldsByDBName[field.DBName]; ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, d.name, field.DBName)
			}
			s.FieldsByDBName[field.DBName] = field
		}
		s.FieldsByName[fd.name] = field
		s.Fields = append(s.Fields, field)
	}

	if s.PrimaryField == nil {
		if field, ok := s.FieldsByName["id"]; ok {
			field.PrimaryKey = true
			field.AutoAssign = true
			if !field.IsColumn {
				field.IsColumn = true
				if _, taken := s.FieldsByDBName[field.DBName]; taken {
					return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, d.name, field.DBName)
				}
				s.FieldsByDBName[field.DBName] = field
			}
			s.PrimaryField = field
		} else {
			return nil, fmt.Errorf("%w: %s", ErrMissingPrimaryKey, d.name)
		}
	}

	for _, rd := range d.relations {
		if _, ok := s.FieldsByName[rd.name]; ok {
			return nil, fmt.Errorf("%w: %s.%s declared as both field and relation", ErrDuplicateField, d.name, rd.name)
		}
		if _, ok := s.Relationships[rd.name]; ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateField, d.name, rd.name)
		}

		rel := &Relationship{
			Name:          rd.name,
			Kind:          rd.kind,
			RelatedEntity: rd.related,
			Schema:        s,
		}

		switch rd.kind {
		case BelongsTo:
			rel.ForeignDBName = rd.foreignKey
			if rel.ForeignDBName == "" {
				rel.ForeignDBName = r.namer.ForeignKeyName(rd.related)
			}
			rel.ReferenceDBName = rd.reference
			if rel.ReferenceDBName == "" {
				related, err := r.lookupLocked(rd.related)
				if err != nil {
					return nil, fmt.Errorf("resolving owner key of %s.%s: %w", d.name, rd.name, err)
				}
				rel.ReferenceDBName = related.PrimaryDBName()
			}
		case HasOne, HasMany:
			if rd.foreignKey == "" {
				return nil, fmt.Errorf("%w: %s.%s", ErrMissingForeignKey, d.name, rd.name)
			}
			rel.ForeignDBName = rd.foreignKey
			rel.ReferenceDBName = rd.reference
			if rel.ReferenceDBName == "" {
				rel.ReferenceDBName = s.PrimaryDBName()
			}
		case ManyToMany:
			if rd.joinTable == "" || rd.joinLocal == "" || rd.joinRelated == "" {
				return nil, fmt.Errorf("%w: %s.%s join table declaration incomplete", ErrMissingForeignKey, d.name, rd.name)
			}
			rel.JoinTable = rd.joinTable
			rel.JoinLocalDBName = rd.joinLocal
			rel.JoinRelatedDBName = rd.joinRelated
		}

		s.Relationships[rd.name] = rel
	}

	return s, nil
}
