package schema

import (
	"errors"
)

var (
	// ErrUnknownEntity no definition registered under the requested name
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrMissingPrimaryKey no primary key declaration and no id field to fall back to
	ErrMissingPrimaryKey = errors.New("missing primary key")
	// ErrDuplicatePrimaryKey more than one primary key declaration
	ErrDuplicatePrimaryKey = errors.New("duplicate primary key")
	// ErrDuplicateTimestamp more than one created at or updated at declaration
	ErrDuplicateTimestamp = errors.New("duplicate timestamp declaration")
	// ErrDuplicateColumn two fields mapped to the same column
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrDuplicateField a field or relation declared twice under one name
	ErrDuplicateField = errors.New("duplicate field")
	// ErrInvalidValidation validation rule with impossible bounds
	ErrInvalidValidation = errors.New("invalid validation rule")
	// ErrMissingForeignKey has one and has many relations require a declared foreign key
	ErrMissingForeignKey = errors.New("missing foreign key")
	// ErrRelationCycle two entities need each other to resolve default relation keys
	ErrRelationCycle = errors.New("relation resolution cycle")
)

// Schema is the immutable metadata descriptor for one entity type. Built once
// by a Registry and shared afterwards.
type Schema struct {
	Name           string
	Table          string
	Fields         []*Field
	FieldsByName   map[string]*Field
	FieldsByDBName map[string]*Field
	PrimaryField   *Field
	CreatedAtField *Field
	UpdatedAtField *Field
	Relationships  map[string]*Relationship
	Validations    map[string][]ValidationRule
}

// PrimaryDBName returns the storage column of the primary key.
func (s *Schema) PrimaryDBName() string {
	if s.PrimaryField == nil {
		return ""
	}
	return s.PrimaryField.DBName
}

// PrimaryFieldName returns the field name of the primary key.
func (s *Schema) PrimaryFieldName() string {
	if s.PrimaryField == nil {
		return ""
	}
	return s.PrimaryField.Name
}

// LookupField finds a declared field by name.
func (s *Schema) LookupField(name string) (*Field, bool) {
	f, ok := s.FieldsByName[name]
	return f, ok
}

// LookupColumn finds a column field by its storage name.
func (s *Schema) LookupColumn(dbName string) (*Field, bool) {
	f, ok := s.FieldsByDBName[dbName]
	return f, ok
}

// Columns returns the column fields in declaration order.
func (s *Schema) Columns() []*Field {
	columns := make([]*Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.IsColumn {
			columns = append(columns, f)
		}
	}
	return columns
}
