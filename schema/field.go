package schema

// DataType logical field type
type DataType string

const (
	Bool   DataType = "bool"
	Int    DataType = "int"
	Float  DataType = "float"
	String DataType = "string"
	Time   DataType = "time"
	JSON   DataType = "json"
)

// Field describes one declared entity field. A field is only mapped to a
// table column when it carries a column, primary key or timestamp
// declaration; relation object fields and their backing foreign key scalars
// are separate declarations.
type Field struct {
	Name            string
	DBName          string
	DataType        DataType
	IsColumn        bool
	PrimaryKey      bool
	AutoAssign      bool
	AutoCreateTime  bool
	AutoUpdateTime  bool
	HasDefaultValue bool
	DefaultValue    interface{}
	Schema          *Schema
}

// ValidationKind validation rule kind
type ValidationKind string

const (
	// NotNullRule value must be present and non nil
	NotNullRule ValidationKind = "not_null"
	// LengthBetween string length must fall inside the declared bounds
	LengthBetween ValidationKind = "length"
)

// Unbounded marks a missing length bound.
const Unbounded = -1

// ValidationRule one declared validation constraint for a field
type ValidationRule struct {
	Kind ValidationKind
	Min  int
	Max  int
}
