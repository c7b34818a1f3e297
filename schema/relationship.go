package schema

// RelationshipKind relation cardinality between two entities
type RelationshipKind string

const (
	BelongsTo  RelationshipKind = "belongs_to"
	HasOne     RelationshipKind = "has_one"
	HasMany    RelationshipKind = "has_many"
	ManyToMany RelationshipKind = "many_to_many"
)

// Relationship describes one declared relation field.
//
// For BelongsTo, ForeignDBName is the foreign key column on the owning
// entity's table and ReferenceDBName the key column on the related table.
// For HasOne/HasMany, ForeignDBName is the foreign key column on the related
// table and ReferenceDBName the local key column on this entity's table.
// For ManyToMany the join table carries both keys.
type Relationship struct {
	Name              string
	Kind              RelationshipKind
	RelatedEntity     string
	ForeignDBName     string
	ReferenceDBName   string
	JoinTable         string
	JoinLocalDBName   string
	JoinRelatedDBName string
	Schema            *Schema
}
