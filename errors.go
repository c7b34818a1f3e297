package coral

import (
	"errors"

	"github.com/coralorm/coral/builder"
	"github.com/coralorm/coral/logger"
)

var (
	// ErrRecordNotFound record not found error
	ErrRecordNotFound = logger.ErrRecordNotFound
	// ErrMissingWhereClause missing where clause
	ErrMissingWhereClause = builder.ErrMissingWhereClause
	// ErrInvalidField field is not declared on the entity
	ErrInvalidField = errors.New("invalid field")
	// ErrUnsupportedRelation relation is not declared or has an unknown kind
	ErrUnsupportedRelation = errors.New("unsupported relation")
	// ErrInvalidRelationValue relation fields only accept an entity, a list of entities or nil
	ErrInvalidRelationValue = errors.New("invalid relation value")
	// ErrValidation a declared validation rule failed
	ErrValidation = errors.New("validation failed")
)
