package coral

import (
	"fmt"

	"github.com/coralorm/coral/builder"
	"github.com/coralorm/coral/caster"
	"github.com/coralorm/coral/schema"
	"github.com/coralorm/coral/utils"
)

// loadRelation resolves one declared relation for a batch of parents with a
// fixed number of queries: two for belongs to, has one and has many, three
// for many to many. Related rows with the same identity materialize as one
// shared instance within the batch.
func (r *Repository) loadRelation(parents []*Entity, name string) error {
	relation, ok := r.schema.Relationships[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnsupportedRelation, r.schema.Name, name)
	}

	related, err := r.related(relation.RelatedEntity)
	if err != nil {
		return fmt.Errorf("loading %s.%s: %w", r.schema.Name, name, err)
	}

	switch relation.Kind {
	case schema.BelongsTo:
		return r.loadBelongsTo(parents, relation, related)
	case schema.HasOne, schema.HasMany:
		return r.loadHas(parents, relation, related)
	case schema.ManyToMany:
		return r.loadManyToMany(parents, relation, related)
	default:
		return fmt.Errorf("%w: %s.%s kind %s", ErrUnsupportedRelation, r.schema.Name, name, relation.Kind)
	}
}

func (r *Repository) loadBelongsTo(parents []*Entity, relation *schema.Relationship, related *Repository) error {
	fkField, ok := r.schema.LookupColumn(relation.ForeignDBName)
	if !ok {
		return fmt.Errorf("%w: %s has no column %s backing relation %s", ErrInvalidField, r.schema.Name, relation.ForeignDBName, relation.Name)
	}
	ownerField, ok := related.schema.LookupColumn(relation.ReferenceDBName)
	if !ok {
		return fmt.Errorf("%w: %s has no column %s referenced by %s.%s", ErrInvalidField, related.schema.Name, relation.ReferenceDBName, r.schema.Name, relation.Name)
	}

	keys := collectKeys(parents, fkField.Name)
	if len(keys) == 0 {
		return nil
	}

	owners, err := related.FindBy(Criteria{ownerField.Name: keys})
	if err != nil {
		return err
	}

	byOwnerKey := make(map[string]*Entity, len(owners))
	for _, owner := range owners {
		byOwnerKey[utils.ToStringKey(owner.Get(ownerField.Name))] = owner
	}

	for _, parent := range parents {
		value := parent.Get(fkField.Name)
		if value == nil {
			parent.setRelation(relation.Name, nil)
			continue
		}
		if owner, found := byOwnerKey[utils.ToStringKey(value)]; found {
			parent.setRelation(relation.Name, owner)
		} else {
			parent.setRelation(relation.Name, nil)
		}
	}
	return nil
}

func (r *Repository) loadHas(parents []*Entity, relation *schema.Relationship, related *Repository) error {
	localField, ok := r.schema.LookupColumn(relation.ReferenceDBName)
	if !ok {
		return fmt.Errorf("%w: %s has no column %s backing relation %s", ErrInvalidField, r.schema.Name, relation.ReferenceDBName, relation.Name)
	}
	foreignField, ok := related.schema.LookupColumn(relation.ForeignDBName)
	if !ok {
		return fmt.Errorf("%w: %s has no column %s referenced by %s.%s", ErrInvalidField, related.schema.Name, relation.ForeignDBName, r.schema.Name, relation.Name)
	}

	keys := collectKeys(parents, localField.Name)
	if len(keys) == 0 {
		return nil
	}

	matches, err := related.FindBy(Criteria{foreignField.Name: keys})
	if err != nil {
		return err
	}

	grouped := map[string][]*Entity{}
	for _, match := range matches {
		key := utils.ToStringKey(match.Get(foreignField.Name))
		if relation.Kind == schema.HasOne && len(grouped[key]) > 0 {
			// first match wins, additional rows indicate bad data
			r.logger.Warn(r.ctx, "%s.%s: multiple rows satisfy has one for %s = %v", r.schema.Name, relation.Name, relation.ForeignDBName, match.Get(foreignField.Name))
			continue
		}
		grouped[key] = append(grouped[key], match)
	}

	for _, parent := range parents {
		key := utils.ToStringKey(parent.Get(localField.Name))
		group := grouped[key]
		if relation.Kind == schema.HasMany {
			if group == nil {
				group = []*Entity{}
			}
			parent.setRelation(relation.Name, group)
			continue
		}
		if len(group) > 0 {
			parent.setRelation(relation.Name, group[0])
		} else {
			parent.setRelation(relation.Name, nil)
		}
	}
	return nil
}

func (r *Repository) loadManyToMany(parents []*Entity, relation *schema.Relationship, related *Repository) error {
	pkField := r.schema.PrimaryField
	relatedPK := related.schema.PrimaryField

	keys := collectKeys(parents, pkField.Name)
	if len(keys) == 0 {
		return nil
	}

	storage := make([]interface{}, len(keys))
	for i, key := range keys {
		storage[i] = caster.ToStorage(key)
	}

	// join rows are plain column pairs, not mapped entities
	query, args, err := builder.Select(relation.JoinLocalDBName, relation.JoinRelatedDBName).
		From(relation.JoinTable).
		WhereIn(relation.JoinLocalDBName, storage).
		Build()
	if err != nil {
		return err
	}
	joinRows, err := r.conn.QueryRows(r.ctx, query, args...)
	if err != nil {
		return err
	}

	type joinPair struct {
		local   string
		related string
	}
	pairs := make([]joinPair, 0, len(joinRows))
	relatedKeys := make([]interface{}, 0, len(joinRows))
	seen := map[string]bool{}
	for _, row := range joinRows {
		local := caster.ToLogical(row[relation.JoinLocalDBName], pkField.DataType)
		relatedValue := caster.ToLogical(row[relation.JoinRelatedDBName], relatedPK.DataType)
		if local == nil || relatedValue == nil {
			continue
		}
		relatedKey := utils.ToStringKey(relatedValue)
		pairs = append(pairs, joinPair{local: utils.ToStringKey(local), related: relatedKey})
		if !seen[relatedKey] {
			seen[relatedKey] = true
			relatedKeys = append(relatedKeys, relatedValue)
		}
	}

	byPK := map[string]*Entity{}
	if len(relatedKeys) > 0 {
		matches, err := related.FindBy(Criteria{relatedPK.Name: relatedKeys})
		if err != nil {
			return err
		}
		for _, match := range matches {
			byPK[utils.ToStringKey(match.PrimaryKey())] = match
		}
	}

	for _, parent := range parents {
		parentKey := utils.ToStringKey(parent.Get(pkField.Name))
		group := []*Entity{}
		for _, pair := range pairs {
			if pair.local != parentKey {
				continue
			}
			if match, found := byPK[pair.related]; found {
				group = append(group, match)
			}
		}
		parent.setRelation(relation.Name, group)
	}
	return nil
}

// collectKeys gathers the distinct non-null values of one field across the
// batch, preserving first-seen order.
func collectKeys(parents []*Entity, fieldName string) []interface{} {
	keys := make([]interface{}, 0, len(parents))
	seen := map[string]bool{}
	for _, parent := range parents {
		value := parent.Get(fieldName)
		if value == nil {
			continue
		}
		key := utils.ToStringKey(value)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, value)
	}
	return keys
}
