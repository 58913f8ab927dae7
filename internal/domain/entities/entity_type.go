package entities

import "fmt"

// EntityType is the category of a catalog entity.
type EntityType string

// Entity types, listed in consolidation order.
const (
	EntityTypeCompany  EntityType = "company"
	EntityTypeInvestor EntityType = "investor"
	EntityTypeFund     EntityType = "fund"
	EntityTypePerson   EntityType = "person"
)

// EntityTypes returns all entity types in the order feeds are consolidated.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityTypeCompany,
		EntityTypeInvestor,
		EntityTypeFund,
		EntityTypePerson,
	}
}

// Order returns the consolidation position of the type, or -1 if unknown.
func (t EntityType) Order() int {
	for i, et := range EntityTypes() {
		if et == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	return t.Order() >= 0
}

// ParseEntityType converts a string to an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entity type %q (valid: %v)", s, EntityTypes())
	}
	return t, nil
}
