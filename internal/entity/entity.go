// Package entity defines the sensitive-entity data model shared by the
// detection engine and the cloaking layer: typed entities, the deduplicating
// collection produced per detection call, and the ordered placeholder map
// produced per cloak call.
package entity

// Type is the primary classification of a detected entity.
type Type string

// Supported entity types. The string form is the TYPE_NAME used inside
// placeholder tokens and must not change.
const (
	TypePerson       Type = "PERSON"
	TypeOrganisation Type = "ORGANISATION"
	TypePlace        Type = "PLACE"
	TypeConcept      Type = "CONCEPT"
	TypePhoneNumber  Type = "PHONE_NUMBER"
	TypeCreditCard   Type = "CREDIT_CARD"
	TypeEmail        Type = "EMAIL"
	TypeURL          Type = "URL"
	TypeIPAddress    Type = "IP_ADDRESS"
)

// Group is a coarse family of related entity types.
type Group string

// Entity groups. Every type belongs to exactly one group.
const (
	GroupProperNoun Group = "PNOUN"
	GroupNumber     Group = "NUMBER"
	GroupLocator    Group = "LOCATOR"
)

// Group returns the group a type belongs to.
func (t Type) Group() Group {
	switch t {
	case TypePerson, TypeOrganisation, TypePlace, TypeConcept:
		return GroupProperNoun
	case TypePhoneNumber, TypeCreditCard:
		return GroupNumber
	case TypeEmail, TypeURL, TypeIPAddress:
		return GroupLocator
	}
	return ""
}

// Valid reports whether t is one of the supported entity types.
func (t Type) Valid() bool {
	return t.Group() != ""
}

// Types returns every entity type belonging to the group.
func (g Group) Types() []Type {
	switch g {
	case GroupProperNoun:
		return []Type{TypePerson, TypeOrganisation, TypePlace, TypeConcept}
	case GroupNumber:
		return []Type{TypePhoneNumber, TypeCreditCard}
	case GroupLocator:
		return []Type{TypeEmail, TypeURL, TypeIPAddress}
	}
	return nil
}

// Entity is an immutable (type, value) pair. Value holds the cleaned literal
// text as it appeared in the source. Two entities are equal iff both fields
// are equal, which makes Entity usable as a deduplication key.
type Entity struct {
	Type  Type   `json:"type"`
	Value string `json:"value"`
}

// Group returns the group of the entity's type.
func (e Entity) Group() Group {
	return e.Type.Group()
}

// Collection is a set of entities produced by one detection call. Membership
// is unique; iteration order is unspecified.
type Collection map[Entity]struct{}

// NewCollection returns an empty collection.
func NewCollection() Collection {
	return make(Collection)
}

// Add inserts an entity. Duplicate (type, value) pairs collapse to one entry.
func (c Collection) Add(e Entity) {
	c[e] = struct{}{}
}

// Has reports whether the entity is in the collection.
func (c Collection) Has(e Entity) bool {
	_, ok := c[e]
	return ok
}

// Len returns the number of distinct entities.
func (c Collection) Len() int {
	return len(c)
}

// Values returns the entities in unspecified order.
func (c Collection) Values() []Entity {
	out := make([]Entity, 0, len(c))
	for e := range c {
		out = append(out, e)
	}
	return out
}

// CountByType returns the number of distinct entities per type.
func (c Collection) CountByType() map[Type]int {
	counts := make(map[Type]int)
	for e := range c {
		counts[e.Type]++
	}
	return counts
}
