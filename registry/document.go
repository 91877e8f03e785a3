package registry

import (
	language "github.com/schemabus/schemabus/language"
)

const (
	rootQueryName        = "Query"
	rootMutationName     = "Mutation"
	rootSubscriptionName = "Subscription"
)

// Documents carries the freshly assembled base and extension documents that
// every hook observes. They are recomputed from the store before each phase
// and each main-phase sub-step; hooks must not rely on pointer identity
// across calls.
type Documents struct {
	Base      *language.SchemaDocument
	Extension *language.SchemaDocument
}

// document assembles a complete schema document for one variant: type
// declarations in store order, then the synthesized Query, Mutation and
// Subscription containers, in that fixed order. A container is only emitted
// when its field sequence is non-empty. Components scanning "all current
// declarations" rely on this ordering.
func (s *variantStore) document(extension bool) *language.SchemaDocument {
	defs := make(language.DefinitionList, 0, len(s.types)+3)
	defs = append(defs, s.types...)
	for _, c := range []struct {
		name   string
		fields language.FieldList
	}{
		{rootQueryName, s.queryFields},
		{rootMutationName, s.mutationFields},
		{rootSubscriptionName, s.subscriptionFields},
	} {
		if len(c.fields) == 0 {
			continue
		}
		defs = append(defs, &language.Definition{
			Kind:   language.Object,
			Name:   c.name,
			Fields: c.fields,
		})
	}

	doc := &language.SchemaDocument{Directives: s.directives}
	if extension {
		doc.Extensions = defs
	} else {
		doc.Definitions = defs
	}
	return doc
}

// documents recomputes both variants from the canonical store.
func (s *stores) documents() Documents {
	return Documents{
		Base:      s.base.document(false),
		Extension: s.extension.document(true),
	}
}
