package registry

import (
	"context"
	"sort"

	eventbus "github.com/schemabus/schemabus/eventbus"
	events "github.com/schemabus/schemabus/events"
	language "github.com/schemabus/schemabus/language"
)

// variantStore holds one variant (base or extension) of every declaration
// category plus the category resolver maps.
type variantStore struct {
	types              language.DefinitionList
	queryFields        language.FieldList
	mutationFields     language.FieldList
	subscriptionFields language.FieldList
	directives         language.DirectiveDefinitionList

	typeResolvers         ResolverMap
	queryResolvers        ResolverMap
	mutationResolvers     ResolverMap
	subscriptionResolvers ResolverMap
}

func newVariantStore() variantStore {
	return variantStore{
		typeResolvers:         ResolverMap{},
		queryResolvers:        ResolverMap{},
		mutationResolvers:     ResolverMap{},
		subscriptionResolvers: ResolverMap{},
	}
}

func (s *variantStore) resolvers(cat Category) ResolverMap {
	switch cat {
	case CategoryType:
		return s.typeResolvers
	case CategoryQuery:
		return s.queryResolvers
	case CategoryMutation:
		return s.mutationResolvers
	case CategorySubscription:
		return s.subscriptionResolvers
	}
	return nil
}

// namedTransform is one directive-resolver entry. Entries keep their first
// registration position; re-registering a name overwrites the value in place.
type namedTransform struct {
	name  string
	value any
}

// stores is the declaration store: both variants, the free-form top-level
// resolver map, and the ordered directive-resolver entries.
type stores struct {
	base      variantStore
	extension variantStore

	freeform           ResolverMap
	directiveResolvers []namedTransform
}

func newStores() stores {
	return stores{
		base:      newVariantStore(),
		extension: newVariantStore(),
		freeform:  ResolverMap{},
	}
}

// upsert merges items into their category stores. An item whose kind does
// not belong to cat is silently dropped. A same-name entry is evicted and
// the new entry appended at the tail, so updating a declaration moves it to
// the end of its sequence. Returns whether anything was merged.
func (s *stores) upsert(cat Category, items []Declaration) bool {
	changed := false
	for _, item := range items {
		if item.Category() != cat {
			continue
		}
		target := &s.base
		if item.isExtension() {
			target = &s.extension
		}
		switch cat {
		case CategoryType:
			target.types = upsertDefinition(target.types, item.typeDef())
		case CategoryDirective:
			target.directives = upsertDirective(target.directives, item.Directive)
		case CategoryQuery:
			target.queryFields = upsertField(target.queryFields, item.fieldDef())
		case CategoryMutation:
			target.mutationFields = upsertField(target.mutationFields, item.fieldDef())
		case CategorySubscription:
			target.subscriptionFields = upsertField(target.subscriptionFields, item.fieldDef())
		}
		changed = true
	}
	return changed
}

// checkDuplicates publishes an advisory for every item whose name is already
// present in its target sequence. Only the direct registration path calls
// this; plugin-sourced merges never do.
func (s *stores) checkDuplicates(ctx context.Context, items []Declaration) {
	for _, item := range items {
		cat := item.Category()
		if cat == "" {
			continue
		}
		target := &s.base
		if item.isExtension() {
			target = &s.extension
		}
		if target.contains(cat, item.Name()) {
			eventbus.Publish(ctx, events.DuplicateDeclaration{Category: string(cat), Name: item.Name()})
		}
	}
}

func (s *variantStore) contains(cat Category, name string) bool {
	switch cat {
	case CategoryType:
		for _, d := range s.types {
			if d.Name == name {
				return true
			}
		}
	case CategoryDirective:
		for _, d := range s.directives {
			if d.Name == name {
				return true
			}
		}
	case CategoryQuery:
		return s.queryFields.ForName(name) != nil
	case CategoryMutation:
		return s.mutationFields.ForName(name) != nil
	case CategorySubscription:
		return s.subscriptionFields.ForName(name) != nil
	}
	return false
}

// upsertResolvers shallow-merges into the category's resolver map for the
// given variant. Last write wins; no diagnostics.
func (s *stores) upsertResolvers(cat Category, extension bool, in ResolverMap) {
	target := &s.base
	if extension {
		target = &s.extension
	}
	dst := target.resolvers(cat)
	if dst == nil {
		return
	}
	for k, v := range in {
		dst[k] = v
	}
}

// mergeFreeform merges named values directly into the top-level resolver map.
func (s *stores) mergeFreeform(in ResolverMap) {
	for k, v := range in {
		s.freeform[k] = v
	}
}

// mergeDirectiveResolvers records directive transforms, preserving first
// registration order per name. Keys within one contribution are applied in
// sorted order so a single map merge stays deterministic.
func (s *stores) mergeDirectiveResolvers(in ResolverMap) {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		replaced := false
		for i := range s.directiveResolvers {
			if s.directiveResolvers[i].name == name {
				s.directiveResolvers[i].value = in[name]
				replaced = true
				break
			}
		}
		if !replaced {
			s.directiveResolvers = append(s.directiveResolvers, namedTransform{name: name, value: in[name]})
		}
	}
}

func upsertDefinition(list language.DefinitionList, def *language.Definition) language.DefinitionList {
	if def == nil {
		return list
	}
	for i, d := range list {
		if d.Name == def.Name {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	return append(list, def)
}

func upsertDirective(list language.DirectiveDefinitionList, def *language.DirectiveDefinition) language.DirectiveDefinitionList {
	if def == nil {
		return list
	}
	for i, d := range list {
		if d.Name == def.Name {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	return append(list, def)
}

func upsertField(list language.FieldList, f *language.FieldDefinition) language.FieldList {
	if f == nil {
		return list
	}
	for i, d := range list {
		if d.Name == f.Name {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	return append(list, f)
}
