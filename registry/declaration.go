package registry

import (
	language "github.com/schemabus/schemabus/language"
)

// Category groups declarations that share a namespace. Names are unique
// within a category; the Query, Mutation and Subscription categories hold
// the fields of their synthesized container types.
type Category string

const (
	CategoryType         Category = "Type"
	CategoryQuery        Category = "Query"
	CategoryMutation     Category = "Mutation"
	CategorySubscription Category = "Subscription"
	CategoryDirective    Category = "Directive"
)

// operationCategories is the fixed iteration order of the pipeline's main phase.
var operationCategories = []Category{CategoryType, CategoryQuery, CategoryMutation, CategorySubscription}

// Declaration is a named unit of API surface. Exactly one field is non-nil;
// the set field determines both the category the declaration belongs to and
// whether it targets the base or the extension store. Directive declarations
// have no extension variant since SDL defines none.
type Declaration struct {
	Type                       *language.Definition
	TypeExtension              *language.Definition
	Directive                  *language.DirectiveDefinition
	QueryField                 *language.FieldDefinition
	QueryFieldExtension        *language.FieldDefinition
	MutationField              *language.FieldDefinition
	MutationFieldExtension     *language.FieldDefinition
	SubscriptionField          *language.FieldDefinition
	SubscriptionFieldExtension *language.FieldDefinition
}

func TypeDecl(def *language.Definition) Declaration { return Declaration{Type: def} }
func TypeExtensionDecl(def *language.Definition) Declaration {
	return Declaration{TypeExtension: def}
}
func DirectiveDecl(def *language.DirectiveDefinition) Declaration {
	return Declaration{Directive: def}
}
func QueryFieldDecl(f *language.FieldDefinition) Declaration { return Declaration{QueryField: f} }
func QueryFieldExtensionDecl(f *language.FieldDefinition) Declaration {
	return Declaration{QueryFieldExtension: f}
}
func MutationFieldDecl(f *language.FieldDefinition) Declaration {
	return Declaration{MutationField: f}
}
func MutationFieldExtensionDecl(f *language.FieldDefinition) Declaration {
	return Declaration{MutationFieldExtension: f}
}
func SubscriptionFieldDecl(f *language.FieldDefinition) Declaration {
	return Declaration{SubscriptionField: f}
}
func SubscriptionFieldExtensionDecl(f *language.FieldDefinition) Declaration {
	return Declaration{SubscriptionFieldExtension: f}
}

// Name returns the declaration's identity within its category.
func (d Declaration) Name() string {
	switch {
	case d.Type != nil:
		return d.Type.Name
	case d.TypeExtension != nil:
		return d.TypeExtension.Name
	case d.Directive != nil:
		return d.Directive.Name
	case d.QueryField != nil:
		return d.QueryField.Name
	case d.QueryFieldExtension != nil:
		return d.QueryFieldExtension.Name
	case d.MutationField != nil:
		return d.MutationField.Name
	case d.MutationFieldExtension != nil:
		return d.MutationFieldExtension.Name
	case d.SubscriptionField != nil:
		return d.SubscriptionField.Name
	case d.SubscriptionFieldExtension != nil:
		return d.SubscriptionFieldExtension.Name
	}
	return ""
}

// Category returns the category the declaration routes into.
func (d Declaration) Category() Category {
	switch {
	case d.Type != nil, d.TypeExtension != nil:
		return CategoryType
	case d.Directive != nil:
		return CategoryDirective
	case d.QueryField != nil, d.QueryFieldExtension != nil:
		return CategoryQuery
	case d.MutationField != nil, d.MutationFieldExtension != nil:
		return CategoryMutation
	case d.SubscriptionField != nil, d.SubscriptionFieldExtension != nil:
		return CategorySubscription
	}
	return ""
}

// isExtension reports whether the declaration targets the extension store.
// A base-kind declaration produced by an extension-targeted hook still lands
// in the base store; this is what makes that routing work.
func (d Declaration) isExtension() bool {
	return d.TypeExtension != nil ||
		d.QueryFieldExtension != nil ||
		d.MutationFieldExtension != nil ||
		d.SubscriptionFieldExtension != nil
}

// typeDef returns the type definition carried by a type-kind declaration.
func (d Declaration) typeDef() *language.Definition {
	if d.Type != nil {
		return d.Type
	}
	return d.TypeExtension
}

// fieldDef returns the field definition carried by an operation-kind declaration.
func (d Declaration) fieldDef() *language.FieldDefinition {
	for _, f := range []*language.FieldDefinition{
		d.QueryField, d.QueryFieldExtension,
		d.MutationField, d.MutationFieldExtension,
		d.SubscriptionField, d.SubscriptionFieldExtension,
	} {
		if f != nil {
			return f
		}
	}
	return nil
}

// DeclarationsFromDocument flattens a parsed schema document into
// declarations. Definitions of the root container types are split into
// per-field operation declarations; everything else becomes a type,
// type-extension or directive declaration.
func DeclarationsFromDocument(doc *language.SchemaDocument) []Declaration {
	var out []Declaration
	for _, def := range doc.Definitions {
		out = append(out, splitDefinition(def, false)...)
	}
	for _, def := range doc.Extensions {
		out = append(out, splitDefinition(def, true)...)
	}
	for _, dir := range doc.Directives {
		out = append(out, DirectiveDecl(dir))
	}
	return out
}

// ParseDeclarations parses SDL and flattens it into declarations.
func ParseDeclarations(name, sdl string) ([]Declaration, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return DeclarationsFromDocument(doc), nil
}

func splitDefinition(def *language.Definition, extension bool) []Declaration {
	switch def.Name {
	case rootQueryName, rootMutationName, rootSubscriptionName:
		out := make([]Declaration, 0, len(def.Fields))
		for _, f := range def.Fields {
			out = append(out, fieldDeclaration(def.Name, f, extension))
		}
		return out
	}
	if extension {
		return []Declaration{TypeExtensionDecl(def)}
	}
	return []Declaration{TypeDecl(def)}
}

func fieldDeclaration(container string, f *language.FieldDefinition, extension bool) Declaration {
	switch container {
	case rootMutationName:
		if extension {
			return MutationFieldExtensionDecl(f)
		}
		return MutationFieldDecl(f)
	case rootSubscriptionName:
		if extension {
			return SubscriptionFieldExtensionDecl(f)
		}
		return SubscriptionFieldDecl(f)
	default:
		if extension {
			return QueryFieldExtensionDecl(f)
		}
		return QueryFieldDecl(f)
	}
}
