package language

import "github.com/vektah/gqlparser/v2/ast"

type (
	Source                  = ast.Source
	Schema                  = ast.Schema
	SchemaDocument          = ast.SchemaDocument
	QueryDocument           = ast.QueryDocument
	OperationDefinition     = ast.OperationDefinition
	SelectionSet            = ast.SelectionSet
	Selection               = ast.Selection
	Field                   = ast.Field
	InlineFragment          = ast.InlineFragment
	FragmentDefinition      = ast.FragmentDefinition
	FragmentSpread          = ast.FragmentSpread
	Directive               = ast.Directive
	DirectiveList           = ast.DirectiveList
	DirectiveDefinition     = ast.DirectiveDefinition
	DirectiveDefinitionList = ast.DirectiveDefinitionList
	ArgumentList            = ast.ArgumentList
	Argument                = ast.Argument
	Value                   = ast.Value
	FieldDefinition         = ast.FieldDefinition
	FieldList               = ast.FieldList
	ArgumentDefinition      = ast.ArgumentDefinition
	ArgumentDefinitionList  = ast.ArgumentDefinitionList
	EnumValueDefinition     = ast.EnumValueDefinition
	Type                    = ast.Type
	Definition              = ast.Definition
	DefinitionList          = ast.DefinitionList
	Position                = ast.Position
)

type DefinitionKind = ast.DefinitionKind

type Operation = ast.Operation

const (
	Query        Operation = ast.Query
	Mutation     Operation = ast.Mutation
	Subscription Operation = ast.Subscription

	Object      DefinitionKind = ast.Object
	Interface   DefinitionKind = ast.Interface
	Union       DefinitionKind = ast.Union
	Scalar      DefinitionKind = ast.Scalar
	Enum        DefinitionKind = ast.Enum
	InputObject DefinitionKind = ast.InputObject
)

// NamedType builds a nullable type reference.
func NamedType(name string) *Type { return ast.NamedType(name, nil) }

// NonNullNamedType builds a non-nullable type reference.
func NonNullNamedType(name string) *Type { return ast.NonNullNamedType(name, nil) }

// ListType builds a nullable list of elem.
func ListType(elem *Type) *Type { return ast.ListType(elem, nil) }

// NonNullListType builds a non-nullable list of elem.
func NonNullListType(elem *Type) *Type { return ast.NonNullListType(elem, nil) }
