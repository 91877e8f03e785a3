package compile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	language "github.com/schemabus/schemabus/language"
	registry "github.com/schemabus/schemabus/registry"
)

func buildArtifact(t *testing.T, sdl string, resolvers registry.ResolverMap) *registry.Artifact {
	t.Helper()
	schema, err := language.LoadSchema("test", sdl)
	require.NoError(t, err)
	return &registry.Artifact{Schema: schema, Resolvers: resolvers}
}

const bookSDL = `
type Book {
  id: ID!
  title: String!
}

type Query {
  oneBook(id: ID!): Book
  allBooks: [Book!]!
}
`

func TestExecuteResolverWithArguments(t *testing.T) {
	var calls int
	var gotArgs map[string]any
	art := buildArtifact(t, bookSDL, registry.ResolverMap{
		"Query": registry.ResolverMap{
			"oneBook": registry.ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
				calls++
				gotArgs = args
				return map[string]any{"id": args["id"], "title": "The Go Programming Language"}, nil
			}),
		},
	})

	res := Execute(context.Background(), art, &registry.Request{
		Query:     `query($id: ID!) { oneBook(id: $id) { id title } }`,
		Variables: map[string]any{"id": "bk-1"},
	})
	require.Empty(t, res.Errors)
	require.Equal(t, 1, calls)
	require.Equal(t, map[string]any{"id": "bk-1"}, gotArgs)

	want := map[string]any{"oneBook": map[string]any{"id": "bk-1", "title": "The Go Programming Language"}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteListAndStructSources(t *testing.T) {
	type book struct {
		ID    string
		Title string
	}
	art := buildArtifact(t, bookSDL, registry.ResolverMap{
		"Query": registry.ResolverMap{
			"allBooks": registry.ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
				return []*book{{ID: "1", Title: "one"}, {ID: "2", Title: "two"}}, nil
			}),
		},
	})

	res := Execute(context.Background(), art, &registry.Request{Query: `{ allBooks { id title } }`})
	require.Empty(t, res.Errors)
	want := map[string]any{"allBooks": []any{
		map[string]any{"id": "1", "title": "one"},
		map[string]any{"id": "2", "title": "two"},
	}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteFragmentsAndConditionalDirectives(t *testing.T) {
	art := buildArtifact(t, bookSDL, registry.ResolverMap{
		"Query": registry.ResolverMap{
			"oneBook": registry.ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
				return map[string]any{"id": "1", "title": "one"}, nil
			}),
		},
	})

	res := Execute(context.Background(), art, &registry.Request{
		Query: `
query($withTitle: Boolean!) {
  oneBook(id: "1") {
    ...idOnly
    title @include(if: $withTitle)
    __typename @skip(if: true)
  }
}
fragment idOnly on Book { id }
`,
		Variables: map[string]any{"withTitle": false},
	})
	require.Empty(t, res.Errors)
	want := map[string]any{"oneBook": map[string]any{"id": "1"}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteAliasAndTypename(t *testing.T) {
	art := buildArtifact(t, bookSDL, registry.ResolverMap{
		"Query": registry.ResolverMap{
			"oneBook": registry.ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
				return map[string]any{"id": "1"}, nil
			}),
		},
	})

	res := Execute(context.Background(), art, &registry.Request{
		Query: `{ first: oneBook(id: "1") { kind: __typename id } }`,
	})
	require.Empty(t, res.Errors)
	want := map[string]any{"first": map[string]any{"kind": "Book", "id": "1"}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteNonNullViolation(t *testing.T) {
	art := buildArtifact(t, bookSDL, registry.ResolverMap{
		"Query": registry.ResolverMap{
			"allBooks": registry.ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
				return nil, nil
			}),
		},
	})

	res := Execute(context.Background(), art, &registry.Request{Query: `{ allBooks { id } }`})
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "non-nullable")
}

func TestExecuteSiblingErrorPathsStayDistinct(t *testing.T) {
	art := buildArtifact(t, `
type Inner { x: String! y: String! }
type Middle { inner: Inner }
type Outer { middle: Middle }
type Query { outer: Outer }
`, registry.ResolverMap{
		"Query": registry.ResolverMap{
			"outer": registry.ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
				return map[string]any{"middle": map[string]any{"inner": map[string]any{}}}, nil
			}),
		},
	})

	res := Execute(context.Background(), art, &registry.Request{
		Query: `{ outer { middle { inner { x y } } } }`,
	})
	require.Len(t, res.Errors, 2)
	var paths []string
	for _, err := range res.Errors {
		paths = append(paths, err.Path.String())
	}
	if diff := cmp.Diff([]string{"outer.middle.inner.x", "outer.middle.inner.y"}, paths); diff != "" {
		t.Fatalf("error paths mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteResolverError(t *testing.T) {
	art := buildArtifact(t, bookSDL, registry.ResolverMap{
		"Query": registry.ResolverMap{
			"oneBook": registry.ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
				return nil, errors.New("storage offline")
			}),
		},
	})

	res := Execute(context.Background(), art, &registry.Request{Query: `{ oneBook(id: "1") { id } }`})
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "storage offline")
	require.Equal(t, map[string]any{"oneBook": nil}, res.Data)
}

func TestExecuteAbstractTypeResolution(t *testing.T) {
	art := buildArtifact(t, `
interface Node { id: ID! }
type Book implements Node { id: ID! title: String! }
type Query { node(id: ID!): Node }
`, registry.ResolverMap{
		"Query": registry.ResolverMap{
			"node": registry.ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
				return map[string]any{"__typename": "Book", "id": "1", "title": "one"}, nil
			}),
		},
	})

	res := Execute(context.Background(), art, &registry.Request{
		Query: `{ node(id: "1") { id ... on Book { title } } }`,
	})
	require.Empty(t, res.Errors)
	want := map[string]any{"node": map[string]any{"id": "1", "title": "one"}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteOperationSelection(t *testing.T) {
	art := buildArtifact(t, bookSDL, nil)

	res := Execute(context.Background(), art, &registry.Request{
		Query:         `query A { allBooks { id } } query B { allBooks { id } }`,
		OperationName: "C",
	})
	require.Len(t, res.Errors, 1)

	res = Execute(context.Background(), art, &registry.Request{
		Query: `query A { allBooks { id } } query B { allBooks { id } }`,
	})
	require.Len(t, res.Errors, 1)
}

func TestExecutorForAdaptsResults(t *testing.T) {
	art := buildArtifact(t, bookSDL, nil)
	exec := ExecutorFor(art)

	resp, err := exec.Execute(context.Background(), &registry.Request{Query: `{ oneBook(id: "1") { id } }`})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"oneBook": nil}, resp.Data)
	require.Empty(t, resp.Errors)

	resp, err = exec.Execute(context.Background(), &registry.Request{Query: `{ nope }`})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Errors)
}
