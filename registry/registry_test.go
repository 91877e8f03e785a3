package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	eventbus "github.com/schemabus/schemabus/eventbus"
	events "github.com/schemabus/schemabus/events"
	language "github.com/schemabus/schemabus/language"
)

type stubCompiler struct {
	calls int
	docs  []*language.SchemaDocument
}

func (c *stubCompiler) Compile(ctx context.Context, doc *language.SchemaDocument, resolvers ResolverMap) (*Artifact, error) {
	c.calls++
	c.docs = append(c.docs, doc)
	return &Artifact{Resolvers: resolvers}, nil
}

type stubComposer struct {
	calls     int
	sources   [][]*Artifact
	extension *language.SchemaDocument
	resolvers ResolverMap
}

func (c *stubComposer) Compose(ctx context.Context, sources []*Artifact, extensions *language.SchemaDocument, resolvers ResolverMap) (*Artifact, error) {
	c.calls++
	c.sources = append(c.sources, sources)
	c.extension = extensions
	c.resolvers = resolvers
	return &Artifact{Resolvers: resolvers}, nil
}

type stubWrapper struct {
	calls int
}

func (w *stubWrapper) Wrap(ctx context.Context, source *Artifact, exec Executor, rewrites []Rewrite) (*Artifact, error) {
	w.calls++
	return &Artifact{Schema: source.Schema, Resolvers: source.Resolvers, Executor: exec}, nil
}

func objectType(name string, fields ...*language.FieldDefinition) *language.Definition {
	return &language.Definition{Kind: language.Object, Name: name, Fields: fields}
}

func stringField(name string) *language.FieldDefinition {
	return &language.FieldDefinition{Name: name, Type: &language.Type{NamedType: "String"}}
}

func defNames(list language.DefinitionList) []string {
	out := make([]string, 0, len(list))
	for _, def := range list {
		out = append(out, def.Name)
	}
	return out
}

func newTestRegistry() (*Registry, *stubCompiler, *stubComposer) {
	compiler := &stubCompiler{}
	composer := &stubComposer{}
	r := New(WithCompiler(compiler), WithComposer(composer), WithWrapper(&stubWrapper{}))
	return r, compiler, composer
}

func TestRegisterTailReorder(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.AddTypes(objectType("A", stringField("a")))
	r.AddTypes(objectType("B", stringField("b")))
	r.AddTypes(objectType("A", stringField("a2")))

	defs := r.Documents().Base.Definitions
	if diff := cmp.Diff([]string{"B", "A"}, defNames(defs)); diff != "" {
		t.Fatalf("definition order mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "a2", defs[1].Fields[0].Name)
}

func TestContainersEmittedOnlyWhenPopulated(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.AddTypes(objectType("Book", stringField("title")))
	r.AddQueryFields(stringField("oneBook"))

	got := defNames(r.Documents().Base.Definitions)
	if diff := cmp.Diff([]string{"Book", "Query"}, got); diff != "" {
		t.Fatalf("document shape mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateDeclarationAdvisory(t *testing.T) {
	eventbus.Use(eventbus.New())
	var got []events.DuplicateDeclaration
	eventbus.Subscribe(func(ctx context.Context, e events.DuplicateDeclaration) {
		got = append(got, e)
	})

	r, _, _ := newTestRegistry()
	r.AddTypes(objectType("Book", stringField("title")))
	r.AddTypes(objectType("Book", stringField("title")))

	require.Len(t, got, 1)
	require.Equal(t, events.DuplicateDeclaration{Category: "Type", Name: "Book"}, got[0])
	// The registration itself still proceeded.
	require.Len(t, r.Documents().Base.Definitions, 1)
}

func TestPipelineRunsOnce(t *testing.T) {
	r, _, _ := newTestRegistry()
	var runs int
	r.RegisterPlugin(&Plugin{
		Name: "generator",
		Hooks: Hooks{
			Type: CategoryHooks{
				Declarations: func(ctx context.Context, docs Documents) ([]Declaration, error) {
					runs++
					return []Declaration{TypeDecl(objectType("Gen", stringField("x")))}, nil
				},
			},
		},
	})

	ctx := context.Background()
	_, err := r.DeclarationSchema(ctx)
	require.NoError(t, err)
	_, err = r.ComposedSchema(ctx)
	require.NoError(t, err)
	_, err = r.ExecutableSchema(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, runs)
	require.Contains(t, defNames(r.Documents().Base.Definitions), "Gen")
}

func TestPipelineRecomputation(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.RegisterPlugin(&Plugin{
		Name: "first",
		Hooks: Hooks{
			Type: CategoryHooks{
				Declarations: func(ctx context.Context, docs Documents) ([]Declaration, error) {
					return []Declaration{TypeDecl(objectType("Seen", stringField("x")))}, nil
				},
			},
		},
	})
	var observed []string
	r.RegisterPlugin(&Plugin{
		Name: "second",
		Hooks: Hooks{
			Type: CategoryHooks{
				Declarations: func(ctx context.Context, docs Documents) ([]Declaration, error) {
					observed = defNames(docs.Base.Definitions)
					return nil, nil
				},
			},
		},
	})

	_, err := r.DeclarationSchema(context.Background())
	require.NoError(t, err)
	require.Contains(t, observed, "Seen")
}

func TestPerTypeHooksSweepCurrentTypes(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.AddTypes(objectType("Book", stringField("title")))

	var swept []string
	r.RegisterPlugin(&Plugin{
		Name: "sweeper",
		Hooks: Hooks{
			Query: CategoryHooks{
				DeclarationsForType: func(ctx context.Context, def *language.Definition, docs Documents) ([]Declaration, error) {
					swept = append(swept, def.Name)
					return []Declaration{QueryFieldDecl(&language.FieldDefinition{
						Name: "one" + def.Name,
						Type: &language.Type{NamedType: def.Name},
					})}, nil
				},
			},
		},
	})

	_, err := r.DeclarationSchema(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Book"}, swept)
	require.NotNil(t, r.Documents().Base.Definitions.ForName("Query").Fields.ForName("oneBook"))
}

func TestValidationFailureRetriesPipeline(t *testing.T) {
	r, _, _ := newTestRegistry()
	fail := true
	var bodyRuns int
	r.RegisterPlugin(&Plugin{
		Name: "validator",
		Hooks: Hooks{
			Type: CategoryHooks{
				Declarations: func(ctx context.Context, docs Documents) ([]Declaration, error) {
					bodyRuns++
					return nil, nil
				},
			},
			Validate: func(ctx context.Context, docs Documents) error {
				if fail {
					return errors.New("not yet valid")
				}
				return nil
			},
		},
	})

	ctx := context.Background()
	_, err := r.ExecutableSchema(ctx)
	require.Error(t, err)

	fail = false
	art, err := r.ExecutableSchema(ctx)
	require.NoError(t, err)
	require.NotNil(t, art)
	require.Equal(t, 2, bodyRuns)
}

func TestDuplicatePluginIgnored(t *testing.T) {
	eventbus.Use(eventbus.New())
	var got []events.DuplicatePlugin
	eventbus.Subscribe(func(ctx context.Context, e events.DuplicatePlugin) {
		got = append(got, e)
	})

	r, _, _ := newTestRegistry()
	var firstRuns, secondRuns int
	r.RegisterPlugin(&Plugin{Name: "dup", Hooks: Hooks{
		Type: CategoryHooks{Declarations: func(ctx context.Context, docs Documents) ([]Declaration, error) {
			firstRuns++
			return nil, nil
		}},
	}})
	r.RegisterPlugin(&Plugin{Name: "dup", Hooks: Hooks{
		Type: CategoryHooks{Declarations: func(ctx context.Context, docs Documents) ([]Declaration, error) {
			secondRuns++
			return nil, nil
		}},
	}})

	_, err := r.DeclarationSchema(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, firstRuns)
	require.Equal(t, 0, secondRuns)
	require.Equal(t, []events.DuplicatePlugin{{Name: "dup"}}, got)
}

func TestPluginLookup(t *testing.T) {
	r, _, _ := newTestRegistry()
	p := &Plugin{Name: "known"}
	r.RegisterPlugin(p)

	got, err := r.Plugin("known")
	require.NoError(t, err)
	require.Same(t, p, got)
	require.Same(t, r, got.Registry())

	_, err = r.Plugin("missing")
	require.EqualError(t, err, `registry: no plugin registered under name "missing"`)
}

func TestSetupRunsOnceBeforePipeline(t *testing.T) {
	r, _, _ := newTestRegistry()
	var setupRuns int
	r.OnSetup(func(ctx context.Context, reg *Registry) error {
		setupRuns++
		reg.AddTypes(objectType("FromSetup", stringField("x")))
		return nil
	})

	var sawFromSetup bool
	r.RegisterPlugin(&Plugin{Name: "observer", Hooks: Hooks{
		ObserveDocuments: func(ctx context.Context, docs Documents) error {
			if docs.Base.Definitions.ForName("FromSetup") != nil {
				sawFromSetup = true
			}
			return nil
		},
	}})

	ctx := context.Background()
	_, err := r.DeclarationSchema(ctx)
	require.NoError(t, err)
	_, err = r.ComposedSchema(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, setupRuns)
	require.True(t, sawFromSetup)
}

func TestExecutableSchemaCachesAndAppliesTransforms(t *testing.T) {
	r, _, _ := newTestRegistry()
	var applied []string
	transform := func(name string) SchemaTransform {
		return func(a *Artifact) (*Artifact, error) {
			applied = append(applied, name)
			return a, nil
		}
	}
	// One contribution merges its names in sorted order.
	r.AddDirectiveResolvers(ResolverMap{"beta": transform("beta"), "alpha": transform("alpha")})
	r.AddDirectiveResolvers(ResolverMap{"gamma": transform("gamma")})

	ctx := context.Background()
	art1, err := r.ExecutableSchema(ctx)
	require.NoError(t, err)
	art2, err := r.ExecutableSchema(ctx)
	require.NoError(t, err)

	require.Same(t, art1, art2)
	require.Equal(t, []string{"alpha", "beta", "gamma"}, applied)
}

func TestExecutableSchemaRejectsNonTransformDirectiveResolver(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.AddDirectiveResolvers(ResolverMap{"bad": 42})

	_, err := r.ExecutableSchema(context.Background())
	require.ErrorContains(t, err, `directive resolver "bad"`)
}

func TestComposedSchemaAssemblesResolvers(t *testing.T) {
	r, _, composer := newTestRegistry()
	r.AddQueryFields(stringField("hello"))
	hello := ResolverFunc(func(ctx context.Context, source any, args map[string]any) (any, error) {
		return "world", nil
	})
	r.AddResolvers(CategoryQuery, ResolverMap{"hello": hello})
	r.MergeResolvers(ResolverMap{"Upload": "scalar"})

	_, err := r.ComposedSchema(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, composer.calls)
	local := composer.sources[0][0]
	require.Equal(t, "scalar", local.Resolvers["Upload"])
	nested, ok := local.Resolvers["Query"].(ResolverMap)
	require.True(t, ok)
	require.NotNil(t, nested["hello"])
}

func TestExtensionResolversOnlyInExecutable(t *testing.T) {
	r, _, composer := newTestRegistry()
	r.AddQueryFields(stringField("hello"))
	r.AddExtensionResolvers(CategoryQuery, ResolverMap{"extra": "ext"})

	ctx := context.Background()
	_, err := r.ComposedSchema(ctx)
	require.NoError(t, err)
	require.Nil(t, composer.resolvers)

	_, err = r.ExecutableSchema(ctx)
	require.NoError(t, err)
	nested, ok := composer.resolvers["Query"].(ResolverMap)
	require.True(t, ok)
	require.Equal(t, "ext", nested["extra"])
}

func TestClearKeepsPlugins(t *testing.T) {
	r, _, _ := newTestRegistry()
	var bodyRuns int
	var cleared bool
	r.RegisterPlugin(&Plugin{Name: "survivor", Hooks: Hooks{
		Type: CategoryHooks{Declarations: func(ctx context.Context, docs Documents) ([]Declaration, error) {
			bodyRuns++
			return nil, nil
		}},
		Cleared: func() { cleared = true },
	}})
	r.AddTypes(objectType("Book", stringField("title")))

	ctx := context.Background()
	_, err := r.ExecutableSchema(ctx)
	require.NoError(t, err)

	r.Clear()
	require.True(t, cleared)
	require.Empty(t, r.Documents().Base.Definitions)

	// The pipeline reruns and the plugin is still attached.
	_, err = r.DeclarationSchema(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, bodyRuns)
}

func TestExtensionDeclarationsRouteByKind(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.RegisterPlugin(&Plugin{Name: "extender", Hooks: Hooks{
		Type: CategoryHooks{
			ExtensionDeclarations: func(ctx context.Context, docs Documents) ([]Declaration, error) {
				return []Declaration{
					TypeExtensionDecl(objectType("Book", stringField("subtitle"))),
					// A base-kind result from an extension hook still
					// lands in the base store.
					TypeDecl(objectType("Author", stringField("name"))),
				}, nil
			},
		},
	}})

	_, err := r.DeclarationSchema(context.Background())
	require.NoError(t, err)

	docs := r.Documents()
	require.Contains(t, defNames(docs.Base.Definitions), "Author")
	require.Equal(t, []string{"Book"}, defNames(docs.Extension.Extensions))
}

func TestRewritePhaseReplacesTypes(t *testing.T) {
	r, _, _ := newTestRegistry()
	r.AddTypes(objectType("Book", stringField("title")))
	r.RegisterPlugin(&Plugin{Name: "rewriter", Hooks: Hooks{
		PreRewriteType: func(ctx context.Context, def *language.Definition, docs Documents) (*language.Definition, error) {
			if def.Name != "Book" {
				return nil, nil
			}
			replaced := objectType("Book", stringField("title"), stringField("isbn"))
			return replaced, nil
		},
	}})

	_, err := r.DeclarationSchema(context.Background())
	require.NoError(t, err)

	book := r.Documents().Base.Definitions.ForName("Book")
	require.NotNil(t, book)
	require.NotNil(t, book.Fields.ForName("isbn"))
}

func TestCompilerRequired(t *testing.T) {
	r := New()
	_, err := r.DeclarationSchema(context.Background())
	require.ErrorContains(t, err, "no compiler configured")
}
