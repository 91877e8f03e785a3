// Package compose reconciles several compiled artifacts into one by name,
// layering extension declarations and resolvers on top of the merge.
package compose

import (
	"context"
	"fmt"

	language "github.com/schemabus/schemabus/language"
	registry "github.com/schemabus/schemabus/registry"
)

// Engine merges artifacts name-by-name: a later source's type replaces an
// earlier one's, except for the root containers whose fields are merged
// field-by-field (later field wins).
type Engine struct{}

// New creates a compose engine.
func New() *Engine { return &Engine{} }

var _ registry.Composer = (*Engine)(nil)

func (e *Engine) Compose(ctx context.Context, sources []*registry.Artifact, extensions *language.SchemaDocument, resolvers registry.ResolverMap) (*registry.Artifact, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("compose: no sources")
	}

	m := newMerger()
	for i, src := range sources {
		doc, err := language.ParseSchema(fmt.Sprintf("source-%d", i), language.FormatSchema(src.Schema))
		if err != nil {
			return nil, err
		}
		m.mergeDocument(doc)
	}

	merged := m.document()
	if extensions != nil {
		merged.Extensions = append(merged.Extensions, extensions.Extensions...)
		for _, dir := range extensions.Directives {
			m.mergeDirective(dir)
		}
		merged.Directives = m.directives
	}

	schema, err := language.LoadSchema("composed", language.FormatDocument(merged))
	if err != nil {
		return nil, err
	}

	out := registry.ResolverMap{}
	for _, src := range sources {
		mergeResolvers(out, src.Resolvers)
	}
	mergeResolvers(out, resolvers)

	return &registry.Artifact{Schema: schema, Resolvers: out}, nil
}

type merger struct {
	order      []string
	defs       map[string]*language.Definition
	dirOrder   []string
	dirIndex   map[string]*language.DirectiveDefinition
	directives language.DirectiveDefinitionList
}

func newMerger() *merger {
	return &merger{
		defs:     map[string]*language.Definition{},
		dirIndex: map[string]*language.DirectiveDefinition{},
	}
}

func (m *merger) mergeDocument(doc *language.SchemaDocument) {
	for _, def := range doc.Definitions {
		m.mergeDefinition(def)
	}
	for _, dir := range doc.Directives {
		m.mergeDirective(dir)
	}
}

func (m *merger) mergeDefinition(def *language.Definition) {
	existing, ok := m.defs[def.Name]
	if !ok {
		m.order = append(m.order, def.Name)
		m.defs[def.Name] = def
		return
	}
	if isRootContainer(def.Name) && existing.Kind == language.Object && def.Kind == language.Object {
		fields := existing.Fields
		for _, f := range def.Fields {
			fields = upsertField(fields, f)
		}
		merged := *existing
		merged.Fields = fields
		m.defs[def.Name] = &merged
		return
	}
	// Name collision between sources: the later artifact wins.
	m.defs[def.Name] = def
}

func (m *merger) mergeDirective(dir *language.DirectiveDefinition) {
	if _, ok := m.dirIndex[dir.Name]; !ok {
		m.dirOrder = append(m.dirOrder, dir.Name)
	}
	m.dirIndex[dir.Name] = dir
	m.directives = m.directives[:0]
	for _, name := range m.dirOrder {
		m.directives = append(m.directives, m.dirIndex[name])
	}
}

func (m *merger) document() *language.SchemaDocument {
	doc := &language.SchemaDocument{Directives: m.directives}
	for _, name := range m.order {
		doc.Definitions = append(doc.Definitions, m.defs[name])
	}
	return doc
}

func isRootContainer(name string) bool {
	return name == "Query" || name == "Mutation" || name == "Subscription"
}

func upsertField(list language.FieldList, f *language.FieldDefinition) language.FieldList {
	for i, existing := range list {
		if existing.Name == f.Name {
			out := make(language.FieldList, len(list))
			copy(out, list)
			out[i] = f
			return out
		}
	}
	return append(list, f)
}

// mergeResolvers merges src into dst; when both sides hold a nested map for
// the same type name the nested maps are shallow-merged, otherwise the later
// value wins.
func mergeResolvers(dst, src registry.ResolverMap) {
	for k, v := range src {
		dstNested, dstOK := dst[k].(registry.ResolverMap)
		srcNested, srcOK := v.(registry.ResolverMap)
		if dstOK && srcOK {
			merged := make(registry.ResolverMap, len(dstNested)+len(srcNested))
			for nk, nv := range dstNested {
				merged[nk] = nv
			}
			for nk, nv := range srcNested {
				merged[nk] = nv
			}
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}
