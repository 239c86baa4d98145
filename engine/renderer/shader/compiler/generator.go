package compiler

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// DefaultResourceGroup holds the members of classes that do not name a resource group.
const DefaultResourceGroup = "PerDraw"

type groupDecls struct {
	name      string
	members   []shader.MemberDecl
	resources []shader.ResourceDecl
	seen      map[string]struct{}
}

// generator expands one mixin tree. It is used by a single goroutine.
type generator struct {
	pp      shader.PreProcessor
	classes func(string) (shader.ClassDecl, bool)
	body    func(shader.ClassDecl) (string, error)

	groups      []*groupDecls
	bodies      []string
	hashSources map[string]common.ObjectID
	messages    []effect.Message
}

func newGenerator(pp shader.PreProcessor, classes func(string) (shader.ClassDecl, bool), body func(shader.ClassDecl) (string, error)) *generator {
	return &generator{
		pp:          pp,
		classes:     classes,
		body:        body,
		hashSources: make(map[string]common.ObjectID),
	}
}

func (g *generator) walk(src shader.ShaderSource, slot string) error {
	switch s := src.(type) {
	case *shader.ClassSource:
		return g.class(s, slot)
	case *shader.MixinSource:
		for _, m := range s.Mixins {
			if err := g.walk(m, slot); err != nil {
				return err
			}
		}
		for _, comp := range s.Compositions {
			child := comp.Name
			if slot != "" {
				child = slot + "." + comp.Name
			}
			if comp.Source == nil {
				g.messages = append(g.messages, effect.Message{
					Severity: effect.SeverityWarning,
					Text:     fmt.Sprintf("composition %q has no source", child),
				})
				continue
			}
			if err := g.walk(comp.Source, child); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported shader source %T", src)
	}
}

func (g *generator) class(src *shader.ClassSource, slot string) error {
	decl, ok := g.classes(src.ClassName)
	if !ok {
		return fmt.Errorf("unknown shader class %q", src.ClassName)
	}
	body, err := g.body(decl)
	if err != nil {
		return err
	}
	g.hashSources[decl.Name] = common.HashString(body)

	processed, err := g.pp.Process(body, src.GenericArguments, slot)
	if err != nil {
		return fmt.Errorf("class %s: %w", src, err)
	}
	g.bodies = append(g.bodies, fmt.Sprintf("// %s (%s)\n%s", src, shader.SlotIdentifier(slot), processed.Source))

	group := g.group(common.Coalesce(decl.ResourceGroup, DefaultResourceGroup))
	for _, m := range processed.Members {
		m.Name = composeName(m.Name, slot)
		if _, dup := group.seen[m.Name]; dup {
			continue
		}
		group.seen[m.Name] = struct{}{}
		group.members = append(group.members, m)
	}
	for _, r := range processed.Resources {
		r.Name = composeName(r.Name, slot)
		if _, dup := group.seen[r.Name]; dup {
			continue
		}
		group.seen[r.Name] = struct{}{}
		group.resources = append(group.resources, r)
	}
	return nil
}

func (g *generator) group(name string) *groupDecls {
	for _, gr := range g.groups {
		if gr.name == name {
			return gr
		}
	}
	gr := &groupDecls{name: name, seen: make(map[string]struct{})}
	g.groups = append(g.groups, gr)
	return gr
}

func composeName(name, slot string) string {
	if slot == "" {
		return name
	}
	return parameter.NewKey(name, parameter.KindObject).ComposeWith(slot).Name()
}

func (g *generator) build(effectName string) *effect.Bytecode {
	var reflection effect.Reflection
	var decls strings.Builder

	for gi, gr := range g.groups {
		layout := effect.DescriptorSetLayout{Name: gr.name, Group: gi}
		binding := 0
		if len(gr.members) > 0 {
			cb := layoutConstantBuffer(gr.name, gr.members)
			reflection.ConstantBuffers = append(reflection.ConstantBuffers, cb)
			layout.Entries = append(layout.Entries, effect.ResourceBinding{
				KeyName: gr.name,
				Type:    effect.ResourceTypeConstantBuffer,
				Binding: binding,
			})
			writeUniformStruct(&decls, gr.name, gr.members)
			fmt.Fprintf(&decls, "@group(%d) @binding(%d) %s %s: %s;\n", gi, binding, "var<uniform>", identifier(gr.name), gr.name)
			binding++
		}
		for _, r := range gr.resources {
			rt, addrSpace, wgslType := resourceBinding(r.Class)
			layout.Entries = append(layout.Entries, effect.ResourceBinding{KeyName: r.Name, Type: rt, Binding: binding})
			fmt.Fprintf(&decls, "@group(%d) @binding(%d) %s %s: %s;\n", gi, binding, addrSpace, identifier(r.Name), wgslType)
			binding++
		}
		reflection.Layouts = append(reflection.Layouts, layout)
	}

	source := decls.String() + "\n" + strings.Join(g.bodies, "\n\n")
	b := common.NewObjectIDBuilder()
	b.WriteString(effectName)
	b.WriteString(source)

	return &effect.Bytecode{
		ID:          b.Sum(),
		Name:        effectName,
		Source:      source,
		Reflection:  reflection,
		HashSources: g.hashSources,
	}
}

func writeUniformStruct(sb *strings.Builder, name string, members []shader.MemberDecl) {
	fmt.Fprintf(sb, "struct %s {\n", name)
	for _, m := range members {
		t := wgslValueType(m.Type)
		if m.Count > 0 {
			t = fmt.Sprintf("array<%s, %d>", t, m.Count)
		}
		fmt.Fprintf(sb, "    %s: %s,\n", identifier(m.Name), t)
	}
	sb.WriteString("};\n")
}

func wgslValueType(t shader.ValueType) string {
	switch t {
	case shader.ValueTypeInt:
		return "i32"
	case shader.ValueTypeUint:
		return "u32"
	case shader.ValueTypeVector3:
		return "vec3<f32>"
	case shader.ValueTypeVector4:
		return "vec4<f32>"
	case shader.ValueTypeMatrix:
		return "mat4x4<f32>"
	default:
		return "f32"
	}
}

func resourceBinding(class shader.ResourceClass) (effect.ResourceType, string, string) {
	switch class {
	case shader.ResourceClassDepthTexture:
		return effect.ResourceTypeDepthTexture, "var", "texture_depth_2d"
	case shader.ResourceClassSampler:
		return effect.ResourceTypeSampler, "var", "sampler"
	case shader.ResourceClassComparison:
		return effect.ResourceTypeComparisonSampler, "var", "sampler_comparison"
	case shader.ResourceClassStorage:
		return effect.ResourceTypeStorageBuffer, "var<storage, read>", "array<u32>"
	default:
		return effect.ResourceTypeTexture, "var", "texture_2d<f32>"
	}
}

var identifierReplacer = strings.NewReplacer(".", "_", "[", "_", "]", "")

func identifier(name string) string {
	return identifierReplacer.Replace(name)
}
