package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

const pointGroupBody = `//@oxy:include light_common
//@oxy:member LightPointGroup.Positions vec3 $0
//@oxy:member LightPointGroup.LightCount i32
//@oxy:resource LightPointGroup.Shadow texture_depth
fn shade_$slot(p: vec3<f32>) -> vec3<f32> {
    return p * f32($0);
}`

func TestPreProcessorProcess(t *testing.T) {
	pp := NewPreProcessor(func(name string) (string, bool) {
		if name == "light_common" {
			return "struct LightCommon { color: vec3<f32> }", true
		}
		return "", false
	})

	res, err := pp.Process(pointGroupBody, []string{"8"}, "directLightGroups[1]")
	require.NoError(t, err)

	assert.Equal(t, []MemberDecl{
		{Name: "LightPointGroup.Positions", Type: ValueTypeVector3, Count: 8},
		{Name: "LightPointGroup.LightCount", Type: ValueTypeInt},
	}, res.Members)
	assert.Equal(t, []ResourceDecl{{Name: "LightPointGroup.Shadow", Class: ResourceClassDepthTexture}}, res.Resources)
	assert.Contains(t, res.Source, "struct LightCommon")
	assert.Contains(t, res.Source, "fn shade_directLightGroups_1(")
	assert.Contains(t, res.Source, "f32(8)")
	assert.NotContains(t, res.Source, "@oxy:")
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor(nil)
	tests := map[string]string{
		"unknown include":  "//@oxy:include missing",
		"unknown type":     "//@oxy:member A.B vec9",
		"bad count":        "//@oxy:member A.B f32 zero",
		"unknown resource": "//@oxy:resource A.B cubemap",
		"unknown kind":     "//@oxy:frobnicate",
		"empty":            "//@oxy:",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := pp.Process(body, nil, "")
			assert.Error(t, err)
		})
	}
}

func TestShaderSourceEquality(t *testing.T) {
	a := NewClassSource("LightPointGroup", 8)
	b := NewClassSource("LightPointGroup", "8")
	c := NewClassSource("LightPointGroup", 16)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, parameter.ValuesEqual(SourceCollection{a}, SourceCollection{b}))
	assert.False(t, parameter.ValuesEqual(SourceCollection{a}, SourceCollection{a, c}))

	m1 := NewMixinSource(a, NewClassSource("ShadowMapReceiverPoint", 1))
	m2 := NewMixinSource(b, NewClassSource("ShadowMapReceiverPoint", 1))
	assert.True(t, m1.Equal(m2))
	assert.False(t, m1.Equal(a))
	assert.Equal(t, "mixin(LightPointGroup<8>, ShadowMapReceiverPoint<1>)", m1.String())

	hash := func(s ShaderSource) common.ObjectID {
		builder := common.NewObjectIDBuilder()
		s.HashInto(builder)
		return builder.Sum()
	}
	assert.Equal(t, hash(m1), hash(m2))
	assert.NotEqual(t, hash(a), hash(c))
}

func TestMixinContextRecordsUsedParameters(t *testing.T) {
	groups := parameter.NewKey("Lighting.DirectLightGroups", parameter.KindShaderSources)
	flag := parameter.NewKey("Material.Unlit", parameter.KindBool)

	params := parameter.NewParameterCollection()
	params.Set(groups, SourceCollection{NewClassSource("LightDirectionalGroup", 8)})
	params.Set(parameter.NewKey("Material.Unused", parameter.KindInt), 1)

	ctx := NewMixinContext(params)
	for i, src := range ctx.Sources(groups) {
		ctx.Compose(ComposeName("directLightGroups", i), src)
	}
	assert.False(t, ctx.Bool(flag))

	used := ctx.UsedParameters()
	assert.Equal(t, 2, used.Len())
	assert.True(t, used.Contains(flag))
	require.Len(t, ctx.Root().Compositions, 1)
	assert.Equal(t, "directLightGroups[0]", ctx.Root().Compositions[0].Name)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterClass(ClassDecl{Name: "A", Body: "x"}))
	assert.Error(t, r.RegisterClass(ClassDecl{Name: "A", Body: "y"}))
	assert.Error(t, r.RegisterClass(ClassDecl{Name: "B"}))

	decl, ok := r.Class("A")
	require.True(t, ok)
	body, err := r.LoadBody(decl)
	require.NoError(t, err)
	assert.Equal(t, "x", body)

	_, err = r.LoadBody(ClassDecl{Name: "C", Path: "/does/not/exist.wgsl"})
	assert.Error(t, err)

	require.NoError(t, r.RegisterEffect("E", func(*MixinContext) error { return nil }))
	assert.Error(t, r.RegisterEffect("E", func(*MixinContext) error { return nil }))
}
