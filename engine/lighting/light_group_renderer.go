package lighting

import (
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// ProcessLightsContext is the input of one LightGroupRenderer.ProcessLights call: the lights of
// one type visible in one view.
type ProcessLightsContext struct {
	View      *renderer.RenderView
	ViewIndex int
	Lights    []light.Light
	Shadows   map[uuid.UUID]*LightShadowMapTexture

	// Remaining receives the lights the renderer left to its NonShadowRenderer.
	Remaining []light.Light
}

// ShadowTexture returns the shadow map assigned to l in this view, nil if it has none.
func (c *ProcessLightsContext) ShadowTexture(l light.Light) *LightShadowMapTexture {
	if c.Shadows == nil {
		return nil
	}
	return c.Shadows[l.ID()]
}

// LightShaderGroup is one shader fragment of a light permutation: a class instance handling a
// fixed number of lights with one shadow configuration.
type LightShaderGroup interface {
	// ShaderSource returns the fragment composed into the group's slot. The same instance is
	// returned for as long as the light count and shadow type do not change.
	//
	// Returns:
	//   - shader.ShaderSource: the fragment, nil before the group first had lights
	ShaderSource() shader.ShaderSource

	// ShadowType returns the shadow configuration of the group, zero when unshadowed.
	ShadowType() light.ShadowType

	// LightCurrentCount returns the number of lights the fragment is generated for this frame.
	LightCurrentCount() int

	// CreateGroupData creates the object binding the lights of one mesh into the group's slot.
	// Data objects are pooled and only valid until the next frame.
	//
	// Parameters:
	//   - composition: the slot the group is composed into, e.g. "directLightGroups[0]"
	//
	// Returns:
	//   - LightShaderGroupData: an empty data object
	CreateGroupData(composition string) LightShaderGroupData
}

// LightShaderGroupData binds concrete lights into one composed light group.
type LightShaderGroupData interface {
	// AddLight adds a light. Lights beyond the group's light count are ignored.
	//
	// Parameters:
	//   - l: the light
	//   - shadow: its shadow map in the bound view, nil when unshadowed
	AddLight(l light.Light, shadow *LightShadowMapTexture)

	// ApplyParameters writes the lights into a prepared resource group.
	//
	// Parameters:
	//   - view: the view the group is bound for
	//   - group: the resource group
	//
	// Returns:
	//   - error: an error if a value does not match its member
	ApplyParameters(view *renderer.RenderView, group *renderer.ResourceGroup) error
}

// LightGroupRenderer turns the visible lights of one light type into shader groups.
//
// Per frame the forward lighting feature calls Reset and SetViews, then ProcessLights for every
// view the renderer is active in, then UpdateShaderGroups once. Afterwards ShaderGroupFor tells
// which group a light ended up in.
type LightGroupRenderer interface {
	// Name returns the debug name of the renderer.
	Name() string

	// IsEnvironment reports whether the renderer handles environment lights, which are composed
	// into the environmentLights slots instead of directLightGroups.
	IsEnvironment() bool

	// CanHaveShadows reports whether the renderer produces shadowed groups.
	CanHaveShadows() bool

	// LightMaxCount returns the maximum number of lights one group handles per view.
	// Lights beyond it are dropped.
	LightMaxCount() int

	// AllocateLightMaxCount reports whether unshadowed groups are always generated for
	// LightMaxCount lights instead of the next power of two.
	AllocateLightMaxCount() bool

	// Initialize prepares the renderer. It is called lazily the first frame the renderer is
	// active and must be idempotent.
	Initialize()

	// Reset starts a new frame.
	Reset()

	// SetViews sets the views of the frame.
	//
	// Parameters:
	//   - views: the views, indexed by view index
	SetViews(views []*renderer.RenderView)

	// ProcessLights assigns the lights of one view to shader groups.
	//
	// Parameters:
	//   - ctx: the view and its lights; Remaining receives lights handed to the NonShadowRenderer
	ProcessLights(ctx *ProcessLightsContext)

	// UpdateShaderGroups regenerates the fragments of groups whose light count changed.
	UpdateShaderGroups()

	// ShaderGroupFor returns the group a light was assigned to in a view.
	//
	// Parameters:
	//   - viewIndex: the view
	//   - l: the light
	//
	// Returns:
	//   - LightShaderGroup: the group
	//   - bool: false if the renderer did not take the light in this view
	ShaderGroupFor(viewIndex int, l light.Light) (LightShaderGroup, bool)

	// NoShadowGroup returns an unshadowed group for count lights, used for meshes that do not
	// receive shadows.
	//
	// Parameters:
	//   - count: the number of lights of the mesh
	//
	// Returns:
	//   - LightShaderGroup: the group
	NoShadowGroup(count int) LightShaderGroup

	// NonShadowRenderer returns the renderer unshadowed lights are handed to, nil if none.
	NonShadowRenderer() LightGroupRenderer
}
