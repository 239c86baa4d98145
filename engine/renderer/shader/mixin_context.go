package shader

import (
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// MixinContext is handed to an effect generator. Every parameter the generator reads is
// recorded as a used parameter of the resulting bytecode, so later requests can tell
// whether the compiled permutation still matches.
type MixinContext struct {
	params parameter.ParameterCollection
	used   parameter.ParameterCollection
	root   *MixinSource
}

// NewMixinContext creates a context reading from params.
func NewMixinContext(params parameter.ParameterCollection) *MixinContext {
	return &MixinContext{
		params: params,
		used:   parameter.NewParameterCollection(parameter.WithName("used")),
		root:   NewMixinSource(),
	}
}

// Get reads a compiler parameter and records it as used. Absent parameters are recorded
// with a nil value.
func (c *MixinContext) Get(key parameter.Key) (any, bool) {
	v, ok := c.params.Get(key)
	c.used.Set(key, v)
	return v, ok
}

// Sources reads a composition list parameter.
func (c *MixinContext) Sources(key parameter.Key) SourceCollection {
	v, _ := c.Get(key)
	sources, _ := v.(SourceCollection)
	return sources
}

// Bool reads a boolean parameter, false when absent.
func (c *MixinContext) Bool(key parameter.Key) bool {
	v, _ := c.Get(key)
	b, _ := v.(bool)
	return b
}

// Mixin appends a source to the root mixin.
func (c *MixinContext) Mixin(src ShaderSource) {
	c.root.Mixins = append(c.root.Mixins, src)
}

// Compose fills a named composition slot of the root mixin.
func (c *MixinContext) Compose(name string, src ShaderSource) {
	c.root.AddComposition(name, src)
}

// Root returns the mixin tree built so far.
func (c *MixinContext) Root() *MixinSource {
	return c.root
}

// UsedParameters returns the parameters read by the generator.
func (c *MixinContext) UsedParameters() parameter.ParameterCollection {
	return c.used
}
