package lighting

import (
	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// LightShaderPermutationEntry is one combination of light group fragments, in slot order.
// Entries are created once per shader key and kept for the lifetime of the feature.
type LightShaderPermutationEntry struct {
	Key common.ObjectID

	DirectLightSources      shader.SourceCollection
	EnvironmentLightSources shader.SourceCollection
}

// IsEmpty reports whether the combination has no light group at all.
func (e *LightShaderPermutationEntry) IsEmpty() bool {
	return len(e.DirectLightSources) == 0 && len(e.EnvironmentLightSources) == 0
}

type entryResourceGroup struct {
	group *renderer.ResourceGroup
	frame uint64
}

// LightParametersPermutationEntry binds concrete lights to a LightShaderPermutationEntry in one
// view. Entries live in a pool and are only valid for the frame they were created in.
type LightParametersPermutationEntry struct {
	Key         common.ObjectID
	ShaderEntry *LightShaderPermutationEntry
	View        *renderer.RenderView

	DirectLightGroupDatas []LightShaderGroupData
	EnvironmentLightDatas []LightShaderGroupData

	// LastFrameUsed is the last frame a node resolved to the entry.
	LastFrameUsed uint64

	resources map[common.ObjectID]*entryResourceGroup
}

func (e *LightParametersPermutationEntry) reset() {
	e.Key = common.ObjectID{}
	e.ShaderEntry = nil
	e.View = nil
	clear(e.DirectLightGroupDatas)
	e.DirectLightGroupDatas = e.DirectLightGroupDatas[:0]
	clear(e.EnvironmentLightDatas)
	e.EnvironmentLightDatas = e.EnvironmentLightDatas[:0]
	e.LastFrameUsed = 0
}

// resourceGroup returns the entry's group for a layout and whether it was already written
// this frame.
func (e *LightParametersPermutationEntry) resourceGroup(layout *renderer.ResourceGroupLayout, frame uint64) (*renderer.ResourceGroup, bool) {
	rg, ok := e.resources[layout.Hash]
	if !ok {
		rg = &entryResourceGroup{group: &renderer.ResourceGroup{}}
		e.resources[layout.Hash] = rg
	}
	if rg.frame == frame {
		return rg.group, true
	}
	rg.frame = frame
	return rg.group, false
}

// invalidate forces the next resourceGroup call for layout to report an unwritten group.
func (e *LightParametersPermutationEntry) invalidate(layout *renderer.ResourceGroupLayout) {
	if rg, ok := e.resources[layout.Hash]; ok {
		rg.frame = 0
	}
}

func (e *LightParametersPermutationEntry) apply(group *renderer.ResourceGroup) error {
	for _, d := range e.DirectLightGroupDatas {
		if err := d.ApplyParameters(e.View, group); err != nil {
			return err
		}
	}
	for _, d := range e.EnvironmentLightDatas {
		if err := d.ApplyParameters(e.View, group); err != nil {
			return err
		}
	}
	return nil
}

// parametersEntryPool is an arena of parameter entries. get hands out entries in order and
// reset makes all of them available again; resource groups survive so their storage is reused.
type parametersEntryPool struct {
	entries []*LightParametersPermutationEntry
	used    int
}

func (p *parametersEntryPool) get() *LightParametersPermutationEntry {
	if p.used == len(p.entries) {
		p.entries = append(p.entries, &LightParametersPermutationEntry{
			resources: make(map[common.ObjectID]*entryResourceGroup),
		})
	}
	e := p.entries[p.used]
	p.used++
	e.reset()
	return e
}

func (p *parametersEntryPool) reset() {
	p.used = 0
}

// Len returns the number of entries handed out since the last reset.
func (p *parametersEntryPool) Len() int {
	return p.used
}
