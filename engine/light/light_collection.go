package light

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// LightComponentCollection is an ordered list of lights sharing the same culling masks.
type LightComponentCollection struct {
	lights []Light
	groups common.EntityGroupMask
}

// Add appends a light.
func (c *LightComponentCollection) Add(l Light) {
	c.lights = append(c.lights, l)
}

// Len returns the number of lights.
func (c *LightComponentCollection) Len() int {
	return len(c.lights)
}

// At returns the i-th light.
func (c *LightComponentCollection) At(i int) Light {
	return c.lights[i]
}

// Lights returns the lights. The slice is reused across frames.
func (c *LightComponentCollection) Lights() []Light {
	return c.lights
}

// Groups returns the entity groups this collection serves.
func (c *LightComponentCollection) Groups() common.EntityGroupMask {
	return c.groups
}

// Clear removes every light, keeping the allocation.
func (c *LightComponentCollection) Clear() {
	clear(c.lights)
	c.lights = c.lights[:0]
	c.groups = 0
}

var emptyCollection = &LightComponentCollection{}

// LightComponentCollectionGroup holds the visible lights of one light type for one view,
// partitioned by culling mask: entity groups lit by exactly the same culling masks share
// one collection, so meshes of different groups never see each other's lights.
//
// Usage per frame: Clear, PrepareLight for every visible light,
// AllocateCollectionsPerGroupOfCullingMask, then AddLight for every visible light.
type LightComponentCollectionGroup struct {
	lightType LightType

	masks       []common.EntityGroupMask
	collections []*LightComponentCollection
	used        int
	byGroup     [common.MaxEntityGroups]int
	signatures  [common.MaxEntityGroups][]common.EntityGroupMask
	all         LightComponentCollection
}

// NewLightComponentCollectionGroup creates an empty group for a light type.
func NewLightComponentCollectionGroup(lightType LightType) *LightComponentCollectionGroup {
	g := &LightComponentCollectionGroup{lightType: lightType}
	g.Clear()
	return g
}

// LightType returns the light type of the group.
func (g *LightComponentCollectionGroup) LightType() LightType {
	return g.lightType
}

// Count returns the number of lights added this frame.
func (g *LightComponentCollectionGroup) Count() int {
	return g.all.Len()
}

// All returns every light added this frame, in insertion order.
func (g *LightComponentCollectionGroup) All() *LightComponentCollection {
	return &g.all
}

// PrepareLight records the culling mask of a light that will be added this frame.
func (g *LightComponentCollectionGroup) PrepareLight(l Light) {
	m := l.CullingMask()
	if !slices.Contains(g.masks, m) {
		g.masks = append(g.masks, m)
	}
}

// AllocateCollectionsPerGroupOfCullingMask assigns one collection to every set of entity groups
// lit by the same prepared culling masks. Collections from previous frames are reused.
func (g *LightComponentCollectionGroup) AllocateCollectionsPerGroupOfCullingMask() {
	for eg := range common.MaxEntityGroups {
		bit := common.EntityGroup(eg).Mask()
		sig := g.signatures[eg][:0]
		for _, m := range g.masks {
			if m&bit != 0 {
				sig = append(sig, m)
			}
		}
		g.signatures[eg] = sig
		g.byGroup[eg] = -1
		if len(sig) == 0 {
			continue
		}

		for prev := range eg {
			if g.byGroup[prev] >= 0 && slices.Equal(g.signatures[prev], sig) {
				g.byGroup[eg] = g.byGroup[prev]
				break
			}
		}
		if g.byGroup[eg] < 0 {
			g.byGroup[eg] = g.allocate()
		}
		g.collections[g.byGroup[eg]].groups |= bit
	}
}

func (g *LightComponentCollectionGroup) allocate() int {
	if g.used == len(g.collections) {
		g.collections = append(g.collections, &LightComponentCollection{})
	}
	g.used++
	return g.used - 1
}

// AddLight adds a light to every collection serving a group in its culling mask.
func (g *LightComponentCollectionGroup) AddLight(l Light) {
	g.all.Add(l)
	mask := l.CullingMask()
	for _, c := range g.collections[:g.used] {
		if c.groups&mask != 0 {
			c.Add(l)
		}
	}
}

// FindLightCollectionByGroup returns the collection lighting an entity group. The result is
// never nil; a group no light reaches gets an empty collection.
func (g *LightComponentCollectionGroup) FindLightCollectionByGroup(group common.EntityGroup) *LightComponentCollection {
	idx := g.byGroup[group%common.MaxEntityGroups]
	if idx < 0 {
		return emptyCollection
	}
	return g.collections[idx]
}

// Clear empties the group for a new frame, keeping allocated collections.
func (g *LightComponentCollectionGroup) Clear() {
	for _, c := range g.collections[:g.used] {
		c.Clear()
	}
	g.used = 0
	g.masks = g.masks[:0]
	g.all.Clear()
	for i := range g.byGroup {
		g.byGroup[i] = -1
	}
}
