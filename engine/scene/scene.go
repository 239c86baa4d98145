package scene

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
)

// Scene is a registry of lights, meshes and views. It hands the frame driver the render
// nodes to light: one node per visible (view, mesh) pair, stable across frames, each with its
// own RenderEffect so every view selects its own light permutation.
// Scenes can be hot-swapped via the Active flag.
// Thread-safe for concurrent access.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// AddLight adds a light to the scene. A light with the same id replaces the previous one.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight removes a light by id.
	//
	// Parameters:
	//   - id: the light id
	//
	// Returns:
	//   - bool: false if no such light was registered
	RemoveLight(id uuid.UUID) bool

	// Light retrieves a light by id.
	//
	// Parameters:
	//   - id: the light id
	//
	// Returns:
	//   - light.Light: the light
	//   - bool: false if not found
	Light(id uuid.UUID) (light.Light, bool)

	// Lights returns a copy of every light in insertion order.
	//
	// Returns:
	//   - []light.Light: the scene's lights
	Lights() []light.Light

	// AddMesh adds a mesh to the scene.
	//
	// Parameters:
	//   - mesh: the mesh to add
	//
	// Returns:
	//   - uint64: the assigned mesh id
	AddMesh(mesh *renderer.RenderMesh) uint64

	// RemoveMesh removes a mesh and its render nodes.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - bool: false if no such mesh was registered
	RemoveMesh(id uint64) bool

	// Mesh retrieves a mesh by id.
	//
	// Parameters:
	//   - id: the mesh id
	//
	// Returns:
	//   - *renderer.RenderMesh: the mesh, nil if not found
	Mesh(id uint64) *renderer.RenderMesh

	// Count returns the number of meshes.
	Count() int

	// AddView appends a view. Its index is its position among the scene's views.
	//
	// Parameters:
	//   - view: the view to add
	AddView(view *renderer.RenderView)

	// RemoveView removes a view and its render nodes.
	//
	// Parameters:
	//   - view: the view to remove
	RemoveView(view *renderer.RenderView)

	// Views returns a copy of the views in index order.
	//
	// Returns:
	//   - []*renderer.RenderView: the views
	Views() []*renderer.RenderView

	// RenderNodes returns the nodes of every mesh visible in a view: the mesh's group is part
	// of the view's culling mask and its bounding box intersects the view frustum. Nodes are
	// ordered by view, then by mesh id, and the same (view, mesh) pair always yields the same
	// node.
	//
	// Returns:
	//   - []*renderer.RenderNode: the visible nodes
	RenderNodes() []*renderer.RenderNode

	// RenderEffects returns the render effect of every node created so far, ordered by view,
	// then by mesh id.
	//
	// Returns:
	//   - []*renderer.RenderEffect: the render effects
	RenderEffects() []*renderer.RenderEffect

	// Clear removes every light, mesh, view and node.
	Clear()
}

type sceneMesh struct {
	id   uint64
	mesh *renderer.RenderMesh
}

type nodeKey struct {
	view *renderer.RenderView
	mesh uint64
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool
	logger zerolog.Logger

	lights     []light.Light
	lightIndex map[uuid.UUID]int

	meshes map[uint64]*sceneMesh
	order  []uint64
	nextID uint64

	views []*renderer.RenderView
	nodes map[nodeKey]*renderer.RenderNode
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates an empty, inactive scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:         &sync.RWMutex{},
		name:       name,
		logger:     zerolog.Nop(),
		lightIndex: make(map[uuid.UUID]int),
		meshes:     make(map[uint64]*sceneMesh),
		nextID:     1,
		nodes:      make(map[nodeKey]*renderer.RenderNode),
	}
	for _, option := range options {
		option(s)
	}
	s.logger = s.logger.With().Str("component", "scene").Str("scene", name).Logger()
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) AddLight(l light.Light) {
	if l == nil {
		panic("scene: light must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLight(l)
}

func (s *scene) addLight(l light.Light) {
	if i, ok := s.lightIndex[l.ID()]; ok {
		s.lights[i] = l
		return
	}
	s.lightIndex[l.ID()] = len(s.lights)
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.lightIndex[id]
	if !ok {
		return false
	}
	s.lights = slices.Delete(s.lights, i, i+1)
	delete(s.lightIndex, id)
	for j := i; j < len(s.lights); j++ {
		s.lightIndex[s.lights[j].ID()] = j
	}
	return true
}

func (s *scene) Light(id uuid.UUID) (light.Light, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.lightIndex[id]
	if !ok {
		return nil, false
	}
	return s.lights[i], true
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) AddMesh(mesh *renderer.RenderMesh) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMesh(mesh)
}

func (s *scene) addMesh(mesh *renderer.RenderMesh) uint64 {
	id := s.nextID
	s.nextID++
	s.meshes[id] = &sceneMesh{id: id, mesh: mesh}
	s.order = append(s.order, id)
	s.logger.Debug().Uint64("mesh", id).Str("name", mesh.Name).Str("effect", mesh.EffectName).Msg("mesh added")
	return id
}

func (s *scene) RemoveMesh(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meshes[id]; !ok {
		return false
	}
	delete(s.meshes, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	for k := range s.nodes {
		if k.mesh == id {
			delete(s.nodes, k)
		}
	}
	return true
}

func (s *scene) Mesh(id uint64) *renderer.RenderMesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.meshes[id]; ok {
		return m.mesh
	}
	return nil
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes)
}

func (s *scene) AddView(view *renderer.RenderView) {
	if view == nil {
		panic("scene: view must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addView(view)
}

func (s *scene) addView(view *renderer.RenderView) {
	if slices.Contains(s.views, view) {
		return
	}
	view.Index = len(s.views)
	s.views = append(s.views, view)
}

func (s *scene) RemoveView(view *renderer.RenderView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.views, view)
	if i < 0 {
		return
	}
	s.views = slices.Delete(s.views, i, i+1)
	for j, v := range s.views {
		v.Index = j
	}
	for k := range s.nodes {
		if k.view == view {
			delete(s.nodes, k)
		}
	}
}

func (s *scene) Views() []*renderer.RenderView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.views)
}

func (s *scene) RenderNodes() []*renderer.RenderNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*renderer.RenderNode
	for _, view := range s.views {
		for _, id := range s.order {
			m := s.meshes[id]
			if !view.CullingMask.Contains(m.mesh.Group) || !view.Frustum.ContainsBox(m.mesh.BoundingBox) {
				continue
			}
			key := nodeKey{view: view, mesh: id}
			node, ok := s.nodes[key]
			if !ok {
				node = renderer.NewRenderNode(m.mesh, view, renderer.NewRenderEffect(m.mesh))
				s.nodes[key] = node
			}
			out = append(out, node)
		}
	}
	return out
}

func (s *scene) RenderEffects() []*renderer.RenderEffect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*renderer.RenderEffect
	for _, view := range s.views {
		for _, id := range s.order {
			if node, ok := s.nodes[nodeKey{view: view, mesh: id}]; ok {
				out = append(out, node.Effect)
			}
		}
	}
	return out
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.lights)
	s.lights = s.lights[:0]
	clear(s.lightIndex)
	clear(s.meshes)
	s.order = s.order[:0]
	s.views = s.views[:0]
	clear(s.nodes)
}
