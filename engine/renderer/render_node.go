package renderer

// RenderNode is one mesh drawn in one view. Nodes are stable across frames so render features
// can keep per-node caches; Resources holds the resource groups bound for the draw, keyed by
// logical group name.
type RenderNode struct {
	Mesh   *RenderMesh
	View   *RenderView
	Effect *RenderEffect

	Resources map[string]*ResourceGroup
}

// NewRenderNode creates a node drawing mesh in view with the mesh's shared effect slot.
func NewRenderNode(mesh *RenderMesh, view *RenderView, renderEffect *RenderEffect) *RenderNode {
	if mesh == nil || view == nil || renderEffect == nil {
		panic("renderer: render node requires a mesh, a view and a render effect")
	}
	return &RenderNode{
		Mesh:      mesh,
		View:      view,
		Effect:    renderEffect,
		Resources: make(map[string]*ResourceGroup),
	}
}

// ResourceGroup returns the bound resource group with the given name, nil when unbound.
func (n *RenderNode) ResourceGroup(name string) *ResourceGroup {
	return n.Resources[name]
}

// Bind binds group under name. A nil group unbinds it.
func (n *RenderNode) Bind(name string, group *ResourceGroup) {
	if group == nil {
		delete(n.Resources, name)
		return
	}
	n.Resources[name] = group
}
