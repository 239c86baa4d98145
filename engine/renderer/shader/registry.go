package shader

import (
	"fmt"
	"os"
	"sync"
)

// ClassDecl declares a shader class. The body is either inline or read from Path, in which
// case it can be reloaded when the file changes.
type ClassDecl struct {
	Name string

	// ResourceGroup is the logical resource group the class's members and resources live in
	// (e.g. "PerLighting").
	ResourceGroup string

	Path string
	Body string
}

// EffectGenerator builds the mixin tree of a named effect from compiler parameters.
type EffectGenerator func(ctx *MixinContext) error

// Registry holds the shader classes, include structs and effect generators known to a compiler.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]ClassDecl
	structs map[string]string
	effects map[string]EffectGenerator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]ClassDecl),
		structs: make(map[string]string),
		effects: make(map[string]EffectGenerator),
	}
}

// RegisterClass adds a class declaration. Registering the same name twice is an error.
func (r *Registry) RegisterClass(decl ClassDecl) error {
	if decl.Name == "" {
		return fmt.Errorf("shader: class name must not be empty")
	}
	if decl.Body == "" && decl.Path == "" {
		return fmt.Errorf("shader: class %q has neither a body nor a path", decl.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.classes[decl.Name]; ok {
		return fmt.Errorf("shader: class %q already registered", decl.Name)
	}
	r.classes[decl.Name] = decl
	return nil
}

// Class returns the declaration of a class.
func (r *Registry) Class(name string) (ClassDecl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.classes[name]
	return decl, ok
}

// ClassPaths returns the on-disk paths of every file-backed class.
func (r *Registry) ClassPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var paths []string
	for _, decl := range r.classes {
		if decl.Path != "" {
			paths = append(paths, decl.Path)
		}
	}
	return paths
}

// LoadBody returns the current body of a class, reading file-backed classes from disk.
func (r *Registry) LoadBody(decl ClassDecl) (string, error) {
	if decl.Path == "" {
		return decl.Body, nil
	}
	data, err := os.ReadFile(decl.Path)
	if err != nil {
		return "", fmt.Errorf("shader: failed to read class %q: %w", decl.Name, err)
	}
	return string(data), nil
}

// RegisterStruct adds a struct definition available to @oxy:include.
func (r *Registry) RegisterStruct(name, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.structs[name] = source
}

// Struct returns a registered struct definition.
func (r *Registry) Struct(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.structs[name]
	return src, ok
}

// RegisterEffect adds an effect generator. Registering the same name twice is an error.
func (r *Registry) RegisterEffect(name string, gen EffectGenerator) error {
	if name == "" || gen == nil {
		return fmt.Errorf("shader: effect registration requires a name and a generator")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.effects[name]; ok {
		return fmt.Errorf("shader: effect %q already registered", name)
	}
	r.effects[name] = gen
	return nil
}

// Effect returns the generator of a named effect.
func (r *Registry) Effect(name string) (EffectGenerator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.effects[name]
	return gen, ok
}
