// annotations.go defines the annotation types and parser for shader class bodies.
// Annotations are single-line WGSL comments prefixed with @oxy: that declare the constant
// buffer members and resources a class reads, or inject a registered struct definition.
// The compiler turns the declarations into the effect's reflection and resource groups.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a class body line.
type AnnotationType string

const (
	// annotationTypeInclude injects a registered struct definition at the annotation site.
	//
	// Syntax: //@oxy:include <struct_name>
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeMember declares a constant buffer member of the class's resource group.
	// The count is optional; when present the member is an array. Generic placeholders
	// ($0, $1, ...) are substituted before parsing, so counts can come from generic arguments.
	//
	// Syntax: //@oxy:member <parameter_name> <value_type> [count]
	//
	// Example: //@oxy:member LightPointGroup.Positions vec3 $0
	AnnotationTypeMember AnnotationType = "member"

	// AnnotationTypeResource declares a non-constant resource (texture, sampler, storage buffer)
	// of the class's resource group.
	//
	// Syntax: //@oxy:resource <parameter_name> <resource_class>
	//
	// Example: //@oxy:resource ShadowMapReceiver.ShadowMapTexture texture_depth
	AnnotationTypeResource AnnotationType = "resource"
)

// ValueType is the shader-side type of a constant buffer member.
type ValueType string

const (
	ValueTypeFloat   ValueType = "f32"
	ValueTypeInt     ValueType = "i32"
	ValueTypeUint    ValueType = "u32"
	ValueTypeVector3 ValueType = "vec3"
	ValueTypeVector4 ValueType = "vec4"
	ValueTypeMatrix  ValueType = "mat4"
)

// ResourceClass is the kind of a non-constant shader resource.
type ResourceClass string

const (
	ResourceClassTexture      ResourceClass = "texture"
	ResourceClassDepthTexture ResourceClass = "texture_depth"
	ResourceClassSampler      ResourceClass = "sampler"
	ResourceClassComparison   ResourceClass = "sampler_comparison"
	ResourceClassStorage      ResourceClass = "storage"
)

var validValueTypes = []ValueType{
	ValueTypeFloat,
	ValueTypeInt,
	ValueTypeUint,
	ValueTypeVector3,
	ValueTypeVector4,
	ValueTypeMatrix,
}

var validResourceClasses = []ResourceClass{
	ResourceClassTexture,
	ResourceClassDepthTexture,
	ResourceClassSampler,
	ResourceClassComparison,
	ResourceClassStorage,
}

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct name
	//   - member:   [0] = parameter name, [1] = value type
	//   - resource: [0] = parameter name, [1] = resource class
	Args []string

	// Count is the array length of a member annotation, 0 for scalars.
	Count int

	// Line is the 1-based line number in the class body, used for error reporting.
	Line int
}

// parseAnnotation attempts to parse a single line of a class body as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: annotationTypeInclude, Args: args[1:], Line: lineNum}, nil
	case AnnotationTypeMember:
		if len(args) < 3 || len(args) > 4 {
			return nil, fmt.Errorf("line %d: @oxy member annotation requires a name, a type and an optional count", lineNum)
		}
		if !slices.Contains(validValueTypes, ValueType(args[2])) {
			return nil, fmt.Errorf("line %d: unknown value type %q in @oxy member annotation", lineNum, args[2])
		}
		a := &Annotation{Type: AnnotationTypeMember, Args: args[1:3], Line: lineNum}
		if len(args) == 4 {
			count, err := strconv.Atoi(args[3])
			if err != nil || count < 1 {
				return nil, fmt.Errorf("line %d: invalid array count %q in @oxy member annotation", lineNum, args[3])
			}
			a.Count = count
		}
		return a, nil
	case AnnotationTypeResource:
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @oxy resource annotation requires a name and a resource class", lineNum)
		}
		if !slices.Contains(validResourceClasses, ResourceClass(args[2])) {
			return nil, fmt.Errorf("line %d: unknown resource class %q in @oxy resource annotation", lineNum, args[2])
		}
		return &Annotation{Type: AnnotationTypeResource, Args: args[1:3], Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
