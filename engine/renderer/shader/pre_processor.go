// pre_processor.go implements the class body pre-processor. It substitutes generic
// arguments and the composition slot into a class body, replaces @oxy:include annotations
// with registered struct sources, and collects the member and resource declarations that the
// compiler turns into reflection.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// MemberDecl is a constant buffer member declared by a class body.
type MemberDecl struct {
	Name  string
	Type  ValueType
	Count int
}

// ResourceDecl is a non-constant resource declared by a class body.
type ResourceDecl struct {
	Name  string
	Class ResourceClass
}

// Processed is the result of pre-processing one class body.
type Processed struct {
	Source    string
	Members   []MemberDecl
	Resources []ResourceDecl
}

// PreProcessor expands class bodies into WGSL text plus their declarations.
type PreProcessor interface {
	// Process expands a class body. Generic placeholders $0..$n are replaced by the generic
	// arguments, $slot by an identifier derived from the composition slot, and include
	// annotations by the registered struct source. Member and resource annotations produce
	// no WGSL output and are returned as declarations in source order.
	//
	// Parameters:
	//   - body: the raw class body
	//   - generics: the generic arguments of the class instance
	//   - slot: the composition slot the class is instantiated in, empty for the root
	//
	// Returns:
	//   - Processed: the expanded source and declarations
	//   - error: an error if any annotation is malformed or references an unknown struct
	Process(body string, generics []string, slot string) (Processed, error)
}

type preProcessor struct {
	structs func(name string) (string, bool)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor resolving @oxy:include names through lookup.
//
// Parameters:
//   - lookup: returns the WGSL source of a registered struct
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(lookup func(name string) (string, bool)) PreProcessor {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	return &preProcessor{structs: lookup}
}

func (p *preProcessor) Process(body string, generics []string, slot string) (Processed, error) {
	// substitute the highest indices first so $1 does not clobber $10
	for i := len(generics) - 1; i >= 0; i-- {
		body = strings.ReplaceAll(body, "$"+strconv.Itoa(i), generics[i])
	}
	body = strings.ReplaceAll(body, "$slot", SlotIdentifier(slot))

	var res Processed
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return Processed{}, err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			src, ok := p.structs(a.Args[0])
			if !ok {
				return Processed{}, fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			out = append(out, src)
		case AnnotationTypeMember:
			res.Members = append(res.Members, MemberDecl{Name: a.Args[0], Type: ValueType(a.Args[1]), Count: a.Count})
		case AnnotationTypeResource:
			res.Resources = append(res.Resources, ResourceDecl{Name: a.Args[0], Class: ResourceClass(a.Args[1])})
		default:
			return Processed{}, fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	res.Source = strings.Join(out, "\n")
	return res, nil
}

// SlotIdentifier turns a composition slot name such as "directLightGroups[0]" into a
// valid shader identifier ("directLightGroups_0").
func SlotIdentifier(slot string) string {
	if slot == "" {
		return "root"
	}
	r := strings.NewReplacer("[", "_", "]", "", ".", "_")
	return r.Replace(slot)
}
