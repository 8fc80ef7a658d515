package iron

import (
	"github.com/vipcxj/dash.go/errors"
	"github.com/vipcxj/dash.go/pkg/attr"
)

// MergeFunc combines the parent's resolved value with the child's own value.
type MergeFunc func(parent attr.Value, child attr.Value) attr.Value

// PropertyRule names a property (an attribute, or a child element sequence)
// that a node type may receive from its parent.
//
// Merge false: the property is never inherited. Merge true without MergeFn:
// the parent's value is copied only when the node has none. Merge true with
// MergeFn: a node without the property gets the parent's value, a node with
// it gets MergeFn(parent, own).
type PropertyRule struct {
	Name    string
	Merge   bool
	MergeFn MergeFunc
}

// Descriptor governs one element type inside a Schema.
type Descriptor struct {
	Name       string
	IsRoot     bool
	IsArray    bool
	Properties []PropertyRule

	parent   int
	children []int
}

// Schema is an immutable forest of descriptors stored in an arena and
// linked by index.
type Schema struct {
	nodes []Descriptor
	roots []int
}

const NO_PARENT = -1

func (s *Schema) Roots() []int {
	out := make([]int, len(s.roots))
	copy(out, s.roots)
	return out
}

// Descriptor returns a copy of the descriptor at id.
func (s *Schema) Descriptor(id int) Descriptor {
	d := s.nodes[id]
	d.Properties = append([]PropertyRule(nil), d.Properties...)
	d.children = append([]int(nil), d.children...)
	return d
}

// Parent returns the parent descriptor id, or NO_PARENT.
func (s *Schema) Parent(id int) int {
	return s.nodes[id].parent
}

func (s *Schema) Children(id int) []int {
	return append([]int(nil), s.nodes[id].children...)
}

func (s *Schema) Len() int {
	return len(s.nodes)
}

// Builder assembles a Schema. It is not safe for concurrent use and must not
// be used after Build.
type Builder struct {
	nodes []Descriptor
	roots []int
	built bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Top adds a top level descriptor. isRoot marks the descriptor that governs
// the document element itself; a non root top descriptor is matched wherever
// an element of that name occurs.
func (b *Builder) Top(name string, isRoot bool, props ...PropertyRule) int {
	b.mustOpen()
	id := b.add(Descriptor{Name: name, IsRoot: isRoot, IsArray: true, Properties: props, parent: NO_PARENT})
	b.roots = append(b.roots, id)
	return id
}

// Child adds a descriptor below parent.
func (b *Builder) Child(parent int, name string, isArray bool, props ...PropertyRule) int {
	b.mustOpen()
	if parent < 0 || parent >= len(b.nodes) {
		panic(errors.InvalidParam("invalid parent descriptor %d", parent))
	}
	id := b.add(Descriptor{Name: name, IsArray: isArray, Properties: props, parent: parent})
	b.nodes[parent].children = append(b.nodes[parent].children, id)
	return id
}

func (b *Builder) Build() *Schema {
	b.mustOpen()
	b.built = true
	return &Schema{nodes: b.nodes, roots: b.roots}
}

func (b *Builder) add(d Descriptor) int {
	b.nodes = append(b.nodes, d)
	return len(b.nodes) - 1
}

func (b *Builder) mustOpen() {
	if b.built {
		panic(errors.FatalError("schema builder already built"))
	}
}
