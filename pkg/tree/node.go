package tree

import (
	"fmt"
	"strings"

	"github.com/vipcxj/dash.go/pkg/attr"
)

// Node is one markup element. Children with the same name are kept in a
// single ordered sequence; Child is derived from it on read.
type Node struct {
	Name   string
	Parent *Node

	attrs     map[string]attr.Value
	attrKeys  []string
	children  map[string][]*Node
	childKeys []string
	text      *attr.Value

	provenance map[string]Provenance
}

// Provenance records how ironing touched a property so that a later run can
// start from the same inputs.
type Provenance struct {
	// Inherited is set when the property was absent and copied from the parent.
	Inherited bool
	// Declared holds the values the element declared before a merge function
	// rewrote them.
	Declared []attr.Value
}

func NewNode(name string) *Node {
	return &Node{Name: name}
}

func (n *Node) Attr(name string) (attr.Value, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

func (n *Node) SetAttr(name string, v attr.Value) {
	if n.attrs == nil {
		n.attrs = make(map[string]attr.Value)
	}
	if _, ok := n.attrs[name]; !ok {
		n.attrKeys = append(n.attrKeys, name)
	}
	n.attrs[name] = v
}

// AttrNames returns attribute names in declaration order.
func (n *Node) AttrNames() []string {
	out := make([]string, len(n.attrKeys))
	copy(out, n.attrKeys)
	return out
}

// Child returns the first child element with the given name, or nil.
func (n *Node) Child(name string) *Node {
	cs := n.children[name]
	if len(cs) == 0 {
		return nil
	}
	return cs[0]
}

// Children returns the ordered sequence of children with the given name.
// The slice is the node's own storage; use SetChildren to replace it.
func (n *Node) Children(name string) []*Node {
	return n.children[name]
}

// ChildNames returns the distinct child element names in first-seen order.
func (n *Node) ChildNames() []string {
	out := make([]string, len(n.childKeys))
	copy(out, n.childKeys)
	return out
}

func (n *Node) AppendChild(c *Node) {
	if n.children == nil {
		n.children = make(map[string][]*Node)
	}
	if _, ok := n.children[c.Name]; !ok {
		n.childKeys = append(n.childKeys, c.Name)
	}
	c.Parent = n
	n.children[c.Name] = append(n.children[c.Name], c)
}

// SetChildren replaces the sequence for name. An empty sequence removes the
// name altogether.
func (n *Node) SetChildren(name string, cs []*Node) {
	if len(cs) == 0 {
		if _, ok := n.children[name]; ok {
			delete(n.children, name)
			for i, k := range n.childKeys {
				if k == name {
					n.childKeys = append(n.childKeys[:i:i], n.childKeys[i+1:]...)
					break
				}
			}
		}
		return
	}
	if n.children == nil {
		n.children = make(map[string][]*Node)
	}
	if _, ok := n.children[name]; !ok {
		n.childKeys = append(n.childKeys, name)
	}
	for _, c := range cs {
		c.Parent = n
	}
	n.children[name] = cs
}

func (n *Node) Text() (attr.Value, bool) {
	if n.text == nil {
		return attr.Value{}, false
	}
	return *n.text, true
}

func (n *Node) SetText(v attr.Value) {
	n.text = &v
}

// Has reports whether name is present either as an attribute or as at least
// one child element.
func (n *Node) Has(name string) bool {
	if _, ok := n.attrs[name]; ok {
		return true
	}
	return len(n.children[name]) > 0
}

// Value returns the effective scalar value of a property: the attribute if
// present, else the text of the first child element with that name.
func (n *Node) Value(name string) (attr.Value, bool) {
	if v, ok := n.attrs[name]; ok {
		return v, true
	}
	if c := n.Child(name); c != nil {
		return c.Text()
	}
	return attr.Value{}, false
}

func (n *Node) Provenance(name string) (Provenance, bool) {
	p, ok := n.provenance[name]
	return p, ok
}

func (n *Node) SetProvenance(name string, p Provenance) {
	if n.provenance == nil {
		n.provenance = make(map[string]Provenance)
	}
	n.provenance[name] = p
}

// Clone deep copies the subtree rooted at n. The copy has no parent.
func (n *Node) Clone() *Node {
	dst := &Node{Name: n.Name}
	for _, k := range n.attrKeys {
		dst.SetAttr(k, n.attrs[k])
	}
	for _, k := range n.childKeys {
		for _, c := range n.children[k] {
			dst.AppendChild(c.Clone())
		}
	}
	if n.text != nil {
		dst.SetText(*n.text)
	}
	for k, p := range n.provenance {
		declared := make([]attr.Value, len(p.Declared))
		copy(declared, p.Declared)
		dst.SetProvenance(k, Provenance{Inherited: p.Inherited, Declared: declared})
	}
	return dst
}

// Index returns the position of n among its parent's children of the same
// name, or -1 for a root.
func (n *Node) Index() int {
	if n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.children[n.Name] {
		if c == n {
			return i
		}
	}
	return -1
}

// Path returns a slash separated location such as MPD/Period[0]/AdaptationSet[1].
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent {
		if i := cur.Index(); i >= 0 {
			parts = append(parts, fmt.Sprintf("%s[%d]", cur.Name, i))
		} else {
			parts = append(parts, cur.Name)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Walk visits n and its descendants depth first in child name order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, k := range n.childKeys {
		for _, c := range n.children[k] {
			c.Walk(fn)
		}
	}
}
