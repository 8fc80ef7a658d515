package iron

import (
	"github.com/vipcxj/dash.go/pkg/attr"
	"github.com/vipcxj/dash.go/pkg/tree"
)

// Iron propagates inheritable properties down a tree as described by one or
// more schemas. It keeps no per-run state and may be shared between
// goroutines as long as each works on its own tree.
type Iron struct {
	schemas []*Schema
}

func New(schemas ...*Schema) *Iron {
	return &Iron{schemas: append([]*Schema(nil), schemas...)}
}

func (ir *Iron) Schemas() []*Schema {
	return append([]*Schema(nil), ir.schemas...)
}

// Run irons root in place. Schemas are applied in order; within a schema
// every node is resolved before any of its descendants. Running it again on
// its own output changes nothing.
func (ir *Iron) Run(root *tree.Node) {
	if root == nil {
		return
	}
	for _, s := range ir.schemas {
		for _, top := range s.roots {
			d := &s.nodes[top]
			if d.IsRoot {
				ir.descend(s, top, root)
				continue
			}
			root.Walk(func(n *tree.Node) bool {
				if n.Name != d.Name {
					return true
				}
				ir.descend(s, top, n)
				return false
			})
		}
	}
}

func (ir *Iron) descend(s *Schema, id int, node *tree.Node) {
	for _, cid := range s.nodes[id].children {
		cd := &s.nodes[cid]
		kids := node.Children(cd.Name)
		if !cd.IsArray && len(kids) > 1 {
			kids = kids[:1]
		}
		kids = append([]*tree.Node(nil), kids...)
		for _, kid := range kids {
			applyRules(cd.Properties, node, kid)
		}
		for _, kid := range kids {
			ir.descend(s, cid, kid)
		}
	}
}

func applyRules(rules []PropertyRule, parent *tree.Node, child *tree.Node) {
	for _, r := range rules {
		if !r.Merge || !parent.Has(r.Name) {
			continue
		}
		prov, hasProv := child.Provenance(r.Name)
		own := child.Has(r.Name) && !(hasProv && prov.Inherited)
		if !own {
			inherit(r.Name, parent, child)
			continue
		}
		if r.MergeFn != nil {
			merge(r, parent, child, prov)
		}
	}
}

func inherit(name string, parent *tree.Node, child *tree.Node) {
	if v, ok := parent.Attr(name); ok {
		child.SetAttr(name, v)
	} else {
		src := parent.Children(name)
		cp := make([]*tree.Node, len(src))
		for i, c := range src {
			cp[i] = c.Clone()
		}
		child.SetChildren(name, cp)
	}
	child.SetProvenance(name, tree.Provenance{Inherited: true})
}

func merge(r PropertyRule, parent *tree.Node, child *tree.Node, prov tree.Provenance) {
	parentValue, ok := parent.Value(r.Name)
	if !ok {
		parentValue = attr.Text("")
	}
	if own, ok := child.Attr(r.Name); ok {
		declared := prov.Declared
		if len(declared) != 1 {
			declared = []attr.Value{own}
		}
		child.SetAttr(r.Name, r.MergeFn(parentValue, declared[0]))
		child.SetProvenance(r.Name, tree.Provenance{Declared: declared})
		return
	}
	elems := child.Children(r.Name)
	declared := prov.Declared
	if len(declared) != len(elems) {
		declared = make([]attr.Value, len(elems))
		for i, el := range elems {
			if v, ok := el.Text(); ok {
				declared[i] = v
			} else {
				declared[i] = attr.Text("")
			}
		}
	}
	for i, el := range elems {
		el.SetText(r.MergeFn(parentValue, declared[i]))
	}
	child.SetProvenance(r.Name, tree.Provenance{Declared: declared})
}
