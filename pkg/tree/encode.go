package tree

import (
	"bytes"

	"github.com/beevik/etree"
	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
)

const (
	TEXT_KEY     = "__text"
	ARRAY_SUFFIX = "_asArray"
)

// MarshalJSON writes {"name", "attributes", "children", "text"} with
// attributes and children in declaration order, so equal trees always encode
// to equal bytes.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encodeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encodeJSON(buf *bytes.Buffer) error {
	buf.WriteString(`{"name":`)
	if err := writeJSON(buf, n.Name); err != nil {
		return err
	}
	if len(n.attrKeys) > 0 {
		buf.WriteString(`,"attributes":{`)
		for i, k := range n.attrKeys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, n.attrs[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	if len(n.childKeys) > 0 {
		buf.WriteString(`,"children":{`)
		for i, k := range n.childKeys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, k); err != nil {
				return err
			}
			buf.WriteString(":[")
			for j, c := range n.children[k] {
				if j > 0 {
					buf.WriteByte(',')
				}
				if err := c.encodeJSON(buf); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
		}
		buf.WriteByte('}')
	}
	if n.text != nil {
		buf.WriteString(`,"text":`)
		if err := writeJSON(buf, *n.text); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// ToMap returns the node in the classic xml-to-json layout: attributes and
// first children under their own names, every child sequence under
// name+"_asArray", and text under "__text". An element carrying only text
// collapses to the text value itself.
func (n *Node) ToMap() map[string]any {
	m := make(map[string]any, len(n.attrKeys)+2*len(n.childKeys)+1)
	for _, k := range n.attrKeys {
		m[k] = n.attrs[k].Interface()
	}
	for _, k := range n.childKeys {
		cs := n.children[k]
		arr := make([]any, len(cs))
		for i, c := range cs {
			arr[i] = c.mapValue()
		}
		m[k] = arr[0]
		m[k+ARRAY_SUFFIX] = arr
	}
	if n.text != nil {
		m[TEXT_KEY] = n.text.Interface()
	}
	return m
}

func (n *Node) mapValue() any {
	if len(n.attrKeys) == 0 && len(n.childKeys) == 0 {
		if n.text != nil {
			return n.text.Interface()
		}
		return ""
	}
	return n.ToMap()
}

// Decode fills out (a pointer to a struct or map) from the node's map form.
// Fields are matched by the "mpd" struct tag and scalar types are converted
// loosely, so a numeric attribute may land in a string field and back.
func Decode(n *Node, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mpd",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(n.ToMap())
}

// ToXML rebuilds markup from the tree using the raw attribute and text values.
// Children are grouped by name in first-seen order.
func ToXML(n *Node) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.SetRoot(n.toElement())
	doc.Indent(2)
	return doc.WriteToBytes()
}

func (n *Node) toElement() *etree.Element {
	el := etree.NewElement(n.Name)
	for _, k := range n.attrKeys {
		el.CreateAttr(k, n.attrs[k].Raw)
	}
	for _, k := range n.childKeys {
		for _, c := range n.children[k] {
			el.AddChild(c.toElement())
		}
	}
	if n.text != nil {
		el.SetText(n.text.Raw)
	}
	return el
}
