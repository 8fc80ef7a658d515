package tree

import (
	"bytes"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/vipcxj/dash.go/errors"
	"github.com/vipcxj/dash.go/pkg/attr"
)

const maxSnippetLen = 256

// Converter turns raw markup into a Node tree, typing every attribute and
// text value with its registry. It holds no state besides the registry and
// may be shared.
type Converter struct {
	registry *attr.Registry
}

func NewConverter(registry *attr.Registry) *Converter {
	if registry == nil {
		registry = attr.DefaultRegistry()
	}
	return &Converter{registry: registry}
}

func (c *Converter) Registry() *attr.Registry {
	return c.registry
}

// Convert parses raw and returns the root element. Malformed markup or a
// document without a root element yields a manifest parse error whose Data is
// the offending snippet.
func (c *Converter) Convert(raw []byte) (*Node, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, errors.ManifestParseError(fmt.Sprintf("malformed markup: %v", err), snippet(raw, err))
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.ManifestParseError("markup has no root element", snippet(raw, nil))
	}
	return c.convertElement(root), nil
}

func (c *Converter) ConvertString(raw string) (*Node, error) {
	return c.Convert([]byte(raw))
}

// convertElement names elements by their local name so that a prefixed
// mpd:Period is still a Period. Attributes keep their prefix (xlink:href).
func (c *Converter) convertElement(el *etree.Element) *Node {
	n := NewNode(el.Tag)
	for _, a := range el.Attr {
		name := a.FullKey()
		n.SetAttr(name, c.registry.Classify(name, a.Value))
	}
	hasElements := false
	var text strings.Builder
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			hasElements = true
			n.AppendChild(c.convertElement(t))
		case *etree.CharData:
			text.WriteString(t.Data)
		}
	}
	if !hasElements {
		if s := strings.TrimSpace(text.String()); s != "" {
			n.SetText(c.registry.Classify(n.Name, s))
		}
	}
	return n
}

// snippet picks the input line reported by the xml decoder, or the head of the
// input when no line is known.
func snippet(raw []byte, err error) string {
	var syntaxErr *xml.SyntaxError
	if err != nil && stderrors.As(err, &syntaxErr) && syntaxErr.Line > 0 {
		lines := bytes.Split(raw, []byte("\n"))
		if syntaxErr.Line <= len(lines) {
			return truncate(strings.TrimSpace(string(lines[syntaxErr.Line-1])))
		}
	}
	return truncate(strings.TrimSpace(string(raw)))
}

// truncate cuts s to at most maxSnippetLen bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	end := maxSnippetLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}
