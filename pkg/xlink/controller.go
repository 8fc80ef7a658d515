package xlink

import (
	"bytes"
	"sync"

	"go.uber.org/zap"

	"github.com/vipcxj/dash.go/errors"
	"github.com/vipcxj/dash.go/log"
	"github.com/vipcxj/dash.go/pkg/attr"
	"github.com/vipcxj/dash.go/pkg/iron"
	"github.com/vipcxj/dash.go/pkg/tree"
	"github.com/vipcxj/dash.go/utils"
)

const (
	ATTR_HREF          = "xlink:href"
	ATTR_ACTUATE       = "xlink:actuate"
	ACTUATE_ON_LOAD    = "onLoad"
	ACTUATE_ON_REQUEST = "onRequest"
	RESOLVE_TO_ZERO    = "urn:mpeg:dash:resolve-to-zero:2013"
)

// Link is an element still waiting for its remote content.
type Link struct {
	Node    *tree.Node
	Href    string
	Actuate string
}

func (l Link) OnLoad() bool {
	return l.Actuate == ACTUATE_ON_LOAD
}

// Controller splices fetched remote fragments into a parsed manifest. It
// types and irons them with whatever the manifest parser published, so it
// must be handed to the parser before use.
type Controller struct {
	mu       sync.RWMutex
	registry *attr.Registry
	iron     *iron.Iron
	logger   *zap.Logger
}

func NewController(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = log.Logger().With(zap.String("tag", "xlink"))
	}
	return &Controller{logger: logger}
}

func (c *Controller) SetMatchers(registry *attr.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry = registry
}

func (c *Controller) SetIron(ir *iron.Iron) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iron = ir
}

func (c *Controller) published() (*attr.Registry, *iron.Iron) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry, c.iron
}

// Pending lists elements below root carrying an xlink:href, in document
// order. When names is not empty only elements with one of those names are
// reported.
func (c *Controller) Pending(root *tree.Node, names ...string) []Link {
	var links []Link
	root.Walk(func(n *tree.Node) bool {
		if n == root {
			return true
		}
		if len(names) > 0 && utils.IndexOf(names, n.Name, nil) < 0 {
			return true
		}
		href, ok := n.Attr(ATTR_HREF)
		if !ok {
			return true
		}
		actuate := ACTUATE_ON_REQUEST
		if v, ok := n.Attr(ATTR_ACTUATE); ok {
			actuate = v.Raw
		}
		links = append(links, Link{Node: n, Href: href.Raw, Actuate: actuate})
		return true
	})
	return links
}

// Resolve replaces link's element with the elements of the same name found in
// fragment, then irons root again. A resolve-to-zero link, or a fragment
// without matching elements, just removes the element.
func (c *Controller) Resolve(root *tree.Node, link Link, fragment []byte) error {
	registry, ir := c.published()
	if registry == nil || ir == nil {
		return errors.FatalError("xlink controller used before the manifest parser published its matchers and iron")
	}
	parent := link.Node.Parent
	if parent == nil {
		return errors.InvalidParam("the document element can not be replaced by %s", link.Href)
	}
	var replacement []*tree.Node
	if link.Href != RESOLVE_TO_ZERO {
		resp, err := tree.NewConverter(registry).Convert(wrap(fragment))
		if err != nil {
			return err
		}
		replacement = resp.Children(link.Node.Name)
	}
	siblings := parent.Children(link.Node.Name)
	i := utils.IndexOf(siblings, link.Node, nil)
	if i < 0 {
		return errors.InvalidParam("%s is no longer part of the manifest", link.Node.Name)
	}
	next, _ := utils.SliceSplice(siblings, i, replacement...)
	parent.SetChildren(link.Node.Name, next)
	ir.Run(root)
	c.logger.Debug("xlink resolved", zap.String("href", link.Href), zap.String("element", link.Node.Name), zap.Int("replacements", len(replacement)))
	return nil
}

// wrap puts the fragment under a single synthetic root so that it may hold
// several sibling elements.
func wrap(fragment []byte) []byte {
	fragment = bytes.TrimSpace(fragment)
	if bytes.HasPrefix(fragment, []byte("<?xml")) {
		if end := bytes.Index(fragment, []byte("?>")); end >= 0 {
			fragment = fragment[end+2:]
		}
	}
	out := make([]byte, 0, len(fragment)+len("<response></response>"))
	out = append(out, "<response>"...)
	out = append(out, fragment...)
	return append(out, "</response>"...)
}
