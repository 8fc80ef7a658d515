package mpd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/purell"
	"go.uber.org/zap"

	"github.com/vipcxj/dash.go/errors"
	"github.com/vipcxj/dash.go/log"
	"github.com/vipcxj/dash.go/pkg/attr"
	"github.com/vipcxj/dash.go/pkg/iron"
	"github.com/vipcxj/dash.go/pkg/tree"
	"github.com/vipcxj/dash.go/utils"
)

const (
	OP_PARSE         = "parse"
	MSG_PARSE_FAILED = "parsing the manifest failed"
)

// XLinkController resolves remote includes after parsing. It receives the
// registry and engine used for the manifest so fragments are typed and
// ironed the same way.
type XLinkController interface {
	SetMatchers(registry *attr.Registry)
	SetIron(iron *iron.Iron)
}

// ErrorHandler is told about every failed parse, once.
type ErrorHandler interface {
	ManifestError(message string, operation string, data []byte)
}

type LogErrorHandler struct {
	logger *zap.Logger
}

func NewLogErrorHandler(logger *zap.Logger) *LogErrorHandler {
	return &LogErrorHandler{logger: logger}
}

const LOG_SNIPPET_LEN = 128

func (h *LogErrorHandler) ManifestError(message string, operation string, data []byte) {
	head := data
	if len(head) > LOG_SNIPPET_LEN {
		head = head[:LOG_SNIPPET_LEN]
	}
	h.logger.Error(message, zap.String("operation", operation), zap.Int("size", len(data)), zap.ByteString("head", head))
}

type Parser struct {
	registry  *attr.Registry
	converter *tree.Converter
	iron      *iron.Iron
	errs      ErrorHandler
	metrics   *Metrics
	logger    *zap.Logger
}

// An Option configures a Parser
type Option func(p *Parser)

func WithRegistry(registry *attr.Registry) Option {
	return func(p *Parser) {
		p.registry = registry
	}
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(p *Parser) {
		p.errs = h
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Parser) {
		p.metrics = m
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, o := range opts {
		o(p)
	}
	if p.registry == nil {
		p.registry = attr.DefaultRegistry()
	}
	if p.logger == nil {
		p.logger = log.Logger().With(zap.String("tag", "mpd"))
	}
	if p.errs == nil {
		p.errs = NewLogErrorHandler(p.logger)
	}
	p.converter = tree.NewConverter(p.registry)
	p.iron = iron.New(DashSchemas()...)
	return p
}

func (p *Parser) Registry() *attr.Registry {
	return p.registry
}

func (p *Parser) Iron() *iron.Iron {
	return p.iron
}

// Parse converts data into an ironed manifest tree. baseURL is the address
// the manifest was fetched from. On failure no tree is returned, the error
// is a manifest parse error and the error handler has been called exactly
// once. xlink may be nil.
func (p *Parser) Parse(data []byte, baseURL string, xlink XLinkController) (root *tree.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			root = nil
			if e, ok := r.(*errors.DashError); ok && errors.IsManifestParseError(e) {
				err = e
			} else {
				err = errors.ManifestParseError(fmt.Sprintf("%s, %v", MSG_PARSE_FAILED, r), nil)
			}
		}
		if err != nil {
			p.metrics.OnParseFailed()
			p.errs.ManifestError(MSG_PARSE_FAILED, OP_PARSE, data)
		}
	}()
	start := time.Now()
	root, err = p.converter.Convert(data)
	if err != nil {
		return nil, err
	}
	converted := time.Now()
	NormalizeBaseURL(root, baseURL)
	CollapseLocation(root)
	p.iron.Run(root)
	ironed := time.Now()
	if !utils.IsNilInterface(xlink) {
		xlink.SetMatchers(p.registry)
		xlink.SetIron(p.iron)
	}
	p.metrics.OnParsed(converted.Sub(start), ironed.Sub(converted), ironed.Sub(start))
	p.logger.Debug(
		"parsing complete",
		zap.Duration("convert", converted.Sub(start)),
		zap.Duration("iron", ironed.Sub(converted)),
		zap.Duration("total", ironed.Sub(start)),
	)
	return root, nil
}

// NormalizeBaseURL leaves the document element with exactly one BaseURL: the
// first declared one, resolved against fallback when relative, or fallback
// itself when none is declared.
func NormalizeBaseURL(root *tree.Node, fallback string) {
	urls := root.Children(ELEMENT_BASE_URL)
	if len(urls) == 0 {
		n := tree.NewNode(ELEMENT_BASE_URL)
		n.SetText(attr.Text(fallback))
		root.AppendChild(n)
		return
	}
	first := urls[0]
	text, _ := first.Text()
	if !IsAbsoluteURL(text.Raw) {
		first.SetText(attr.Text(ResolveURL(fallback, text.Raw)))
	}
	root.SetChildren(ELEMENT_BASE_URL, urls[:1])
}

// CollapseLocation keeps only the first declared Location.
func CollapseLocation(root *tree.Node) {
	if locs := root.Children(ELEMENT_LOCATION); len(locs) > 1 {
		root.SetChildren(ELEMENT_LOCATION, locs[:1])
	}
}

// ResolveURL resolves ref against base. Unparseable input falls back to plain
// concatenation.
func ResolveURL(base string, ref string) string {
	if base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return base + ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return base + ref
	}
	return purell.NormalizeURL(b.ResolveReference(r), purell.FlagsSafe)
}
