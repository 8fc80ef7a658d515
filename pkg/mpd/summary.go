package mpd

import (
	stderrors "errors"

	"github.com/mitchellh/mapstructure"

	"github.com/vipcxj/dash.go/pkg/tree"
)

// RepresentationSummary is a flat view of one ironed Representation.
type RepresentationSummary struct {
	PeriodID        string  `json:"periodId,omitempty"`
	AdaptationSetID string  `json:"adaptationSetId,omitempty"`
	ID              string  `json:"id"`
	Bandwidth       float64 `json:"bandwidth"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	MimeType        string  `json:"mimeType,omitempty"`
	Codecs          string  `json:"codecs,omitempty"`
	BaseURL         string  `json:"baseUrl,omitempty"`
	Segment         string  `json:"segment,omitempty"`
}

type representationFields struct {
	Bandwidth float64 `mpd:"bandwidth"`
	Width     int     `mpd:"width"`
	Height    int     `mpd:"height"`
	MimeType  string  `mpd:"mimeType"`
	Codecs    string  `mpd:"codecs"`
}

// Summarize lists every Representation of an ironed manifest in document
// order.
func Summarize(root *tree.Node) ([]RepresentationSummary, error) {
	var out []RepresentationSummary
	for _, period := range root.Children(ELEMENT_PERIOD) {
		for _, as := range period.Children(ELEMENT_ADAPTATION_SET) {
			for _, rep := range as.Children(ELEMENT_REPRESENTATION) {
				s, err := summarize(rep)
				if err != nil {
					return nil, err
				}
				s.PeriodID = rawAttr(period, "id")
				s.AdaptationSetID = rawAttr(as, "id")
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func summarize(rep *tree.Node) (RepresentationSummary, error) {
	var fields representationFields
	// A field that does not convert (width="abc") stays zero; the rest decode.
	if err := tree.Decode(rep, &fields); err != nil {
		var fieldErrs *mapstructure.Error
		if !stderrors.As(err, &fieldErrs) {
			return RepresentationSummary{}, err
		}
	}
	s := RepresentationSummary{
		ID:        rawAttr(rep, "id"),
		Bandwidth: fields.Bandwidth,
		Width:     fields.Width,
		Height:    fields.Height,
		MimeType:  fields.MimeType,
		Codecs:    fields.Codecs,
	}
	if v, ok := rep.Value(ELEMENT_BASE_URL); ok {
		s.BaseURL = v.Raw
	}
	s.Segment = segmentKind(rep)
	return s, nil
}

var segmentKinds = []string{ELEMENT_SEGMENT_TEMPLATE, ELEMENT_SEGMENT_LIST, ELEMENT_SEGMENT_BASE}

// segmentKind names the segment element declared closest to n. Copies left by
// ironing are skipped so the declaring level decides.
func segmentKind(n *tree.Node) string {
	for cur := n; cur != nil; cur = cur.Parent {
		for _, kind := range segmentKinds {
			if !cur.Has(kind) {
				continue
			}
			if p, ok := cur.Provenance(kind); ok && p.Inherited {
				continue
			}
			return kind
		}
	}
	return ""
}

func rawAttr(n *tree.Node, name string) string {
	if v, ok := n.Attr(name); ok {
		return v.Raw
	}
	return ""
}
