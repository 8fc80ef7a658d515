package mpd

import (
	"regexp"

	"github.com/vipcxj/dash.go/pkg/attr"
	"github.com/vipcxj/dash.go/pkg/iron"
)

const (
	ELEMENT_MPD                = "MPD"
	ELEMENT_PERIOD             = "Period"
	ELEMENT_ADAPTATION_SET     = "AdaptationSet"
	ELEMENT_REPRESENTATION     = "Representation"
	ELEMENT_SUB_REPRESENTATION = "SubRepresentation"
	ELEMENT_BASE_URL           = "BaseURL"
	ELEMENT_LOCATION           = "Location"
	ELEMENT_SEGMENT_BASE       = "SegmentBase"
	ELEMENT_SEGMENT_TEMPLATE   = "SegmentTemplate"
	ELEMENT_SEGMENT_LIST       = "SegmentList"
	ELEMENT_CONTENT_PROTECTION = "ContentProtection"
	ELEMENT_FRAME_PACKING      = "FramePacking"
	ELEMENT_AUDIO_CHANNEL_CONF = "AudioChannelConfiguration"
)

var httpOrHttps = regexp.MustCompile(`(?i)^https?://`)

// IsAbsoluteURL reports whether raw starts with an http or https scheme.
func IsAbsoluteURL(raw string) bool {
	return httpOrHttps.MatchString(raw)
}

// MergeBaseURL keeps an absolute child and appends a relative one to the
// parent's resolved value.
func MergeBaseURL(parent attr.Value, child attr.Value) attr.Value {
	if IsAbsoluteURL(child.Raw) {
		return child
	}
	return attr.Text(parent.Raw + child.Raw)
}

func inherited(names ...string) []iron.PropertyRule {
	rules := make([]iron.PropertyRule, len(names))
	for i, name := range names {
		rules[i] = iron.PropertyRule{Name: name, Merge: true}
	}
	return rules
}

// CommonSchema carries structural and media properties from an AdaptationSet
// down to its Representations and their SubRepresentations.
func CommonSchema() *iron.Schema {
	props := inherited(
		"profiles",
		"width",
		"height",
		"sar",
		"frameRate",
		"audioSamplingRate",
		"mimeType",
		"segmentProfiles",
		"codecs",
		"maximumSAPPeriod",
		"startWithSAP",
		"maxPlayoutRate",
		"codingDependency",
		"scanType",
		ELEMENT_FRAME_PACKING,
		ELEMENT_AUDIO_CHANNEL_CONF,
		ELEMENT_CONTENT_PROTECTION,
	)
	b := iron.NewBuilder()
	as := b.Top(ELEMENT_ADAPTATION_SET, false, props...)
	rep := b.Child(as, ELEMENT_REPRESENTATION, true, props...)
	b.Child(rep, ELEMENT_SUB_REPRESENTATION, true, props...)
	return b.Build()
}

// SegmentSchema carries segment addressing elements from a Period down to
// its Representations.
func SegmentSchema() *iron.Schema {
	props := inherited(ELEMENT_SEGMENT_BASE, ELEMENT_SEGMENT_TEMPLATE, ELEMENT_SEGMENT_LIST)
	b := iron.NewBuilder()
	period := b.Top(ELEMENT_PERIOD, false, props...)
	as := b.Child(period, ELEMENT_ADAPTATION_SET, true, props...)
	b.Child(as, ELEMENT_REPRESENTATION, true, props...)
	return b.Build()
}

// BaseURLSchema resolves BaseURL from the document element down to every
// Representation.
func BaseURLSchema() *iron.Schema {
	props := []iron.PropertyRule{{Name: ELEMENT_BASE_URL, Merge: true, MergeFn: MergeBaseURL}}
	b := iron.NewBuilder()
	root := b.Top(ELEMENT_MPD, true, props...)
	period := b.Child(root, ELEMENT_PERIOD, true, props...)
	as := b.Child(period, ELEMENT_ADAPTATION_SET, true, props...)
	b.Child(as, ELEMENT_REPRESENTATION, true, props...)
	return b.Build()
}

// DashSchemas returns the forests used by the manifest parser, in the order
// they are applied.
func DashSchemas() []*iron.Schema {
	return []*iron.Schema{CommonSchema(), SegmentSchema(), BaseURLSchema()}
}
