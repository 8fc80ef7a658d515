package mpd_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	godash "github.com/zencoder/go-dash/v3/mpd"
	"go.uber.org/zap"

	"github.com/vipcxj/dash.go/config"
	"github.com/vipcxj/dash.go/errors"
	"github.com/vipcxj/dash.go/pkg/attr"
	"github.com/vipcxj/dash.go/pkg/iron"
	"github.com/vipcxj/dash.go/pkg/mpd"
	"github.com/vipcxj/dash.go/pkg/tree"
	"github.com/vipcxj/dash.go/utils"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" type="static" mediaPresentationDuration="PT1M30.5S" minBufferTime="PT2S" availabilityStartTime="2024-01-02T03:04:05.678+0100">
  <BaseURL>http://cdn/a/</BaseURL>
  <BaseURL>http://mirror/a/</BaseURL>
  <Location>http://origin/one.mpd</Location>
  <Location>http://origin/two.mpd</Location>
  <Period id="p0" start="PT0S">
    <SegmentTemplate timescale="1000" media="$RepresentationID$/$Number$.m4s" initialization="$RepresentationID$/init.mp4"/>
    <AdaptationSet id="1" mimeType="video/mp4" codecs="avc1.4d401f" width="1280" height="720">
      <BaseURL>b/</BaseURL>
      <ContentProtection schemeIdUri="urn:mpeg:dash:mp4protection:2011" value="cenc"/>
      <Representation id="v0" bandwidth="1000000">
        <SubRepresentation level="0" bandwidth="500000"/>
      </Representation>
      <Representation id="v1" bandwidth="3000000" width="1920" height="1080" codecs="avc1.640028">
        <BaseURL>https://other/c/</BaseURL>
      </Representation>
    </AdaptationSet>
    <AdaptationSet id="2" mimeType="audio/mp4" codecs="mp4a.40.2" audioSamplingRate="48000">
      <AudioChannelConfiguration schemeIdUri="urn:mpeg:dash:23003:3:audio_channel_configuration:2011" value="2"/>
      <SegmentList duration="2"><SegmentURL media="seg1.m4s"/></SegmentList>
      <Representation id="a0" bandwidth="128000"/>
    </AdaptationSet>
  </Period>
</MPD>`

type recordingXLink struct {
	registry *attr.Registry
	iron     *iron.Iron
	calls    int
}

func (x *recordingXLink) SetMatchers(registry *attr.Registry) {
	x.registry = registry
	x.calls++
}

func (x *recordingXLink) SetIron(ir *iron.Iron) {
	x.iron = ir
	x.calls++
}

type panickingXLink struct{}

func (panickingXLink) SetMatchers(*attr.Registry) {
	panic("boom")
}

func (panickingXLink) SetIron(*iron.Iron) {}

type report struct {
	message   string
	operation string
	data      string
}

type recordingErrors struct {
	mu      sync.Mutex
	reports []report
}

func (r *recordingErrors) ManifestError(message string, operation string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{message, operation, string(data)})
}

func newParser(errs *recordingErrors, opts ...mpd.Option) *mpd.Parser {
	opts = append([]mpd.Option{mpd.WithErrorHandler(errs), mpd.WithLogger(zap.NewNop())}, opts...)
	return mpd.NewParser(opts...)
}

func mustParse(t *testing.T, raw string, baseURL string) *tree.Node {
	t.Helper()
	errs := &recordingErrors{}
	root, err := newParser(errs).Parse([]byte(raw), baseURL, &recordingXLink{})
	utils.AssertNoError(t, err)
	utils.AssertEqual(t, 0, len(errs.reports))
	return root
}

func valueOf(n *tree.Node, name string) string {
	v, ok := n.Value(name)
	if !ok {
		return "<absent>"
	}
	return v.Raw
}

func TestParseTypesAttributes(t *testing.T) {
	root := mustParse(t, sample, "http://x/m.mpd")
	d, _ := root.Attr("mediaPresentationDuration")
	secs, ok := d.Seconds()
	utils.AssertTrue(t, ok)
	utils.AssertEqual(t, 90.5, secs)

	ast, _ := root.Attr("availabilityStartTime")
	utils.AssertEqual(t, attr.KIND_TIMESTAMP, ast.Kind)
	utils.AssertTrue(t, ast.Time.Equal(time.Date(2024, 1, 2, 2, 4, 5, 678*int(time.Millisecond), time.UTC)))

	bw, _ := root.Child("Period").Child("AdaptationSet").Child("Representation").Attr("bandwidth")
	utils.AssertEqual(t, attr.KIND_NUMBER, bw.Kind)
	utils.AssertEqual(t, 1e6, bw.Number)
}

func TestParseDocumentBaseURLAndLocation(t *testing.T) {
	root := mustParse(t, sample, "http://x/m.mpd")
	utils.AssertEqual(t, 1, len(root.Children("BaseURL")))
	utils.AssertEqual(t, "http://cdn/a/", valueOf(root, "BaseURL"))
	utils.AssertEqual(t, 1, len(root.Children("Location")))
	utils.AssertEqual(t, "http://origin/one.mpd", valueOf(root, "Location"))
}

func TestParseFallbackBaseURL(t *testing.T) {
	root := mustParse(t, `<MPD><Period id="p"/></MPD>`, "http://x/m.mpd")
	utils.AssertEqual(t, "http://x/m.mpd", valueOf(root, "BaseURL"))
	utils.AssertEqual(t, "http://x/m.mpd", valueOf(root.Child("Period"), "BaseURL"))

	root = mustParse(t, `<MPD><BaseURL>sub/</BaseURL><Period><BaseURL>p/</BaseURL></Period></MPD>`, "http://x/m.mpd")
	utils.AssertEqual(t, "http://x/sub/", valueOf(root, "BaseURL"))
	utils.AssertEqual(t, "http://x/sub/p/", valueOf(root.Child("Period"), "BaseURL"))

	root = mustParse(t, `<MPD><BaseURL>HTTPS://abs/</BaseURL></MPD>`, "http://x/m.mpd")
	utils.AssertEqual(t, "HTTPS://abs/", valueOf(root, "BaseURL"))

	root = mustParse(t, `<MPD><BaseURL>sub/</BaseURL></MPD>`, "")
	utils.AssertEqual(t, "sub/", valueOf(root, "BaseURL"))
}

func TestParseBaseURLMerge(t *testing.T) {
	root := mustParse(t, sample, "http://x/m.mpd")
	period := root.Child("Period")
	utils.AssertEqual(t, "http://cdn/a/", valueOf(period, "BaseURL"))
	sets := period.Children("AdaptationSet")
	utils.AssertEqual(t, "http://cdn/a/b/", valueOf(sets[0], "BaseURL"))
	reps := sets[0].Children("Representation")
	utils.AssertEqual(t, "http://cdn/a/b/", valueOf(reps[0], "BaseURL"))
	utils.AssertEqual(t, "https://other/c/", valueOf(reps[1], "BaseURL"))
	utils.AssertEqual(t, "http://cdn/a/", valueOf(sets[1].Child("Representation"), "BaseURL"))
}

func TestParseCommonProperties(t *testing.T) {
	root := mustParse(t, sample, "")
	sets := root.Child("Period").Children("AdaptationSet")
	reps := sets[0].Children("Representation")
	utils.AssertEqual(t, "video/mp4", valueOf(reps[0], "mimeType"))
	utils.AssertEqual(t, "avc1.4d401f", valueOf(reps[0], "codecs"))
	utils.AssertEqual(t, "avc1.640028", valueOf(reps[1], "codecs"))
	utils.AssertEqual(t, "1280", valueOf(reps[0], "width"))
	utils.AssertEqual(t, "1920", valueOf(reps[1], "width"))

	sub := reps[0].Child("SubRepresentation")
	utils.AssertEqual(t, "video/mp4", valueOf(sub, "mimeType"))
	utils.AssertEqual(t, "avc1.4d401f", valueOf(sub, "codecs"))
	utils.AssertEqual(t, "500000", valueOf(sub, "bandwidth"))

	for _, n := range []*tree.Node{reps[0], reps[1], sub} {
		cp := n.Child("ContentProtection")
		utils.AssertTrueWP(t, cp != nil, n.Path()+": ")
		scheme, _ := cp.Attr("schemeIdUri")
		utils.AssertEqual(t, "urn:mpeg:dash:mp4protection:2011", scheme.Raw)
		utils.AssertTrue(t, cp != sets[0].Child("ContentProtection"))
	}

	audio := sets[1].Child("Representation")
	utils.AssertEqual(t, "48000", valueOf(audio, "audioSamplingRate"))
	utils.AssertTrue(t, audio.Child("AudioChannelConfiguration") != nil)
	utils.AssertEqual(t, "<absent>", valueOf(audio, "width"))
}

func TestParsePrefixedManifest(t *testing.T) {
	root := mustParse(t, `<mpd:MPD xmlns:mpd="urn:mpeg:dash:schema:mpd:2011">
  <mpd:BaseURL>sub/</mpd:BaseURL>
  <mpd:Period id="p0">
    <mpd:AdaptationSet mimeType="video/mp4">
      <mpd:Representation id="v0" bandwidth="1000"/>
    </mpd:AdaptationSet>
  </mpd:Period>
</mpd:MPD>`, "http://x/m.mpd")
	utils.AssertEqualSlice(t, []string{"BaseURL", "Period"}, root.ChildNames())
	utils.AssertEqual(t, 1, len(root.Children("BaseURL")))
	utils.AssertEqual(t, "http://x/sub/", valueOf(root, "BaseURL"))
	rep := root.Child("Period").Child("AdaptationSet").Child("Representation")
	utils.AssertEqual(t, "video/mp4", valueOf(rep, "mimeType"))
	utils.AssertEqual(t, "http://x/sub/", valueOf(rep, "BaseURL"))
}

func TestParseSegmentInheritance(t *testing.T) {
	root := mustParse(t, sample, "")
	sets := root.Child("Period").Children("AdaptationSet")
	v0 := sets[0].Child("Representation")
	tpl := v0.Child("SegmentTemplate")
	utils.AssertTrue(t, tpl != nil)
	media, _ := tpl.Attr("media")
	utils.AssertEqual(t, "$RepresentationID$/$Number$.m4s", media.Raw)
	a0 := sets[1].Child("Representation")
	utils.AssertTrue(t, a0.Child("SegmentList") != nil)
	utils.AssertEqual(t, 1, len(a0.Child("SegmentList").Children("SegmentURL")))
}

func TestParseIsIdempotent(t *testing.T) {
	p := newParser(&recordingErrors{})
	root, err := p.Parse([]byte(sample), "http://x/m.mpd", nil)
	utils.AssertNoError(t, err)
	first, err := root.MarshalJSON()
	utils.AssertNoError(t, err)
	p.Iron().Run(root)
	second, err := root.MarshalJSON()
	utils.AssertNoError(t, err)
	utils.AssertEqual(t, string(first), string(second))
}

func TestParsePublishesToXLink(t *testing.T) {
	p := newParser(&recordingErrors{})
	x := &recordingXLink{}
	_, err := p.Parse([]byte(sample), "", x)
	utils.AssertNoError(t, err)
	utils.AssertEqual(t, 2, x.calls)
	utils.AssertTrue(t, x.registry == p.Registry())
	utils.AssertTrue(t, x.iron == p.Iron())
}

func TestParseFailureReportsOnce(t *testing.T) {
	for _, raw := range []string{"<MPD>\n<Period>\n</MPD>", "", "plain text"} {
		errs := &recordingErrors{}
		x := &recordingXLink{}
		root, err := newParser(errs).Parse([]byte(raw), "http://x/m.mpd", x)
		utils.AssertTrue(t, root == nil)
		utils.AssertError(t, err)
		utils.AssertTrue(t, errors.IsManifestParseError(err))
		utils.AssertEqual(t, 1, len(errs.reports))
		utils.AssertEqual(t, mpd.OP_PARSE, errs.reports[0].operation)
		utils.AssertEqual(t, mpd.MSG_PARSE_FAILED, errs.reports[0].message)
		utils.AssertEqual(t, raw, errs.reports[0].data)
		utils.AssertEqual(t, 0, x.calls)
	}
}

func TestParseRecoversPanics(t *testing.T) {
	errs := &recordingErrors{}
	root, err := newParser(errs).Parse([]byte(sample), "", panickingXLink{})
	utils.AssertTrue(t, root == nil)
	utils.AssertTrue(t, errors.IsManifestParseError(err))
	utils.AssertEqual(t, 1, len(errs.reports))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	utils.AssertNoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestParseMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := mpd.NewMetrics(reg, &config.PrometheusConfigure{Namespace: "dash", Subsystem: "test"})
	p := newParser(&recordingErrors{}, mpd.WithMetrics(metrics))
	_, err := p.Parse([]byte(sample), "", nil)
	utils.AssertNoError(t, err)
	_, err = p.Parse([]byte("<MPD"), "", nil)
	utils.AssertError(t, err)
	utils.AssertEqual(t, 1.0, counterValue(t, reg, "dash_test_manifest_parses_total"))
	utils.AssertEqual(t, 1.0, counterValue(t, reg, "dash_test_manifest_parse_failures_total"))
	utils.AssertTrue(t, metrics.Registry() == reg)
}

func TestParseConcurrently(t *testing.T) {
	p := newParser(&recordingErrors{})
	want, err := p.Parse([]byte(sample), "http://x/m.mpd", nil)
	utils.AssertNoError(t, err)
	wantJSON, _ := want.MarshalJSON()
	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			root, err := p.Parse([]byte(sample), "http://x/m.mpd", nil)
			if err != nil {
				results[i] = err.Error()
				return
			}
			b, _ := root.MarshalJSON()
			results[i] = string(b)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		utils.AssertEqual(t, string(wantJSON), r)
	}
}

func TestResolveURL(t *testing.T) {
	utils.AssertEqual(t, "http://x/sub/", mpd.ResolveURL("http://x/m.mpd", "sub/"))
	utils.AssertEqual(t, "http://x/a/c/", mpd.ResolveURL("HTTP://X:80/a/b/m.mpd", "../c/"))
	utils.AssertEqual(t, "rel/", mpd.ResolveURL("", "rel/"))
}

const crossCheck = `<?xml version="1.0" encoding="UTF-8"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" type="static" profiles="urn:mpeg:dash:profile:isoff-live:2011" minBufferTime="PT2S">
  <Period id="0">
    <AdaptationSet mimeType="video/mp4">
      <Representation id="v0" bandwidth="800000"/>
      <Representation id="v1" bandwidth="1600000"/>
    </AdaptationSet>
    <AdaptationSet mimeType="audio/mp4">
      <Representation id="a0" bandwidth="96000"/>
    </AdaptationSet>
  </Period>
  <Period id="1">
    <AdaptationSet mimeType="video/mp4">
      <Representation id="v2" bandwidth="2400000"/>
    </AdaptationSet>
  </Period>
</MPD>`

func TestStructureMatchesGoDash(t *testing.T) {
	ref, err := godash.ReadFromString(crossCheck)
	utils.AssertNoError(t, err)
	root := mustParse(t, crossCheck, "http://x/")
	periods := root.Children("Period")
	utils.AssertEqual(t, len(ref.Periods), len(periods))
	for i, rp := range ref.Periods {
		sets := periods[i].Children("AdaptationSet")
		utils.AssertEqual(t, len(rp.AdaptationSets), len(sets))
		for j, ras := range rp.AdaptationSets {
			reps := sets[j].Children("Representation")
			utils.AssertEqual(t, len(ras.Representations), len(reps))
			for k, rr := range ras.Representations {
				bw, _ := reps[k].Attr("bandwidth")
				utils.AssertEqual(t, float64(*rr.Bandwidth), bw.Number)
				utils.AssertEqual(t, *rr.ID, valueOf(reps[k], "id"))
				utils.AssertEqual(t, *ras.MimeType, valueOf(reps[k], "mimeType"))
			}
		}
	}
}

func TestSchemas(t *testing.T) {
	schemas := mpd.DashSchemas()
	utils.AssertEqual(t, 3, len(schemas))
	common := schemas[0]
	top := common.Descriptor(common.Roots()[0])
	utils.AssertEqual(t, "AdaptationSet", top.Name)
	utils.AssertFalse(t, top.IsRoot)
	utils.AssertEqual(t, 17, len(top.Properties))
	base := schemas[2]
	root := base.Descriptor(base.Roots()[0])
	utils.AssertTrue(t, root.IsRoot)
	utils.AssertTrue(t, root.Properties[0].MergeFn != nil)
}

func TestMergeBaseURL(t *testing.T) {
	parent := attr.Text("http://cdn/a/")
	utils.AssertEqual(t, "http://cdn/a/b/", mpd.MergeBaseURL(parent, attr.Text("b/")).Raw)
	utils.AssertEqual(t, "https://other/c/", mpd.MergeBaseURL(parent, attr.Text("https://other/c/")).Raw)
}
