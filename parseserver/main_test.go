package parseserver_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/vipcxj/dash.go/config"
	"github.com/vipcxj/dash.go/middleware"
	"github.com/vipcxj/dash.go/parseserver"
	"github.com/vipcxj/dash.go/pkg/mpd"
	"github.com/vipcxj/dash.go/utils"
)

const manifest = `<MPD xmlns:xlink="http://www.w3.org/1999/xlink" type="static" mediaPresentationDuration="PT10S">
  <Period id="p0">
    <AdaptationSet mimeType="video/mp4" codecs="avc1.4d401f">
      <BaseURL>video/</BaseURL>
      <Representation id="v0" bandwidth="500000" width="640" height="360"/>
    </AdaptationSet>
  </Period>
  <Period id="p1" xlink:href="http://remote/p1.xml"/>
</MPD>`

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conf := &config.DashConfigure{}
	conf.Server.Enable = true
	conf.Server.MaxBodyBytes = 1 << 20
	conf.Parser.FallbackBaseUrl = "http://fallback/m.mpd"
	conf.Prometheus.Enable = true
	conf.Prometheus.Namespace = "dash"
	conf.Prometheus.Subsystem = "test"
	server, err := parseserver.NewServer(conf, config.NewPromRegistry(conf.GetProm()))
	utils.AssertNoError(t, err)
	engine := gin.New()
	engine.Use(middleware.ErrorHandler())
	engine.Use(middleware.RequestID())
	server.Register(engine)
	return engine
}

func post(engine *gin.Engine, query string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/parse"+query, strings.NewReader(body))
	engine.ServeHTTP(w, req)
	return w
}

func TestParseTree(t *testing.T) {
	engine := newEngine(t)
	w := post(engine, "?baseUrl=http://cdn/live/m.mpd", manifest)
	utils.AssertEqual(t, http.StatusOK, w.Code)
	utils.AssertEqual(t, "MISS", w.Header().Get(parseserver.HEADER_CACHE))
	utils.AssertEqual(t, "1", w.Header().Get(parseserver.HEADER_XLINK_PENDING))
	utils.AssertTrue(t, w.Header().Get(middleware.HEADER_REQUEST_ID) != "")
	body := w.Body.String()
	utils.AssertTrue(t, strings.HasPrefix(body, `{"name":"MPD"`))
	utils.AssertTrue(t, strings.Contains(body, `"mediaPresentationDuration":10`))
	utils.AssertTrue(t, strings.Contains(body, `"text":"http://cdn/live/m.mpd"`))
}

func TestParseSummary(t *testing.T) {
	engine := newEngine(t)
	w := post(engine, "?format=summary&baseUrl=http://cdn/", manifest)
	utils.AssertEqual(t, http.StatusOK, w.Code)
	var got []mpd.RepresentationSummary
	utils.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	utils.AssertEqual(t, 1, len(got))
	utils.AssertEqual(t, "v0", got[0].ID)
	utils.AssertEqual(t, 640, got[0].Width)
	utils.AssertEqual(t, "video/mp4", got[0].MimeType)
	utils.AssertEqual(t, "http://cdn/video/", got[0].BaseURL)
}

func TestParseXML(t *testing.T) {
	engine := newEngine(t)
	w := post(engine, "?format=xml&baseUrl=http://cdn/", manifest)
	utils.AssertEqual(t, http.StatusOK, w.Code)
	utils.AssertTrue(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/xml"))
	utils.AssertTrue(t, strings.Contains(w.Body.String(), "<BaseURL>http://cdn/video/</BaseURL>"))
}

func TestParseErrors(t *testing.T) {
	engine := newEngine(t)
	w := post(engine, "", "<MPD><Period></MPD>")
	utils.AssertEqual(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	utils.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	utils.AssertEqual(t, 2000, body.Code)

	w = post(engine, "?format=yaml", manifest)
	utils.AssertEqual(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newEngine(t)
	post(engine, "", manifest)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	utils.AssertEqual(t, http.StatusOK, w.Code)
	utils.AssertTrue(t, strings.Contains(w.Body.String(), "dash_test_manifest_parses_total 1"))
}
