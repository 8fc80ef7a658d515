package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vipcxj/dash.go/config"
	"github.com/vipcxj/dash.go/log"
	"github.com/vipcxj/dash.go/pkg/mpd"
	"github.com/vipcxj/dash.go/pkg/tree"
	"github.com/vipcxj/dash.go/pkg/xlink"
)

type app struct {
	BaseURL  string // Fallback base url, usually where the manifest came from
	Format   string // tree, map, summary or xml
	Pretty   bool   // Indent json output
	LogLevel string // debug, info, warn, error
}

func (a *app) setFlags(fs *flag.FlagSet) {
	fs.StringVarP(&a.BaseURL, "base-url", "b", "", "url the manifest was fetched from")
	fs.StringVarP(&a.Format, "format", "f", "tree", "output format: tree, map, summary or xml")
	fs.BoolVarP(&a.Pretty, "pretty", "p", false, "indent json output")
	fs.StringVar(&a.LogLevel, "log-level", "warn", "log level")
}

func readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func (a *app) render(root *tree.Node) ([]byte, error) {
	var out []byte
	var err error
	switch a.Format {
	case "tree":
		out, err = root.MarshalJSON()
	case "map":
		out, err = json.Marshal(root.ToMap())
	case "summary":
		var summaries []mpd.RepresentationSummary
		summaries, err = mpd.Summarize(root)
		if err == nil {
			out, err = json.Marshal(summaries)
		}
	case "xml":
		return tree.ToXML(root)
	default:
		return nil, fmt.Errorf("unsupported format %s", a.Format)
	}
	if err != nil || !a.Pretty {
		return out, err
	}
	var buf bytes.Buffer
	if err = json.Indent(&buf, out, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (a *app) run(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("expect at most one manifest, but got %d", len(args))
	}
	var name string
	if len(args) == 1 {
		name = args[0]
	}
	data, err := readInput(name)
	if err != nil {
		return err
	}
	links := xlink.NewController(nil)
	root, err := mpd.NewParser().Parse(data, a.BaseURL, links)
	if err != nil {
		return err
	}
	for _, l := range links.Pending(root) {
		log.Sugar().Warnf("unresolved xlink on %s: %s", l.Node.Path(), l.Href)
	}
	out, err := a.render(root)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(out, '\n'))
	return err
}

func main() {
	a := &app{}
	fs := flag.NewFlagSet("mpdparse", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: mpdparse [flags] [manifest.mpd | -]\n")
		fs.PrintDefaults()
	}
	a.setFlags(fs)
	fs.Parse(os.Args[1:])

	logger, err := log.Create(config.LOG_PROFILE_DEVELOPMENT, a.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err = a.run(fs.Args()); err != nil {
		log.Sugar().Error(err)
		os.Exit(1)
	}
}
