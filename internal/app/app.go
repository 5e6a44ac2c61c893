package app

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-sprout/sprout"
	"github.com/go-sprout/sprout/registry/std"
	sstrings "github.com/go-sprout/sprout/registry/strings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmoiron/nbts/internal/app/mcformat"
	"github.com/jmoiron/nbts/internal/compr"
	"github.com/jmoiron/nbts/nbt"
	"github.com/jmoiron/nbts/snbt"
)

const (
	// DefaultMaxBody is the upload limit used when Config.MaxBody is 0.
	DefaultMaxBody = 32 << 20
	// DefaultMaxOutput is the SNBT size limit used when Config.MaxOutput
	// is 0.
	DefaultMaxOutput = 64 << 20
)

var errOutputTooLarge = errors.New("output too large")

// M is template and JSON response data.
type M map[string]any

type Config struct {
	// MaxBody limits request bodies, compressed size.
	MaxBody int64
	// MaxOutput limits the SNBT rendered for one upload. A small compressed
	// body can declare arrays thousands of times its size.
	MaxOutput int64
	// MaxDepth limits list/compound nesting of uploads; 0 is unlimited.
	MaxDepth int
	Verbose  int
}

// App serves NBT to SNBT conversion over HTTP.
type App struct {
	Config
	tpl     *template.Template
	reg     *prometheus.Registry
	metrics *metrics
}

//go:embed templates/*.gohtml
var templatesFS embed.FS

func New(cfg Config) (*App, error) {
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	a := &App{Config: cfg, reg: prometheus.NewRegistry()}
	a.metrics = newMetrics(a.reg)

	sub, _ := fs.Sub(templatesFS, "templates")
	sh := sprout.New()
	if err := sh.AddRegistries(std.NewRegistry(), sstrings.NewRegistry()); err != nil {
		return nil, err
	}
	funcs := sh.Build()
	funcs["mc"] = func(s string) template.HTML { return mcformat.Format(s) }
	funcs["kib"] = func(n int64) float64 { return float64(n) / 1024 }
	tpl, err := template.New("base").Funcs(funcs).ParseFS(sub, "*.gohtml")
	if err != nil {
		return nil, err
	}
	a.tpl = tpl
	return a, nil
}

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if a.Verbose > 0 {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.middleware)

	r.Get("/", a.index)
	r.Post("/snbt", a.convert)
	r.Post("/view", a.view)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))

	return r
}

func (a *App) render(w http.ResponseWriter, code int, name string, data any) {
	var buf bytes.Buffer
	if err := a.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, isAjax bool, msg string, code int) {
	if isAjax {
		writeJSON(w, code, M{"ok": false, "error": msg})
		return
	}
	http.Error(w, msg, code)
}

func isAjax(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest" || strings.Contains(r.Header.Get("Accept"), "application/json")
}

// options controls one conversion.
type options struct {
	network     bool
	single      bool
	compression compr.Compression
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "yes", "on":
		return true
	}
	return false
}

// result is what a conversion produced, for templates and JSON.
type result struct {
	SNBT        string
	Compression compr.Compression
	Bytes       int64
}

// run decodes body according to o and renders it as SNBT. Bytes counts
// body as received, before decompression.
func (a *App) run(body io.Reader, o options) (*result, error) {
	cr := &countReader{r: body}
	zr, err := compr.NewReader(cr, o.compression)
	if err != nil {
		a.metrics.observe(cr.n, err)
		return &result{Bytes: cr.n}, err
	}
	defer zr.Close()

	var buf bytes.Buffer
	opts := []snbt.Option{snbt.MaxDepth(a.MaxDepth)}
	if o.single {
		opts = append(opts, snbt.SingleQuotes())
	}
	enc := snbt.NewEncoder(&capWriter{w: &buf, n: a.MaxOutput}, opts...)
	if o.network {
		err = enc.EncodeNetwork(zr)
	} else {
		err = enc.Encode(zr)
	}
	res := &result{SNBT: buf.String(), Compression: zr.Compression, Bytes: cr.n}
	a.metrics.observe(res.Bytes, err)
	return res, err
}

// status maps a conversion error to a response code and a label for the
// conversions metric.
func status(err error) (int, string) {
	var mbe *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK, "ok"
	case errors.As(err, &mbe), errors.Is(err, errOutputTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, nbt.ErrRead):
		return http.StatusBadRequest, "read_error"
	case errors.Is(err, nbt.ErrTooDeep):
		return http.StatusUnprocessableEntity, "too_deep"
	case errors.Is(err, nbt.ErrUnexpectedEOF), errors.Is(err, nbt.ErrInvalidType),
		errors.Is(err, nbt.ErrInvalidSize), errors.Is(err, nbt.ErrUnexpectedEndTag):
		return http.StatusUnprocessableEntity, "invalid"
	case errors.Is(err, nbt.ErrWrite):
		return http.StatusInternalServerError, "error"
	}
	// decompressor setup
	return http.StatusBadRequest, "invalid"
}

// index handles GET "/".
func (a *App) index(w http.ResponseWriter, r *http.Request) {
	a.render(w, http.StatusOK, "index.gohtml", M{"Title": "nbts", "MaxBody": a.MaxBody})
}

// convert handles POST "/snbt": the request body is NBT and the response is
// its SNBT text, or JSON when asked for.
func (a *App) convert(w http.ResponseWriter, r *http.Request) {
	ajax := isAjax(r)
	q := r.URL.Query()
	c, err := compr.ParseCompression(q.Get("compression"))
	if err != nil {
		writeError(w, ajax, err.Error(), http.StatusBadRequest)
		return
	}
	o := options{network: truthy(q.Get("network")), single: q.Get("quote") == "single", compression: c}

	res, err := a.run(http.MaxBytesReader(w, r.Body, a.MaxBody), o)
	if err != nil {
		code, _ := status(err)
		if code >= http.StatusInternalServerError {
			slog.Error("converting upload", "error", err)
		} else {
			slog.Debug("rejected upload", "error", err, "bytes", res.Bytes)
		}
		writeError(w, ajax, err.Error(), code)
		return
	}
	slog.Debug("converted", "bytes", res.Bytes, "compression", res.Compression)

	if ajax {
		writeJSON(w, http.StatusOK, M{"ok": true, "snbt": res.SNBT, "compression": res.Compression.String(), "bytes": res.Bytes})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, res.SNBT)
	_, _ = io.WriteString(w, "\n")
}

// view handles POST "/view", rendering an uploaded file as a page.
func (a *App) view(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxBody)
	data := M{"Title": "nbts", "MaxBody": a.MaxBody}

	fail := func(msg string, code int) {
		data["Error"] = msg
		a.render(w, code, "index.gohtml", data)
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail("upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		fail("invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		fail("no file uploaded", http.StatusBadRequest)
		return
	}
	defer f.Close()

	c, err := compr.ParseCompression(r.FormValue("compression"))
	if err != nil {
		fail(err.Error(), http.StatusBadRequest)
		return
	}
	o := options{
		network:     truthy(r.FormValue("network")),
		single:      truthy(r.FormValue("single")),
		compression: c,
	}
	res, err := a.run(f, o)
	if err != nil {
		code, _ := status(err)
		slog.Debug("rejected upload", "name", hdr.Filename, "error", err)
		fail(err.Error(), code)
		return
	}

	data["Title"] = hdr.Filename
	data["Name"] = hdr.Filename
	data["Result"] = res
	data["Colors"] = truthy(r.FormValue("colors"))
	a.render(w, http.StatusOK, "result.gohtml", data)
}

// capWriter accepts at most n more bytes and fails the write that would
// exceed them.
type capWriter struct {
	w io.Writer
	n int64
}

func (c *capWriter) Write(p []byte) (int, error) {
	if int64(len(p)) > c.n {
		return 0, errOutputTooLarge
	}
	c.n -= int64(len(p))
	return c.w.Write(p)
}

type countReader struct {
	r io.Reader
	n int64
}

func (c *countReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
