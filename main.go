package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"

	"github.com/jmoiron/nbts/internal/app"
	"github.com/jmoiron/nbts/internal/compr"
	"github.com/jmoiron/nbts/snbt"
)

// version is set at build time via -ldflags; defaults to dev.
var version = "dev"

type options struct {
	network     bool
	single      bool
	compression compr.Compression
	maxDepth    int
}

func main() {
	var (
		network     bool
		single      bool
		compression string
		maxDepth    int
		serve       string
		maxBody     int64
		maxOutput   int64
		showVersion bool
		verbose     int
	)

	flag.BoolVarP(&network, "network", "n", false, "input uses network framing (root tag has no name)")
	flag.BoolVar(&single, "single-quotes", false, "quote strings and names with ' instead of \"")
	flag.StringVarP(&compression, "compression", "c", "auto", "input compression: auto, none, gzip, zlib or zstd")
	flag.IntVar(&maxDepth, "max-depth", 512, "maximum list/compound nesting; 0 for no limit")
	flag.StringVar(&serve, "serve", "", "serve the conversion web UI on this address (host:port) instead")
	flag.Int64Var(&maxBody, "max-body", app.DefaultMaxBody, "maximum upload size in bytes when serving")
	flag.Int64Var(&maxOutput, "max-output", app.DefaultMaxOutput, "maximum SNBT size in bytes per upload when serving")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.CountVarP(&verbose, "verbose", "v", "increase verbosity; repeat for more detail")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: nbts [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the NBT in file (or standard input) as SNBT.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel(verbose),
		TimeFormat: time.Kitchen,
	})))

	c, err := compr.ParseCompression(compression)
	if err != nil {
		log.Fatalf("--compression: %v", err)
	}

	if serve != "" {
		a, err := app.New(app.Config{MaxBody: maxBody, MaxOutput: maxOutput, MaxDepth: maxDepth, Verbose: verbose})
		if err != nil {
			log.Fatalf("init: %v", err)
		}
		slog.Warn("listening", "addr", "http://"+serve, "version", version)
		if err := httpListenAndServe(serve, a.Router()); err != nil {
			log.Fatalf("server: %v", err)
		}
		return
	}

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}

	var in io.Reader = os.Stdin
	if name := flag.Arg(0); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			log.Fatalf("open: %v", err)
		}
		defer f.Close()
		in = f
	}

	o := options{network: network, single: single, compression: c, maxDepth: maxDepth}
	if err := convert(os.Stdout, in, o); err != nil {
		slog.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}

func logLevel(verbose int) slog.Level {
	switch {
	case verbose >= 2:
		return slog.LevelDebug
	case verbose == 1:
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// convert writes the SNBT form of the NBT read from in to out, followed by
// a newline. Output is buffered and flushed even when decoding fails partway,
// so everything printed before the error is kept.
func convert(out io.Writer, in io.Reader, o options) error {
	zr, err := compr.NewReader(in, o.compression)
	if err != nil {
		return err
	}
	defer zr.Close()
	slog.Info("reading input", "compression", zr.Compression)

	bw := bufio.NewWriterSize(out, 64<<10)
	opts := []snbt.Option{snbt.MaxDepth(o.maxDepth)}
	if o.single {
		opts = append(opts, snbt.SingleQuotes())
	}
	enc := snbt.NewEncoder(bw, opts...)
	if o.network {
		err = enc.EncodeNetwork(zr)
	} else {
		err = enc.Encode(zr)
	}
	if err == nil {
		err = bw.WriteByte('\n')
	}
	if ferr := bw.Flush(); err == nil {
		err = ferr
	}
	return err
}

// httpListenAndServe exists to facilitate testing/mocking if desired.
var httpListenAndServe = func(addr string, h http.Handler) error {
	return http.ListenAndServe(addr, h)
}
