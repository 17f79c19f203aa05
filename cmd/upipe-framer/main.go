// Command upipe-framer reads a raw MPEG-2 elementary stream, frames it into
// discrete access units, records every emitted frame to a sqlite index,
// serves prometheus metrics over HTTP, and optionally mounts a read-only
// debug filesystem over the emitted frames.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/studoret/upipe/internal/config"
	"github.com/studoret/upipe/internal/dict"
	"github.com/studoret/upipe/internal/framer"
	"github.com/studoret/upipe/internal/frameindex"
	"github.com/studoret/upipe/internal/framerfs"
)

// pushChunkSize deliberately fragments the input into pieces far smaller
// than a typical coded frame, so frames routinely span several pushes and
// the assembly loop's fragmentation-invariant property is exercised by
// ordinary operation rather than only by its tests.
const pushChunkSize = 188

const maxMetricsConns = 8

func main() {
	envFile := flag.String("env", "", "optional .env file to pre-load before reading the environment")
	input := flag.String("input", "", "path to a raw MPEG-2 elementary stream (default: stdin)")
	flag.Parse()

	if *envFile != "" {
		if err := config.LoadEnvFile(*envFile); err != nil {
			log.Fatalf("upipe-framer: load env file: %v", err)
		}
	}
	cfg := config.Load()

	index, err := frameindex.Open(cfg.FrameIndexPath)
	if err != nil {
		log.Fatalf("upipe-framer: open frame index: %v", err)
	}
	defer index.Close()

	store := newFrameStore(index)
	mgr := dict.NewMgr(8, nil, 0, 0)

	reg := prometheus.NewRegistry()
	metrics := framer.NewMetrics(reg)
	limiter := rate.NewLimiter(rate.Limit(cfg.WarnLogPerSecond), cfg.WarnLogPerSecond)

	events := framer.NewMultiSink(metrics, framer.EventSinkFunc(func(ev framer.Event) {
		log.Printf("upipe-framer: event=%s", ev.Kind)
	}))

	fr := framer.New(mgr, store, events,
		framer.WithMetrics(metrics),
		framer.WithLogLimiter(limiter),
		framer.WithSequenceInsertion(cfg.InsertSequence),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go serveMetrics(ctx, cfg.ListenAddr, reg)

	if cfg.MountPoint != "" {
		unmount, err := framerfs.MountBackground(ctx, cfg.MountPoint, store)
		if err != nil {
			log.Printf("upipe-framer: mount framerfs: %v", err)
		} else {
			log.Printf("upipe-framer: framerfs mounted at %s", cfg.MountPoint)
			defer unmount()
		}
	}

	if err := runFraming(fr, *input); err != nil {
		log.Fatalf("upipe-framer: %v", err)
	}

	n, err := index.Count()
	if err != nil {
		log.Printf("upipe-framer: index count: %v", err)
	} else {
		log.Printf("upipe-framer: done, %d frames indexed (session %s)", n, index.SessionID())
	}
}

func runFraming(fr *framer.Framer, path string) error {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	buf := make([]byte, pushChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			fr.PushBuffer(buf[:n], &framer.BufferMeta{})
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("upipe-framer: listen %s: %v", addr, err)
		return
	}
	ln = netutil.LimitListener(ln, maxMetricsConns)

	srv := &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("upipe-framer: metrics listening on %s", addr)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Printf("upipe-framer: metrics server: %v", err)
	}
}
