package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"dqx0.com/go/nanoweb/httpx"
	"dqx0.com/go/nanoweb/internal/obs"
	"dqx0.com/go/nanoweb/router"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	root := flag.String("root", ".", "static file root")
	timeout := flag.Duration("timeout", 5*time.Second, "socket read timeout")
	maxConns := flag.Int("max-conns", 0, "maximum concurrent connections (0 = unbounded)")
	cert := flag.String("cert", "", "TLS certificate file")
	key := flag.String("key", "", "TLS key file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	lvl := obs.Info
	if *verbose {
		lvl = obs.Debug
	}
	logger := obs.StdLogger{L: log.New(os.Stderr, "", log.LstdFlags), Min: lvl, Pref: "nanoweb "}
	meter := obs.NewCounterMeter()

	rt := router.New(router.WithStaticRoot(*root), router.WithLogger(logger))
	rt.Get("/echo", echo)
	rt.Post("/echo", echo)

	var runner liveRunner = httpx.NewDefaultAsyncRunner()
	if *maxConns > 0 {
		runner = httpx.NewBoundedAsyncRunner(*maxConns)
	}
	rt.Get("/metrics", func(*httpx.Request) (*httpx.Response, error) {
		return httpx.NewFixedLengthResponse(httpx.StatusOK, httpx.MimePlaintext, formatMetrics(meter.Snapshot(), runner)), nil
	})

	srv := &httpx.Server{
		Addr:              *addr,
		Handler:           rt,
		SocketReadTimeout: *timeout,
		Runner:            runner,
		Logger:            logger,
		Meter:             meter,
	}
	if *cert != "" || *key != "" {
		f, err := httpx.NewSecureSocketFactory(*cert, *key)
		if err != nil {
			log.Fatalf("tls: %v", err)
		}
		srv.SocketFactory = f
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logf(obs.Warn, "shutdown: %v", err)
	}
}

// echo describes the parsed request as plain text.
func echo(r *httpx.Request) (*httpx.Response, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", r.Method, r.URI, r.Proto)
	fmt.Fprintf(&b, "request-id: %s\n", r.RequestID)
	writeSorted(&b, "header", r.Headers)
	for _, k := range sortedKeys(r.Params) {
		for _, v := range r.Params[k] {
			fmt.Fprintf(&b, "param %s=%s\n", k, v)
		}
	}
	writeSorted(&b, "file", r.Files)
	for _, name := range r.Cookies.Names() {
		fmt.Fprintf(&b, "cookie %s=%s\n", name, r.Cookies.Read(name))
	}
	return httpx.NewFixedLengthResponse(httpx.StatusOK, httpx.MimePlaintext, b.String()), nil
}

func writeSorted(b *strings.Builder, label string, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s %s: %s\n", label, k, m[k])
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// liveRunner is an AsyncRunner that can list its live connections.
type liveRunner interface {
	httpx.AsyncRunner
	Connections() []*httpx.ConnStatus
}

// formatMetrics renders counters followed by one line per live connection.
func formatMetrics(snap map[string]int64, r liveRunner) string {
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s %d\n", k, snap[k])
	}
	if d, ok := r.(interface{ Started() uint64 }); ok {
		fmt.Fprintf(&b, "httpx.conn.started %d\n", d.Started())
	}
	fmt.Fprintf(&b, "httpx.conn.live %d\n", r.Running())
	for _, c := range r.Connections() {
		fmt.Fprintf(&b, "conn %s age=%s requests=%d\n", c.Remote, time.Since(c.Accepted).Round(time.Millisecond), c.Requests())
	}
	return b.String()
}
