package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxelyard.dev/internal/chat"
	"voxelyard.dev/internal/contact"
	"voxelyard.dev/internal/metrics"
	persistlog "voxelyard.dev/internal/persistence/log"
	"voxelyard.dev/internal/sim/catalogs"
	"voxelyard.dev/internal/sim/ids"
	"voxelyard.dev/internal/sim/tuning"
	"voxelyard.dev/internal/sim/world"
	"voxelyard.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model (ticks, interactions, manifests)")
		sessionID  = flag.String("session", "", "session id (default: derived from start time)")

		chatAPIKey = flag.String("chat_api_key", "", "generative-language API key (or set VY_CHAT_API_KEY); empty runs chat in demo mode")
		chatModel  = flag.String("chat_model", chat.DefaultModel, "chat model")
		liveVoice  = flag.Bool("live_voice", false, "open the upstream live voice stream (needs an API key)")
		liveModel  = flag.String("live_model", chat.DefaultLiveModel, "live voice model")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	chatLogger := log.New(os.Stdout, "[chat] ", log.LstdFlags|log.Lmicroseconds)

	cat, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	session := strings.TrimSpace(*sessionID)
	if session == "" {
		session = "session_" + time.Now().UTC().Format("20060102T150405")
	}
	sessionDir := filepath.Join(*dataDir, "sessions", session)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		logger.Fatalf("session dir: %v", err)
	}

	// Optional read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(sessionDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		if err := idx.UpsertCatalogs(*configDir, cat, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mtr, err := metrics.New(reg)
	if err != nil {
		logger.Fatalf("metrics: %v", err)
	}
	if idx != nil {
		if err := metrics.RegisterIndexQueue(reg, idx.Stats); err != nil {
			logger.Fatalf("metrics: %v", err)
		}
	}

	tickLog := persistlog.NewTickLogger(sessionDir)
	auditLog := persistlog.NewAuditLogger(sessionDir)

	w, err := world.New(world.ConfigFromTuning(session, tune), cat,
		world.WithIDs(ids.UUID{}),
		world.WithTickLogger(multiTickLogger{a: tickLog, b: idx}),
		world.WithAuditLogger(multiAuditLogger{a: auditLog, b: idx}),
		world.WithMetrics(mtr),
	)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	// Released in reverse order when the world stops, so the index outlives
	// the loggers that feed it.
	if idx != nil {
		w.AttachResource("index", idx)
	}
	w.AttachResource("tick log", tickLog)
	w.AttachResource("audit log", auditLog)

	ctx, cancel := signalContext()
	defer cancel()

	key := strings.TrimSpace(*chatAPIKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("VY_CHAT_API_KEY"))
	}
	if key == "" {
		chatLogger.Printf("no API key; chat runs in demo mode")
	}
	relay := chat.NewRelay(chat.New(chat.Config{APIKey: key, Model: *chatModel}), 4, 30*time.Second)
	w.AttachResource("chat relay", relay)

	var recorder contact.Recorder
	if idx != nil {
		recorder = idx
	}
	wsOpts := ws.Options{
		Desk:    contact.Desk{Session: session, Contact: w.Config().Contact, Recorder: recorder},
		Relay:   relay,
		Metrics: mtr,
	}
	if *liveVoice {
		dctx, dcancel := context.WithTimeout(ctx, 10*time.Second)
		live, err := chat.DialLive(dctx, chat.LiveConfig{APIKey: key, Model: *liveModel})
		dcancel()
		if err != nil {
			chatLogger.Printf("live voice disabled: %v", err)
		} else {
			w.AttachResource("live voice", live)
			wsOpts.Voice = live
			chatLogger.Printf("live voice connected (%s)", *liveModel)
		}
	}

	wsSrv, err := ws.NewServer(w, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds), wsOpts)
	if err != nil {
		logger.Fatalf("ws: %v", err)
	}
	wsSrv.StartVoice()

	runDone := make(chan struct{})
	go func() {
		// EXIT from the player stops the world, which ends the process.
		defer close(runDone)
		defer cancel()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world stopped: %v", err)
		}
		logger.Printf("world %s stopped at tick %d", session, w.CurrentTick())
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	enableAdminHTTP := envBool("VY_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("VY_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP && idx != nil {
		// Local-only, reads the index rather than the live world.
		mux.HandleFunc("/admin/v1/manifests", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			subs, err := idx.Submissions(r.Context(), session)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"session": session, "manifests": subs})
		})
	} else {
		logger.Printf("admin endpoints disabled")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("session %s listening on %s (data=%s)", session, *addr, sessionDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	// Wait for Run to release resources before exiting.
	w.Stop()
	<-runDone
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
