package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edirooss/taskslot/internal/config"
	"github.com/edirooss/taskslot/internal/http/handler"
	mw "github.com/edirooss/taskslot/internal/http/middleware"
	"github.com/edirooss/taskslot/internal/redis"
	"github.com/edirooss/taskslot/internal/runner"
	"github.com/edirooss/taskslot/internal/service"
	"github.com/edirooss/taskslot/internal/slotpool"
	"github.com/edirooss/taskslot/internal/slottrace"
	"github.com/edirooss/taskslot/internal/soak"
	"github.com/edirooss/taskslot/internal/workload"
	"github.com/edirooss/taskslot/pkg/fmtt"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

var (
	configPath   = flag.String("config", "", "path to YAML config; defaults apply when empty")
	workloadName = flag.String("workload", "", "override the configured workload for a single run")
	soakMode     = flag.Bool("soak", false, "run cadences until interrupted and serve the status API")
	listMode     = flag.Bool("list", false, "list workloads and exit")
)

func init() {
	// Handle version display
	handleVersion()
}

func main() {
	// Read env
	isDev := os.Getenv("ENV") == "dev"

	if *listMode {
		for _, w := range workload.All() {
			fmt.Printf("%-16s %s\n", w.Name, w.Desc)
		}
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workloadName != "" {
		cfg.Workload = *workloadName
	}

	// Create Zap logger
	log := buildLogger(isDev)
	defer log.Sync()
	log = log.Named("main")

	// Cancelled on SIGINT/SIGTERM; everything blocking hangs off this.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := runner.New(cfg.Backend, cfg.Workers)
	if err != nil {
		log.Fatal("backend selection failed", zap.Error(err))
	}

	slots, cleanup, err := buildSlotSource(ctx, cfg, log)
	if err != nil {
		log.Fatal("slot source construction failed", zap.Error(err))
	}
	defer cleanup()

	journal := slottrace.NewJournal(slots.Capacity())

	if *soakMode {
		runSoak(ctx, cfg, isDev, log, backend, slots, journal)
		return
	}

	rep, err := workload.Run(ctx, cfg.Workload, workload.Params{
		Backend: backend,
		Slots:   slots,
		Log:     log,
		Journal: journal,
		Run:     1,
		Unit:    cfg.Unit.Std(),
		Pace:    rate.Limit(cfg.Pace),
	})
	if err != nil {
		fmtt.PrintErrChain(err)
		log.Fatal("run failed", zap.String("workload", cfg.Workload), zap.Error(err))
	}
	log.Info("run complete",
		zap.String("workload", rep.Workload),
		zap.Int64("iterations", rep.Iterations),
		zap.Int64("peak_held", rep.PeakHeld),
		zap.Duration("elapsed", rep.Elapsed),
	)
}

// runSoak keeps cadences firing and serves the status API until ctx ends.
func runSoak(ctx context.Context, cfg *config.Config, isDev bool, log *zap.Logger, backend runner.Backend, slots slotpool.Source, journal *slottrace.Journal) {
	sk := soak.New(log, backend, slots, journal, soak.Options{
		Unit: cfg.Unit.Std(),
		Pace: rate.Limit(cfg.Pace),
	})
	for _, c := range cfg.Soak.Cadences {
		if _, err := sk.AddCadence(soak.Cadence{Workload: c.Workload, Every: c.Every.Std()}); err != nil {
			log.Fatal("cadence registration failed", zap.String("workload", c.Workload), zap.Error(err))
		}
	}
	if len(cfg.Soak.Cadences) == 0 {
		// No cadences configured: keep the configured workload running.
		if _, err := sk.AddCadence(soak.Cadence{Workload: cfg.Workload, Every: 30 * time.Second}); err != nil {
			log.Fatal("cadence registration failed", zap.String("workload", cfg.Workload), zap.Error(err))
		}
	}

	statussvc := service.NewStatusService(log, sk, slots, service.StatusOptions{
		TTL:               cfg.Soak.StatusTTL.Std(),
		AllowStaleOnError: true,
	})

	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer() // Configure Gin's logger to use Zap
	r := gin.New()

	// Apply Gin middlewares
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID()) // Attach request ID for tracing; early in the chain so it's available everywhere

		r.Use(accessLog(log.Named("http"))) // Observability (logger, tracing)

		r.Use(mw.LimitInFlight(cfg.Soak.MaxInFlight)) // Bound concurrent handlers the same way runs bound slots
	}

	// Register route handlers
	{
		r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

		statushndlr := handler.NewStatusHandler(log, statussvc, journal)
		r.GET("/api/status", statushndlr.GetStatus)
		r.GET("/api/slots", statushndlr.GetSlots)
	}

	httpsrv := &http.Server{
		Addr:              cfg.Soak.ListenAddr + ":" + cfg.Soak.Port,
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		WriteTimeout:      15 * time.Second, // avoid forever-hangs on writes
		IdleTimeout:       60 * time.Second, // keep-alive cap
		MaxHeaderBytes:    1 << 20,          // 1MB cap
	}

	go func() {
		log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
		if err := httpsrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	if err := sk.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("soak loop failed", zap.Error(err))
	}

	shutctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpsrv.Shutdown(shutctx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	log.Info("server closed")
}

// buildSlotSource picks the pool implementation from config. The redis
// pool needs a seeded slot set; Seed is first-writer-wins so every
// process can call it on boot.
func buildSlotSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (slotpool.Source, func(), error) {
	switch cfg.Pool {
	case "cond":
		return slotpool.New(cfg.Capacity), func() {}, nil
	case "chan":
		return slotpool.NewChan(cfg.Capacity), func() {}, nil
	case "redis":
		client := redis.NewClient(cfg.RedisAddr, cfg.RedisDB, log)
		pool := redis.NewLeasePool(client, log)
		if err := pool.Seed(ctx, cfg.Capacity); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("seed slot set: %w", err)
		}
		if err := pool.Open(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("open slot set: %w", err)
		}
		return pool, func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown pool %q", cfg.Pool)
	}
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("taskslot %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// accessLog is a Gin middleware that records HTTP request/response details with Zap after handling.
func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		// collect all errors from Gin context
		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		// errors.Join returns nil if errs is empty
		joinedErr := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.String("request_id", mw.GetRequestID(c)),
		}
		if joinedErr != nil {
			fields = append(fields, zap.Error(joinedErr))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// helpers

func buildLogger(isDev bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	if isDev {
		logConfig.Level.SetLevel(zap.DebugLevel)
	} else {
		logConfig.Level.SetLevel(zap.InfoLevel)
	}
	return zap.Must(logConfig.Build())
}
