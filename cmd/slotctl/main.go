package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/edirooss/taskslot/internal/redis"
	"github.com/edirooss/taskslot/pkg/fmtt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// CLI flags
	addr := flag.String("redis", "localhost:6379", "redis address")
	db := flag.Int("db", 0, "redis database")
	seed := flag.Int("seed", 0, "seed the slot set with N slots; no-op when already seeded")
	reset := flag.Int("reset", 0, "force the slot set back to N free slots")
	stat := flag.Bool("stat", false, "print free/capacity and exit")
	drain := flag.Bool("drain", false, "delete the free list; capacity stays seeded")
	debug := flag.Bool("debug", false, "dump full error diagnostics on failure")
	flag.Parse()

	if *seed == 0 && *reset == 0 && !*stat && !*drain {
		fmt.Println("Usage: ./slotctl [-redis=<addr>] -seed=<n> | -reset=<n> | -stat | -drain")
		os.Exit(1)
	}

	log := buildLogger()
	log = log.Named("main")

	fail := func(msg string, err error) {
		if *debug {
			fmtt.FdumpErrChain(os.Stderr, err)
		} else {
			fmtt.PrintErrChain(err)
		}
		log.Fatal(msg, zap.Error(err))
	}

	client := redis.NewClient(*addr, *db, log)
	defer client.Close()
	pool := redis.NewLeasePool(client, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case *seed > 0:
		if err := pool.Seed(ctx, *seed); err != nil {
			fail("seed failed", err)
		}
		log.Info("slot set ready", zap.Int("capacity", *seed))

	case *reset > 0:
		if err := pool.Reset(ctx, *reset); err != nil {
			fail("reset failed", err)
		}

	case *drain:
		if _, err := pool.Drain(ctx); err != nil {
			fail("drain failed", err)
		}

	case *stat:
		free, capacity, err := pool.Stat(ctx)
		if err != nil {
			fail("stat failed", err)
		}
		fmt.Printf("free %d / capacity %d (held %d)\n", free, capacity, capacity-free)
	}
}

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}
