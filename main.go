package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JillVernus/cc-usageline/internal/cachestore"
	"github.com/JillVernus/cc-usageline/internal/config"
	"github.com/JillVernus/cc-usageline/internal/coordinator"
	"github.com/JillVernus/cc-usageline/internal/credentials"
	"github.com/JillVernus/cc-usageline/internal/fetch"
	"github.com/JillVernus/cc-usageline/internal/logger"
	"github.com/JillVernus/cc-usageline/internal/project"
	"github.com/JillVernus/cc-usageline/internal/server"
	"github.com/JillVernus/cc-usageline/internal/watch"
)

func main() {
	// 加载环境变量
	_ = godotenv.Load()

	envCfg := config.NewEnvConfig()

	// 初始化日志系统；失败时丢弃日志而不是污染 stdout
	logCfg := &logger.Config{
		LogDir:     envCfg.LogDir,
		LogFile:    envCfg.LogFile,
		MaxSize:    envCfg.LogMaxSize,
		MaxBackups: envCfg.LogMaxBackups,
		MaxAge:     envCfg.LogMaxAge,
		Compress:   envCfg.LogCompress,
		Console:    envCfg.LogToConsole,
	}
	if err := logger.Setup(logCfg); err != nil {
		log.SetOutput(io.Discard)
	}

	cmd := "get"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	store := cachestore.New(envCfg.CachePath)
	creds := credentials.NewFileSource(envCfg.CredentialsPath)
	client := fetch.NewClient(envCfg.UsageURL, creds, envCfg.FetchTimeout())
	coord := coordinator.New(store, client, envCfg.LockPath, client.Endpoint(), envCfg.FetchTimeout())

	switch cmd {
	case "get":
		runGet(coord, envCfg, args)
	case coordinator.RefreshCommand:
		runRefresh(coord)
	case "serve":
		runServe(coord, store, envCfg, args)
	case "watch":
		runWatch(store)
	case "version":
		fmt.Printf("cc-usageline %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
	default:
		fmt.Fprintf(os.Stderr, "usage: cc-usageline [get|refresh|serve|watch|version] [flags]\n")
		os.Exit(2)
	}
}

// runGet is the per-render-tick entry: never blocks on the network except on
// a true cold start, and always prints a best-effort result.
func runGet(coord *coordinator.Coordinator, envCfg *config.EnvConfig, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	ttl := fs.Int("ttl", envCfg.TTLSeconds, "cache freshness window in seconds")
	format := fs.String("format", "json", "output format: json or env")
	fs.Parse(args)

	res := coord.Get(time.Duration(*ttl) * time.Second)

	switch *format {
	case "env":
		fmt.Printf("pct=%s\n", res.Pct)
		fmt.Printf("weekly_pct=%s\n", res.WeeklyPct)
		fmt.Printf("resets_in=%s\n", res.ResetsIn)
		fmt.Printf("weekly_resets_in=%s\n", res.WeeklyResetsIn)
		fmt.Printf("stale=%s\n", res.Stale)
		fmt.Printf("valid=%s\n", res.Valid)
	default:
		printJSON(res)
	}
}

// runRefresh is the detached background worker: one fetch/build/write cycle,
// then drop the lock marker whatever happened.
func runRefresh(coord *coordinator.Coordinator) {
	defer coordinator.RemoveLock(coord.LockPath())
	coord.RefreshOnce()
}

func runServe(coord *coordinator.Coordinator, store *cachestore.Store, envCfg *config.EnvConfig, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", envCfg.Port, "listen port")
	fs.Parse(args)

	srv := server.New(coord, store, envCfg.TTL())
	if err := srv.Run(*port); err != nil {
		log.Fatalf("❌ Usage API failed: %v", err)
	}
}

func runWatch(store *cachestore.Store) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watch.Run(ctx.Done(), store, os.Stdout); err != nil {
		log.Fatalf("❌ Cache watch failed: %v", err)
	}
}

func printJSON(res project.Result) {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
	}
}
