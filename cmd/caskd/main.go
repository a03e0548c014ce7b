package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/yonwoo9/caskdb"
)

func main() {
	addr := flag.String("addr", "", "listen address (default :8080)")
	dbPath := flag.String("db", "", "path to the database file (required unless set in config)")
	threshold := flag.Int64("threshold", 0, "compaction threshold in bytes")
	syncWrites := flag.Bool("sync", false, "fdatasync the log after every acknowledged write")
	compactInterval := flag.Duration("compact-interval", 0, "background compaction interval (0 disables)")
	configPath := flag.String("config", "", "config yaml (optional)")
	flag.Parse()

	if err := agent.Listen(agent.Options{}); err != nil {
		log.Printf("gops agent: %v", err)
	}

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	cfg.applyFlags(*addr, *dbPath, *threshold, *syncWrites, *compactInterval)
	if cfg.Path == "" {
		flag.Usage()
		os.Exit(2)
	}

	var opts []caskdb.Option
	if cfg.ThresholdBytes > 0 {
		opts = append(opts, caskdb.WithThreshold(cfg.ThresholdBytes))
	}
	if cfg.SyncWrites {
		opts = append(opts, caskdb.WithSyncWrites(true))
	}
	if cfg.CompactInterval > 0 {
		opts = append(opts, caskdb.WithCompactInterval(cfg.CompactInterval))
	}

	db, err := caskdb.Open(cfg.Path, opts...)
	if err != nil {
		log.Fatalf("open %s: %v", cfg.Path, err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(db),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("caskd listening on %s (db=%s)", cfg.Addr, cfg.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("close db: %v", err)
	}
}
