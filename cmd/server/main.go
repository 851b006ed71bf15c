package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rivulet/internal/adapter"
	"rivulet/internal/adapter/local"
	"rivulet/internal/auth"
	"rivulet/internal/config"
	"rivulet/internal/db"
	"rivulet/internal/engine"
	"rivulet/internal/handler"
	transport "rivulet/internal/http"
	"rivulet/internal/logger"
	"rivulet/internal/scheduler"
	"rivulet/internal/snowflake"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.Init(logger.ParseLevel(cfg.LogLevel))

	if cfg.Token == "" {
		log.Fatal("RIVULET_TOKEN is required")
	}
	if err := snowflake.Init(1); err != nil {
		log.Fatalf("init snowflake: %v", err)
	}

	dbConn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer dbConn.Close()

	var localAdapter *local.Local
	adapters := make([]adapter.Adapter, 0, len(cfg.Adapters))
	for _, ac := range cfg.Adapters {
		a, err := buildAdapter(ac, dbConn)
		if err != nil {
			log.Fatalf("build adapter: %v", err)
		}
		if l, ok := a.(*local.Local); ok {
			localAdapter = l
		}
		adapters = append(adapters, a)
	}

	registry, err := adapter.NewRegistry(adapters...)
	if err != nil {
		log.Fatalf("build registry: %v", err)
	}

	eng := engine.New(registry)
	authorizer := auth.NewStaticAuthorizer(cfg.Token, cfg.UserID)
	router := transport.NewRouter(handler.NewMicrosubHandler(eng), authorizer)

	var sched *scheduler.Scheduler
	if localAdapter != nil {
		sched = scheduler.New(localAdapter, 15*time.Minute)
		sched.Start()
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		if sched != nil {
			sched.Stop()
		}
		os.Exit(0)
	}()

	if err := router.Start(cfg.Addr); err != nil {
		log.Fatalf("start server: %v", err)
	}
}

func buildAdapter(ac config.AdapterConfig, dbConn *sql.DB) (adapter.Adapter, error) {
	switch ac.ID {
	case local.ID:
		return local.New(dbConn, local.WithPriority(ac.Priority)), nil
	default:
		return nil, fmt.Errorf("unknown adapter id %q", ac.ID)
	}
}
