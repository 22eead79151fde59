package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"payanchor/internal/config"
	"payanchor/internal/content"
	"payanchor/internal/db"
	"payanchor/internal/reconciler"
	"payanchor/internal/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	r := &reconciler.Reconciler{
		Records: store.New(pool),
		Content: content.NewGateway(cfg.Content.APIURL),
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		log.Printf("shutting down, abandoning un-acked work for redelivery")
		cancel()
	}()

	log.Printf("reconciler started (stream=%s topic=%s)", cfg.EventStream.WSEndpoint, cfg.EventStream.Topic)
	r.Run(ctx, cfg.EventStream.WSEndpoint, cfg.EventStream.Topic)
}
