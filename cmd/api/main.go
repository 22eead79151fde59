package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payanchor/internal/config"
	"payanchor/internal/content"
	"payanchor/internal/db"
	internalhttp "payanchor/internal/http"
	"payanchor/internal/ledger"
	"payanchor/internal/services"
	"payanchor/internal/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	st := store.New(pool)
	gateway, err := ledger.NewMultiClient(cfg.Ledger.GatewayURLs, cfg.Ledger.FailoverThreshold)
	if err != nil {
		log.Fatalf("ledger gateway setup failed: %v", err)
	}
	if err := gateway.Health(ctx); err != nil {
		log.Printf("ledger gateway health check failed: %v", err)
	}
	contentGateway := content.NewGateway(cfg.Content.APIURL)

	submitter := &services.Submitter{
		Records: st,
		Content: contentGateway,
		Ledger:  gateway,
	}
	query := &services.Query{Records: st}

	h := internalhttp.NewHandler(submitter, query)
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("api listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
