package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/config"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/fakebackend"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[startup] level=warn .env not loaded: %v\n", err)
	}
	cfg := config.LoadFakeBackend(os.Getenv)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:           fakebackend.NewServer(cfg).Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("fakebackend_start port=%d shape=%s scrape=%t latency=%s\n", cfg.Port, cfg.Shape, cfg.Scrape, cfg.Latency)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("http shutdown error: %v\n", err)
	}
	log.Println("shutdown complete")
}
