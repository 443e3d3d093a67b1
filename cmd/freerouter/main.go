package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openfreerouter/freerouter/internal/app"
)

// version is set at build time via -ldflags.
var version = "dev"

// runHealthCheck probes /health on the given address. Used as a container
// HEALTHCHECK since distroless images carry no curl.
func runHealthCheck(addr string) error {
	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "config file path (default: discovery)")
	healthcheck := flag.Bool("healthcheck", false, "probe the running server and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("freerouter", version)
		return
	}

	if *healthcheck {
		addr := os.Getenv("FREEROUTER_ADDR")
		if addr == "" {
			addr = "127.0.0.1:8402"
		}
		if err := runHealthCheck(addr); err != nil {
			os.Exit(1)
		}
		return
	}

	log.Printf("freerouter version %s", version)
	srv, err := app.NewServer(*configPath, version)
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	httpServer := &http.Server{
		Addr:              srv.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		WriteTimeout:      300 * time.Second, // long streaming responses
	}

	go func() {
		log.Printf("freerouter listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	// SIGHUP hot-reloads the config file, same as POST /reload-config.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			log.Printf("SIGHUP received, reloading configuration...")
			if err := srv.ReloadConfig(); err != nil {
				log.Printf("config reload error: %v (keeping current config)", err)
			}
		}
	}()

	// Graceful shutdown: drain in-flight requests, then close resources.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Printf("shutting down (draining in-flight requests)...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := srv.Close(); err != nil {
		log.Printf("server close error: %v", err)
	}
	log.Printf("shutdown complete")
}
