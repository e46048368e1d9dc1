package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/bottler-outreach/internal/api"
	"github.com/ignite/bottler-outreach/internal/config"
	"github.com/ignite/bottler-outreach/internal/dispatch"
	"github.com/ignite/bottler-outreach/internal/draft"
	"github.com/ignite/bottler-outreach/internal/ingest"
	"github.com/ignite/bottler-outreach/internal/recipients"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Bottler Outreach Server (cmd/server/main.go)              ║")
	log.Println("║  Machine report ingestion and AI draft generation          ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Draft generator: Anthropic/OpenAI over HTTP, or Bedrock when the
	// report data must not leave the AWS account.
	var generator draft.Generator
	switch cfg.Generation.Provider {
	case "bedrock":
		generator, err = draft.NewBedrockGenerator(cfg.Generation)
	default:
		generator, err = draft.NewAIClient(cfg.Generation)
	}
	if err != nil {
		log.Fatalf("Failed to initialize %s generator: %v", cfg.Generation.Provider, err)
	}
	log.Printf("Draft generator: %s", cfg.Generation.Provider)

	// Redis backs recipient persistence and the provider quota guard.
	// Without it recipients live in memory and pacing falls back to
	// chunk delays alone.
	var recipientStore api.RecipientStore
	var limiter *draft.RateLimiter
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		store, err := recipients.NewStoreFromURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to connect recipient store: %v", err)
		}
		defer store.Close()
		recipientStore = store

		limiter, err = draft.NewRateLimiterFromURL(cfg.Redis.URL, cfg.Generation.RequestsPerMinute)
		if err != nil {
			log.Fatalf("Failed to connect rate limiter: %v", err)
		}
		defer limiter.Close()
	} else {
		log.Println("Redis disabled: recipients are in-memory, quota guard off")
		recipientStore = recipients.NewMemoryStore()
	}

	stateStore := draft.NewStateStore()
	orchestrator := draft.NewOrchestrator(
		generator,
		stateStore,
		limiter,
		cfg.Orchestrator.ChunkSize,
		cfg.Orchestrator.Delay(),
	)

	// SES dispatch is optional; the draft workflow works without it.
	var sender api.Dispatcher
	if cfg.SES.Enabled && cfg.SES.FromEmail != "" {
		s, err := dispatch.NewSender(context.Background(), cfg.SES)
		if err != nil {
			log.Fatalf("Failed to initialize SES sender: %v", err)
		}
		sender = s
		log.Printf("SES dispatch enabled from %s (%s)", cfg.SES.FromEmail, cfg.SES.Region)
	} else {
		log.Println("SES dispatch disabled")
	}

	handlers := api.NewHandlers(ingest.NewCSVParser(), stateStore, orchestrator, recipientStore, sender)
	server := api.NewServer(cfg.Server, handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
