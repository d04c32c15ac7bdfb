// The driverdock agent is the privileged helper that performs actual
// driver installs. It listens on loopback only; the dashboard server is
// its sole client.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

const version = "1.0.0"

func main() {
	listen := flag.String("listen", "127.0.0.1:8081", "Listen address (loopback only)")
	serverURL := flag.String("server", "http://localhost:8080", "driverdock server URL for driver downloads")
	workDir := flag.String("workdir", filepath.Join(os.TempDir(), "driverdock-agent"), "Working directory for driver bundles")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("driverdock-agent v%s\n", version)
		os.Exit(0)
	}

	log.SetFlags(log.Ltime | log.Ldate)
	log.Printf("🚀 driverdock agent v%s starting...", version)

	if err := os.MkdirAll(*workDir, 0o755); err != nil {
		log.Fatalf("❌ Cannot create work directory %s: %v", *workDir, err)
	}
	log.Printf("✓ Work directory: %s", *workDir)
	log.Printf("✓ Server: %s", *serverURL)

	installer := NewInstaller(*serverURL, *workDir, nil, nil)
	srv := &http.Server{
		Addr:         *listen,
		Handler:      newMux(installer),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // driver installs are slow
	}

	go func() {
		log.Printf("🔌 Listening on %s", *listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Agent error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("⏹️  Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	log.Println("👋 Agent stopped")
}
