package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"driverdock/internal/auth"
	"driverdock/internal/catalog"
	"driverdock/internal/config"
	"driverdock/internal/db"
	"driverdock/internal/events"
	"driverdock/internal/handlers"
	"driverdock/internal/inventory"
	"driverdock/internal/locator"
	"driverdock/internal/middleware"
	"driverdock/internal/notify"
	"driverdock/internal/plugin"
	"driverdock/internal/provision"
)

func main() {
	cfg := config.Load()

	conn, err := db.Init(cfg.DBPath)
	if err != nil {
		log.Fatalf("❌ Database init failed: %v", err)
	}
	defer conn.Close()
	log.Printf("✅ Database connected (%s)", cfg.DBPath)

	bus := events.NewBus()

	// Artifact catalog: first parseable source wins. Without a catalog
	// the legacy download path cannot work, so this is fatal.
	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	cat, err := catalog.Load(loadCtx, nil, cfg.CatalogSources)
	cancel()
	if err != nil {
		log.Fatalf("❌ Catalog load failed: %v", err)
	}
	log.Printf("📚 Catalog loaded: %d models from %s", cat.Size(), cat.Source())

	loc := locator.New(nil, cfg.ArtifactBases)

	// Helper agent state is probed once per server session.
	gateway := plugin.NewGateway(cfg.PluginURL, cfg.PluginPage, nil)
	if cfg.PluginEnabled {
		probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if gateway.Refresh(probeCtx) {
			log.Printf("🔌 Helper agent detected at %s", cfg.PluginURL)
			bus.Publish(events.Event{
				Type: events.PluginOnline, Severity: events.SeverityInfo,
				Message: "Helper agent detected",
			})
		} else {
			log.Printf("🔌 No helper agent at %s; installs will redirect to %s", cfg.PluginURL, cfg.PluginPage)
		}
		cancel()
	}

	store := inventory.NewStore(conn)
	orch := provision.NewOrchestrator(conn, cat, loc, gateway, bus, cfg.PluginEnabled)

	authMgr := auth.NewManager(conn, cfg)
	if cfg.AuthEnabled {
		authMgr.CreateDefaultAdmin()
		authMgr.CleanupExpiredSessions()
	}

	dispatcher := notify.NewDispatcher(conn, bus, nil)
	dispatcher.Start()
	defer dispatcher.Stop()

	hub := handlers.NewProgressHub(bus)
	defer hub.CloseAll()

	scanH := handlers.NewScanHandlers(store, bus)
	installH := handlers.NewInstallHandler(orch, store)
	pluginH := handlers.NewPluginHandler(gateway, cfg.PluginEnabled)
	attemptsH := handlers.NewAttemptsHandler(conn)
	notifyH := handlers.NewNotificationHandlers(conn)
	versionH := handlers.NewVersionHandler(handlers.Version, "driverdock", "driverdock")

	limiter := middleware.NewRateLimiter(60, time.Minute)
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return limiter.Limit(authMgr.Middleware(h))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/api/version", handlers.GetVersion)
	mux.HandleFunc("/api/version/check", protected(versionH.CheckVersion))

	mux.HandleFunc("/api/auth/status", authMgr.Status)
	mux.HandleFunc("/api/login", limiter.Limit(authMgr.Login))
	mux.HandleFunc("/api/logout", authMgr.Logout)
	mux.HandleFunc("/api/auth/change-password", protected(authMgr.ChangePassword))

	mux.HandleFunc("/api/scan", protected(scanH.List))
	mux.HandleFunc("/api/scan-report", limiter.Limit(scanH.Ingest))
	mux.HandleFunc("/api/overrides", protected(scanH.Overrides))

	mux.HandleFunc("/api/install", protected(installH.Install))
	mux.HandleFunc("/api/plugin-status", protected(pluginH.Status))
	mux.HandleFunc("/api/attempts", protected(attemptsH.List))

	mux.HandleFunc("/api/notifications/services", protected(notifyH.Services))
	mux.HandleFunc("/api/notifications/rules", protected(notifyH.Rules))
	mux.HandleFunc("/api/notifications/history", protected(notifyH.History))

	mux.HandleFunc("/ws/progress", hub.HandleConnection)

	mux.HandleFunc("/dl/drivers", protected(installH.DownloadLink))
	mux.Handle("/publish/", handlers.PublishFiles(cfg.PublishDir))

	mux.HandleFunc("/", handlers.StaticFiles(cfg, authMgr))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Logging(middleware.CORS(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("🖨️ driverdock server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("⏳ Shutting down...")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Shutdown: %v", err)
	}
	log.Println("👋 Server stopped")
}
