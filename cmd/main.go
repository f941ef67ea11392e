// @title           gridreplay API
// @version         1.0
// @description     Replays smart-grid telemetry row by row and annotates each row with an energy-management decision.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "gridreplay/docs"
	"gridreplay/internal/config"
	"gridreplay/internal/handlers"
	"gridreplay/internal/logger"
	"gridreplay/internal/publish"
	"gridreplay/internal/repository"
	"gridreplay/internal/repository/db"
	"gridreplay/internal/server"
	"gridreplay/internal/service"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultPort     = "8080"
	defaultDBPath   = "gridreplay.db"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: configs/config.yml)")
	flag.Parse()

	// load config before the logger so log.level applies
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level)
	log.Infow("config_loaded", "config", cfg.Redacted())

	// open DB
	dbPath := cfg.DB.Path
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", defaultDBPath)
		dbPath = defaultDBPath
	}
	conn, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// optional row publishing
	var sink publish.RowSink
	if cfg.MQTT.Enabled {
		mqttSink, err := publish.NewMQTTSink(cfg.MQTT)
		if err != nil {
			log.Fatalw("failed to connect to mqtt broker", "err", err, "host", cfg.MQTT.Host, "port", cfg.MQTT.Port)
		}
		defer mqttSink.Close()
		sink = mqttSink
		log.Infow("mqtt_connected", "host", cfg.MQTT.Host, "base_topic", cfg.MQTT.BaseTopic)
	}

	// wire dependencies
	repos := repository.NewRepository(conn)
	services, err := service.NewService(repos, service.Deps{
		Engine:   cfg.Engine.Config,
		Auth:     cfg.Auth,
		Playback: cfg.Playback,
		Sink:     sink,
		Log:      log,
	})
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go services.Playback.Run(ctx, cfg.Playback.Tick)

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, server.WithCORS(apiHandler.InitRoutes(), cfg.CORS.AllowedOrigins), log)

	waitForShutdown(cancel, srv, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler http.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = defaultPort
		}
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler); err != nil && err != http.ErrServerClosed {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop playback before draining requests
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
