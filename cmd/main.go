package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kettle_protocol/internal/bus"
	"kettle_protocol/internal/handlers"
	"kettle_protocol/internal/logger"
	"kettle_protocol/internal/repository"
	"kettle_protocol/internal/server"
	"kettle_protocol/internal/service"

	"github.com/spf13/viper"
)

const mqttClientID = "kettle-protocol"

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// connect to the smart-home broker
	broker, err := openBroker()
	if err != nil {
		log.Fatalw("failed to connect mqtt broker", "err", err)
	}
	defer func() { _ = broker.Close() }()

	// protocol instance configuration
	cfg, err := protocolConfig()
	if err != nil {
		log.Fatalw("invalid kettle configuration", "err", err)
	}

	// wire dependencies
	repos := repository.NewRepository(db)
	services := service.NewService(repos, broker, cfg, viper.GetString("auth.signing_key"), log)
	apiHandler := handlers.NewHandler(services, log)

	// context for background components
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the keep-warm coordinator
	if err := services.Protocol.Start(ctx); err != nil {
		log.Fatalw("failed to start protocol coordinator", "err", err)
	}

	// start the slow-poll activity indicator
	go services.Run(ctx, service.DefaultIndicatorTick)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, services, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetDefault("kettle.max_minutes", service.DefaultMaxMinutes)
	viper.SetDefault("kettle.warm_value", service.DefaultWarmValue)
	viper.SetDefault("kettle.abort_statuses", service.DefaultAbortStatuses)
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return repository.InitDB(dbPath)
}

// openBroker connects to the MQTT broker carrying the statestream topics.
func openBroker() (*bus.Broker, error) {
	brokerURL := viper.GetString("mqtt.broker")
	base := viper.GetString("mqtt.base_topic")
	if base == "" {
		base = "home"
	}
	return bus.NewBroker(brokerURL, base, mqttClientID)
}

// protocolConfig assembles the per-instance protocol configuration.
func protocolConfig() (service.ProtocolConfig, error) {
	cfg := service.ProtocolConfig{
		EntryID:        viper.GetString("kettle.entry_id"),
		TempSensor:     viper.GetString("kettle.temp_sensor"),
		StatusEntity:   viper.GetString("kettle.status_sensor"),
		StartSwitch:    viper.GetString("kettle.start_switch"),
		KeepWarmSwitch: viper.GetString("kettle.keep_warm_switch"),
		MaxMinutes:     viper.GetInt("kettle.max_minutes"),
		WarmValue:      viper.GetString("kettle.warm_value"),
		AbortStatuses:  service.ParseAbortStatuses(viper.GetString("kettle.abort_statuses")),
	}
	if err := cfg.Validate(); err != nil {
		return service.ProtocolConfig{}, err
	}
	return cfg.WithDefaults(), nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")

	// stop the coordinator first so no further callbacks fire
	services.Protocol.Stop()

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
