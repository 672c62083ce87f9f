package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/medipi/hub/api"
	"example.com/medipi/hub/api/handlers"
	"example.com/medipi/hub/config"
	"example.com/medipi/hub/internal/bridge"
	"example.com/medipi/hub/internal/cache"
	"example.com/medipi/hub/internal/database"
	"example.com/medipi/hub/internal/repository"
	"example.com/medipi/hub/internal/service"
	"example.com/medipi/hub/internal/telemetry"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serve command flags
	disableNewRelic bool
	disableMQTT     bool
	serverPort      int
	gracefulTimeout int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Starts the hub API server that backs the care dashboard and bridges
the dispenser network over MQTT and Node-RED.

The server respects the configuration in config.yaml or specified via the --config flag.
It will gracefully shut down on receiving SIGINT or SIGTERM signals.`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Serve-specific flags
	serveCmd.Flags().BoolVar(&disableNewRelic, "disable-newrelic", false, "Disable New Relic monitoring")
	serveCmd.Flags().BoolVar(&disableMQTT, "disable-mqtt", false, "Disable the MQTT device bridge")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "Server port (overrides config file)")
	serveCmd.Flags().IntVar(&gracefulTimeout, "graceful-timeout", 30, "Graceful shutdown timeout in seconds")
}

// startServer initializes and starts the API server
func startServer() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override config with command line flags if provided
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}

	log.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"mqtt_enabled":     !disableMQTT,
		"newrelic_enabled": cfg.NewRelic.Enabled && !disableNewRelic,
	}).Info("Initializing service components...")

	// Initialize database with retry logic
	var db database.DB
	maxRetries := 5
	retryInterval := time.Second

	for i := 0; i < maxRetries; i++ {
		log.WithField("attempt", i+1).Info("Connecting to database...")
		db, err = database.Connect(cfg.Database)
		if err == nil {
			break
		}

		log.WithFields(logrus.Fields{
			"error":         err.Error(),
			"retry_attempt": i + 1,
			"max_retries":   maxRetries,
		}).Error("Failed to connect to database, retrying...")

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			// Exponential backoff
			retryInterval *= 2
		}
	}

	if err != nil {
		log.Fatalf("Failed to connect to database after %d attempts: %v", maxRetries, err)
	}

	log.Info("Successfully connected to database")
	defer func() {
		log.Info("Closing database connection...")
		if err := db.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing database connection")
		}
	}()

	// Initialize Redis cache client
	log.Info("Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		log.Info("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			log.WithField("error", err.Error()).Error("Error closing Redis connection")
		}
	}()

	// Initialize New Relic if enabled
	nrApp, nrErr := telemetry.InitNewRelic(cfg.NewRelic)
	if nrErr != nil {
		log.Warnf("Failed to initialize New Relic: %v", nrErr)
	}
	if disableNewRelic {
		nrApp = nil
	}

	// Create the Node-RED client
	log.Info("Initializing Node-RED client...")
	nodeRed := bridge.NewNodeRedClient(cfg.NodeRed, log)

	// Create repositories
	log.Info("Initializing repositories...")
	repo := repository.NewRepository(db)

	// Create service with configuration
	log.Info("Initializing service layer...")
	svc, err := service.NewService(service.ServiceConfig{
		Repository: repo,
		Cache:      redisClient,
		Syncer:     nodeRed,
		Logger:     log,
		SessionTTL: time.Duration(cfg.Session.TTLHours) * time.Hour,
	})
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}

	// Connect the MQTT device bridge
	var mqttBridge *bridge.MQTTBridge
	if !disableMQTT {
		log.Info("Connecting to MQTT broker...")
		mqttBridge, err = bridge.NewMQTTBridge(cfg.MQTT, svc, log)
		if err != nil {
			log.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
	}

	var discovery handlers.DiscoveryRegistry = emptyDiscovery{}
	if mqttBridge != nil {
		discovery = mqttBridge
	}

	// Create and initialize the server
	log.Info("Initializing API server...")
	server := api.NewServer(cfg, log, nrApp, svc, nodeRed, discovery)

	// Set up graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"port": cfg.Server.Port,
		}).Info("Starting server...")

		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-stop
	log.Infof("Received signal %s, shutting down gracefully...", sig.String())

	// Create a timeout context for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(gracefulTimeout)*time.Second)
	defer cancel()

	// Disconnect the device bridge first so no new log traffic reaches the
	// service while it drains
	if mqttBridge != nil {
		log.Info("Closing MQTT connection...")
		mqttBridge.Close()
	}

	// Shutdown service components
	log.Info("Shutting down service components...")
	if err := svc.Shutdown(); err != nil {
		log.Warnf("Service shutdown error: %v", err)
	}

	// Shutdown HTTP server
	log.Info("Shutting down HTTP server...")
	if err := server.Shutdown(ctx); err != nil {
		log.Warnf("Server shutdown error: %v", err)
	}

	log.Info("Server shutdown complete")
}

// emptyDiscovery stands in for the MQTT bridge when it is disabled
type emptyDiscovery struct{}

func (emptyDiscovery) Discovered() []*bridge.DiscoveredDispenser {
	return []*bridge.DiscoveredDispenser{}
}

func (emptyDiscovery) MarkRegistered(string) {}
