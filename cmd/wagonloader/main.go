// Wagonloader Core - Railway Loading Scheduler
//
// This is the main entry point for the Wagonloader Core application.
// Wagonloader schedules grain bag loading across railway sidings:
//   - Accepts inbound train notifications over HTTP
//   - Registers trains with the upstream train service
//   - Drives per-siding loading sessions against the wagon store
//   - Streams loading progress to dashboards over WebSocket and MQTT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/grainline/wagonloader/migrations"

	"github.com/grainline/wagonloader/internal/api"
	"github.com/grainline/wagonloader/internal/dispatch"
	"github.com/grainline/wagonloader/internal/infrastructure/config"
	"github.com/grainline/wagonloader/internal/infrastructure/database"
	"github.com/grainline/wagonloader/internal/infrastructure/influxdb"
	"github.com/grainline/wagonloader/internal/infrastructure/logging"
	"github.com/grainline/wagonloader/internal/infrastructure/mqtt"
	"github.com/grainline/wagonloader/internal/loading"
	"github.com/grainline/wagonloader/internal/trainservice"
	"github.com/grainline/wagonloader/internal/wagon"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Wagonloader Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	wagonRepo := wagon.NewSQLiteRepository(db.DB)
	sessionRepo := loading.NewSQLiteSessionRepository(db.DB)
	dispatchRepo := dispatch.NewSQLiteRepository(db.DB)

	// Train service client
	trains := trainservice.NewClient(trainservice.Config{
		URL:     cfg.TrainService.URL,
		Timeout: cfg.GetTrainServiceTimeout(),
	})
	log.Info("train service client ready", "url", cfg.TrainService.URL)

	// Loading scheduler
	assigner := loading.NewAssigner(wagonRepo, cfg.Loading.WagonPrefix)
	driver := loading.NewDriver(wagonRepo, assigner, cfg.GetIncrementDelay(), log)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		driver.SetPublisher(mqttClient, mqtt.Topics{}.LoadingEvent)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		driver.SetTelemetry(influxClient)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Session launcher: validates train arrivals, registers with the train
	// service, then runs the loading driver in the background.
	launcher := loading.NewLauncher(driver, sessionRepo, trains, log)
	if influxClient != nil {
		launcher.SetTelemetry(influxClient)
	}
	launcher.Start(ctx)

	// API server
	server, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log,
		WagonRepo:    wagonRepo,
		Launcher:     launcher,
		SessionRepo:  sessionRepo,
		DispatchRepo: dispatchRepo,
		DB:           db,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Loading events reach dashboards through the server's WebSocket hub
	driver.SetBroadcaster(server.Hub())

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Let in-flight loading sessions finalise their records before the
	// deferred Close() calls tear down the infrastructure.
	launcher.Wait()

	log.Info("Wagonloader Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses WAGONLOADER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WAGONLOADER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
