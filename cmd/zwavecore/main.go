// Z-Wave Core - event bridge between a Z-Wave driver daemon and MQTT.
//
// The driver publishes raw notifications and controller callbacks on the
// broker; the core queues them, keeps node and scene caches, tracks the
// controller command in progress and republishes every dispatched event.
// Optionally each event is also written to InfluxDB, to an on-disk journal
// and to the node history database, and streamed to WebSocket clients of
// the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/nerrad567/zwave-core/internal/api"
	"github.com/nerrad567/zwave-core/internal/bridges/ozw"
	"github.com/nerrad567/zwave-core/internal/infrastructure/config"
	"github.com/nerrad567/zwave-core/internal/infrastructure/database"
	"github.com/nerrad567/zwave-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/zwave-core/internal/infrastructure/logging"
	"github.com/nerrad567/zwave-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/zwave-core/internal/journal"
	"github.com/nerrad567/zwave-core/internal/nodestore"
	"github.com/nerrad567/zwave-core/internal/process"
	"github.com/nerrad567/zwave-core/internal/zwave"
	"github.com/nerrad567/zwave-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Z-Wave core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Node history database
	db, err := database.Open(cfg.Database)
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	nodes := nodestore.NewStore(db.DB)
	nodes.SetLogger(log.Component("nodestore"))
	if startErr := nodes.Start(); startErr != nil {
		return fmt.Errorf("starting node store: %w", startErr)
	}
	defer nodes.Stop()

	// MQTT
	topics := mqtt.NewTopics(cfg.ZWave.TopicPrefix, cfg.ZWave.DriverTopicPrefix)
	mqttClient, err := mqtt.Connect(cfg.MQTT, topics)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
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

	// #nosec G115 -- qos validated to 0-2 by config.Validate
	publishQoS := byte(cfg.ZWave.Publish.QoS)
	deliverers := zwave.MultiDeliverer{
		ozw.NewPublisher(ozw.PublisherOptions{
			MQTT:        mqttClient,
			Topics:      topics,
			QoS:         publishQoS,
			RetainNodes: cfg.ZWave.Publish.RetainNodeState,
		}),
		nodes,
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	var metrics *ozw.MetricsDeliverer
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
		metrics = ozw.NewMetricsDeliverer(influxClient)
		deliverers = append(deliverers, metrics)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Event journal (optional)
	if cfg.ZWave.Journal.Enabled {
		journalWriter, openErr := journal.Open(cfg.ZWave.Journal.Path)
		if openErr != nil {
			return fmt.Errorf("opening event journal: %w", openErr)
		}
		defer func() {
			log.Info("closing event journal", "events", journalWriter.Written())
			if closeErr := journalWriter.Close(); closeErr != nil {
				log.Error("error closing event journal", "error", closeErr)
			}
		}()
		deliverers = append(deliverers, journalWriter)
		log.Info("event journal enabled", "path", cfg.ZWave.Journal.Path)
	}

	// WebSocket event stream (with the HTTP API)
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
		go hub.Run(ctx)
		deliverers = append(deliverers, hub)
	}

	core := zwave.New(zwave.Options{
		Driver:         ozw.NewMQTTDriver(mqttClient, topics, publishQoS),
		Deliverer:      deliverers,
		Logger:         log.Component("zwave"),
		Commands:       commandTable(cfg.ZWave.Commands),
		QueueWarnDepth: cfg.ZWave.QueueWarnDepth,
	})

	bridgeOpts := ozw.BridgeOptions{
		Core:       core,
		MQTTClient: mqttClient,
		Topics:     topics,
		// #nosec G115 -- qos validated to 0-2 by config.Validate
		QoS:            byte(cfg.MQTT.QoS),
		Version:        version,
		HealthInterval: cfg.GetHealthInterval(),
		History:        nodes,
		Logger:         log.Component("bridge"),
	}
	if metrics != nil {
		bridgeOpts.Metrics = metrics
	}

	// Driver daemon (optional supervision)
	var driver *process.Supervisor
	if cfg.ZWave.Driver.Managed {
		driver = process.New(driverProcessConfig(cfg))
		driver.SetLogger(log.Component("driver"))
		bridgeOpts.DriverProcess = driver
	}

	bridge, err := ozw.NewBridge(bridgeOpts)
	if err != nil {
		return fmt.Errorf("creating Z-Wave bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting Z-Wave bridge: %w", err)
	}
	defer func() {
		log.Info("stopping Z-Wave bridge")
		bridge.Stop()
	}()

	// The bridge is subscribed before the daemon starts so its first
	// notifications are not missed.
	if driver != nil {
		if err := driver.Start(ctx); err != nil {
			return fmt.Errorf("starting driver daemon: %w", err)
		}
		defer func() {
			log.Info("stopping driver daemon")
			if stopErr := driver.Stop(); stopErr != nil {
				log.Error("error stopping driver daemon", "error", stopErr)
			}
		}()
		log.Info("driver daemon started", "binary", cfg.ZWave.Driver.Binary)
	}

	// HTTP API (optional)
	var apiServer *api.Server
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.Component("api"),
			Core:     core,
			History:  nodes,
			Hub:      hub,
			Version:  version,
		}
		if driver != nil {
			deps.Driver = driver
		}
		apiServer, err = api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: the API server closes, the driver
	// daemon stops, the bridge drains the queue, then the journal, InfluxDB, MQTT, node store
	// and database close.

	log.Info("Z-Wave core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ZWAVECORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ZWAVECORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// commandTable returns the driver's command enumeration in enum order,
// followed by the configured extra names sorted by name.
func commandTable(extra map[string]int) []zwave.CommandEntry {
	entries := zwave.DefaultCommands()
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		// #nosec G115 -- range validated to 0-255 by config.Validate
		entries = append(entries, zwave.CommandEntry{Name: name, Command: zwave.ControllerCommand(extra[name])})
	}
	return entries
}

// driverProcessConfig maps the zwave.driver section onto supervisor settings.
func driverProcessConfig(cfg *config.Config) process.Config {
	d := cfg.ZWave.Driver
	minBackoff, maxBackoff := cfg.DriverBackoff()
	return process.Config{
		Name:        process.DefaultName,
		Binary:      d.Binary,
		Args:        d.Args,
		Env:         d.Env,
		WorkDir:     d.WorkDir,
		MinBackoff:  minBackoff,
		MaxBackoff:  maxBackoff,
		MaxRestarts: d.MaxRestarts,
		StopTimeout: time.Duration(d.StopTimeout) * time.Second,
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - apiServer: API server to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}
