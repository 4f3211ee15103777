package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/config"
	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/database"
	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/influxdb"
	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/logging"
	"github.com/nerrad567/iot-device-sdk/internal/infrastructure/mqtt"
	"github.com/nerrad567/iot-device-sdk/internal/journal"
	"github.com/nerrad567/iot-device-sdk/internal/metrics"
	"github.com/nerrad567/iot-device-sdk/internal/rrclient"
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
	"github.com/nerrad567/iot-device-sdk/internal/services/identity"
	"github.com/nerrad567/iot-device-sdk/internal/services/jobs"
	"github.com/nerrad567/iot-device-sdk/internal/services/shadow"
	"github.com/nerrad567/iot-device-sdk/migrations"
)

const shutdownTimeout = 5 * time.Second

// app holds the connections opened for one command. Close releases them
// in reverse order.
type app struct {
	cfg *config.Config
	log *logging.Logger

	mqtt   *mqtt.Client
	rr     *rrclient.Client
	db     *database.DB
	influx *influxdb.Client

	observers servicemodel.Observers
	closers   []func()
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flags.thingName != "" {
		cfg.Thing.Name = flags.thingName
	}
	return cfg, nil
}

// requireThing returns the configured thing name or an error naming both
// ways to set it.
func requireThing(cfg *config.Config) (string, error) {
	if cfg.Thing.Name == "" {
		return "", errors.New("thing name is required: set thing.name or pass --thing")
	}
	return cfg.Thing.Name, nil
}

// newLogger writes records to the command's error stream so command
// output stays machine-readable.
func newLogger(cmd *cobra.Command, cfg *config.Config) *logging.Logger {
	return logging.NewWithWriter(cfg.Logging, version, cmd.ErrOrStderr())
}

// startApp connects to the broker and opens the enabled sinks.
//
// Parameters:
//   - ctx: Context for connection and migrations
//   - cfg: Loaded configuration
//   - log: Logger for every component
//
// Returns:
//   - *app: Connected application; call Close when done
//   - error: First connection failure; anything opened is closed
func startApp(ctx context.Context, cfg *config.Config, log *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if err := a.start(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) start(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	if cfg.Journal.Enabled {
		if err := a.openJournal(ctx); err != nil {
			return err
		}
	}

	if cfg.InfluxDB.Enabled {
		if err := a.openInfluxDB(ctx); err != nil {
			return err
		}
	}

	var err error
	a.mqtt, err = mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	a.mqtt.SetLogger(log)
	a.addCloser("MQTT", a.mqtt.Close)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	a.rr, err = rrclient.New(a.mqtt, rrclient.Options{
		MaxRequestResponseSubscriptions: cfg.RequestResponse.MaxRequestResponseSubscriptions,
		MaxStreamingSubscriptions:       cfg.RequestResponse.MaxStreamingSubscriptions,
		OperationTimeout:                cfg.GetOperationTimeout(),
		QoS:                             byte(cfg.MQTT.QoS),
		Logger:                          log,
	})
	if err != nil {
		return fmt.Errorf("creating request/response client: %w", err)
	}
	a.addCloser("request/response client", a.rr.Close)

	if cfg.Metrics.Enabled {
		if err := a.serveMetrics(); err != nil {
			return err
		}
	}

	return nil
}

func (a *app) openJournal(ctx context.Context) error {
	db, err := database.Open(ctx, database.Config{
		Path:        a.cfg.Journal.Path,
		WALMode:     a.cfg.Journal.WALMode,
		BusyTimeout: a.cfg.Journal.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	a.db = db
	a.addCloser("journal", db.Close)

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	recorder := journal.NewRecorder(journal.NewSQLiteRepository(db.DB), a.log)
	a.addCloser("journal recorder", recorder.Close)
	a.observers = append(a.observers, recorder)
	a.log.Info("journal opened", "path", db.Path())
	return nil
}

func (a *app) openInfluxDB(ctx context.Context) error {
	client, err := influxdb.Connect(ctx, a.cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		a.log.Error("InfluxDB write error", "error", err)
	})
	a.influx = client
	a.addCloser("InfluxDB", client.Close)

	a.observers = append(a.observers, metrics.NewInfluxObserver(client, a.cfg.Thing.Name))
	a.log.Info("InfluxDB connected",
		"url", a.cfg.InfluxDB.URL,
		"org", a.cfg.InfluxDB.Org,
		"bucket", a.cfg.InfluxDB.Bucket,
	)
	return nil
}

func (a *app) serveMetrics() error {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(a.rr)
	if err := collector.Register(reg); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	a.observers = append(a.observers, collector)

	srv := metrics.Serve(a.cfg.Metrics.ListenAddress, reg, a.log)
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("error stopping metrics server", "error", err)
		}
	})
	return nil
}

func (a *app) addCloser(name string, closeFn func() error) {
	a.closers = append(a.closers, func() {
		if err := closeFn(); err != nil {
			a.log.Error("error closing "+name, "error", err)
		}
	})
}

// Close releases everything startApp opened, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// clientOptions returns the options shared by every service client.
func (a *app) clientOptions() []servicemodel.Option {
	return []servicemodel.Option{
		servicemodel.WithObserver(a.observers...),
		servicemodel.WithLogger(a.log),
	}
}

func (a *app) shadow() *shadow.Client {
	return shadow.NewClient(a.rr, a.clientOptions()...)
}

func (a *app) jobs() *jobs.Client {
	return jobs.NewClient(a.rr, a.clientOptions()...)
}

func (a *app) identity() *identity.Client {
	return identity.NewClient(a.rr, a.clientOptions()...)
}

// withApp loads the configuration, starts the app and runs fn with the
// thing name. The app is closed when fn returns.
func withApp(cmd *cobra.Command, flags *globalFlags, needThing bool, fn func(ctx context.Context, a *app, thing string) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	thing := cfg.Thing.Name
	if needThing {
		if thing, err = requireThing(cfg); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	a, err := startApp(ctx, cfg, newLogger(cmd, cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a, thing)
}
