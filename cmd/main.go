package main

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solar_mining/internal/config"
	"solar_mining/internal/controller"
	"solar_mining/internal/handlers"
	"solar_mining/internal/logger"
	"solar_mining/internal/observability"
	"solar_mining/internal/power"
	"solar_mining/internal/publisher"
	"solar_mining/internal/repository"
	"solar_mining/internal/repository/db"
	"solar_mining/internal/server"
	"solar_mining/internal/service"
	"solar_mining/internal/worker"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	envFileVar      = "SOLAR_MINING_ENV_FILE"
	defaultEnvFile  = ".env"
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	signingKeyBytes = 32
)

// @title                       Solar Mining Controller API
// @version                     1.0
// @description                 Starts and stops a crypto miner based on solar export.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	envFile := os.Getenv(envFileVar)
	if envFile == "" {
		envFile = defaultEnvFile
	}

	// settings are read once; the logger needs them before it exists
	loader := config.NewLoader(envFile, logger.NewNop())
	settings := loader.Settings()

	log := logger.Get(settings.LogLevel, settings.LogFile)
	defer func() { _ = log.Sync() }()
	loader = config.NewLoader(envFile, log)

	conn, err := db.InitDB(settings.DBPath)
	if err != nil {
		log.Fatalw("failed to init sqlite", "path", settings.DBPath, "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(conn)

	startCtx, startCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer startCancel()

	mqttClient := connectMQTT(startCtx, settings.MQTT, log)

	source, err := power.New(settings, mqttClient, log)
	if err != nil {
		log.Fatalw("invalid power source configuration", "source", settings.PowerSource, "err", err)
	}
	defer closeSource(source, log)

	if err := source.Authenticate(startCtx); err != nil {
		var authErr *power.AuthenticationError
		if errors.As(err, &authErr) {
			log.Fatalw("power source authentication failed", "source", authErr.Source, "err", authErr.Err)
		}
		log.Fatalw("power source unavailable", "err", err)
	}
	startCancel()

	cfg := loader.Snapshot()
	log.Infow("solar mining controller starting",
		"power_source", sourceName(settings.PowerSource),
		"invert_power_sign", settings.InvertPowerSign,
		"start_threshold_w", cfg.ExportStartThreshold,
		"stop_threshold_w", cfg.ExportStopThreshold,
		"override_enabled", cfg.OverrideEnabled,
		"override_state", cfg.OverrideState,
		"worker_command", strings.Join(cfg.WorkerCommand, " "),
		"http_port", settings.HTTPPort,
	)

	metrics := observability.NewMetrics()
	events := controller.EventSinks{repos.EventRepo, metrics}
	status := controller.StatusSinks{repos.StatusRepo, metrics}
	var pub *publisher.Publisher
	if mqttClient != nil {
		pub = publisher.New(mqttClient, settings.MQTT.TopicPrefix, log)
		events = append(events, pub)
		status = append(status, pub)
	}

	ctrl := controller.New(source, worker.NewExecLauncher(), events, repos.SessionRepo, log)
	runner := controller.NewRunner(ctrl, loader, status, log)
	services := service.NewService(repos, runner, signingKey(settings.SigningKey, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan controller.State, 1)
	go func() { loopDone <- services.Controller.Run(ctx) }()

	srv := server.New(settings.HTTPPort, handlers.NewHandler(services, metrics, log).InitRoutes())
	runHTTPServer(srv, log)

	waitForShutdown(cancel, srv, log)

	// the runner logs the final total once the miner is stopped
	<-loopDone
	if pub != nil {
		pub.Close()
	} else if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}

// connectMQTT returns a connected client, or nil when no broker is configured.
func connectMQTT(ctx context.Context, cfg config.MQTTSettings, log *logger.Logger) mqtt.Client {
	if cfg.Broker == "" {
		return nil
	}
	client := mqtt.NewClient(publisher.ClientOptions(cfg, log))
	if err := publisher.Connect(ctx, client); err != nil {
		log.Fatalw("failed to connect to mqtt broker", "broker", cfg.Broker, "err", err)
	}
	return client
}

func sourceName(s string) string {
	if s == "" {
		return config.SourcePowerwall
	}
	return s
}

func closeSource(src power.Source, log *logger.Logger) {
	c, ok := src.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warnw("failed to close power source", "err", err)
	}
}

// signingKey falls back to a random key, which invalidates issued tokens on restart.
func signingKey(configured string, log *logger.Logger) []byte {
	if configured != "" {
		return []byte(configured)
	}
	key := make([]byte, signingKeyBytes)
	if _, err := rand.Read(key); err != nil {
		log.Fatalw("failed to generate jwt signing key", "err", err)
	}
	log.Warnw("JWT_SIGNING_KEY not set; using a random key for this run")
	return key
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT or SIGTERM, then stops the control loop
// and drains the HTTP server.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down...")
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
