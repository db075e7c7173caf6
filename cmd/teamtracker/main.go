// Command teamtracker polls the companion server for team state snapshots
// and turns them into transition notifications, history and metrics.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/rustwatch/teamtracker/internal/api"
	"github.com/rustwatch/teamtracker/internal/config"
	"github.com/rustwatch/teamtracker/internal/influx"
	"github.com/rustwatch/teamtracker/internal/logging"
	"github.com/rustwatch/teamtracker/internal/monitor"
	"github.com/rustwatch/teamtracker/internal/notify"
	"github.com/rustwatch/teamtracker/internal/palette"
	"github.com/rustwatch/teamtracker/internal/poller"
	"github.com/rustwatch/teamtracker/internal/roster"
	"github.com/rustwatch/teamtracker/internal/storage"
)

const appName = "teamtracker"

func main() {
	configDir := flag.String("config", ".", "directory containing teamtracker.cfg.json")
	teamsFlag := flag.String("teams", "", "comma-separated team ids, overrides the config file")
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	sessionStart := time.Now()
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logs dir: %v\n", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(
		logging.LogFilePath(logsDir, appName, sessionStart),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	var graylogAddr string
	if viper.GetBool("graylog.enabled") {
		graylogAddr = viper.GetString("graylog.address")
	}

	logger, err := logging.Setup(logging.Options{
		Level:          viper.GetString("logLevel"),
		File:           logFile,
		GraylogAddress: graylogAddr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	logger.Info().Msg("Starting up...")

	trackerCfg := config.GetTrackerConfig()
	teams := trackerCfg.Teams
	if *teamsFlag != "" {
		teams = strings.Split(*teamsFlag, ",")
		for i := range teams {
			teams[i] = strings.TrimSpace(teams[i])
		}
	}
	if len(teams) == 0 {
		logger.Fatal().Msg("No teams configured, set tracker.teams or pass -teams")
	}

	backend, dbManager, err := createStorageBackend(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create storage backend")
	}
	if err := backend.Init(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage backend")
	}
	defer backend.Close()
	if dbManager != nil {
		defer dbManager.Close()
	}

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(); err != nil {
		logger.Warn().Err(err).Msg("Companion server healthcheck failed, polling anyway")
	}

	// Registration order is delivery order: colors are assigned before the
	// join is announced, transitions are persisted before metrics.
	sinks := []poller.Sink{
		palette.NewAssigner(backend, logger),
		storage.NewRecorder(backend, logger),
		notify.NewSink(buildNotifier(logger), trackerCfg.MapSize, logger),
	}

	var influxMgr *influx.Manager
	if viper.GetBool("influx.enabled") {
		influxMgr = influx.NewManager(logger, filepath.Join(logsDir, "influx_backup.gz"))
		if err := influxMgr.Connect(); err != nil {
			logger.Warn().Err(err).Msg("InfluxDB unavailable, presence metrics disabled")
			influxMgr = nil
		} else {
			sinks = append(sinks, influxMgr)
			defer influxMgr.Close()
		}
	}

	manager, err := poller.NewManager(poller.Config{
		Fetcher:  client,
		Sinks:    sinks,
		Interval: trackerCfg.PollInterval,
		RosterOptions: []roster.Option{
			roster.WithIdleThreshold(trackerCfg.IdleThreshold),
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create poller")
	}

	if viper.GetBool("monitor.enabled") {
		statusMonitor := monitor.NewService(
			manager,
			filepath.Join(logsDir, "status.txt"),
			viper.GetDuration("monitor.interval"),
			logger,
		)
		if err := statusMonitor.Start(); err != nil {
			logger.Warn().Err(err).Msg("Status monitor failed to start")
		} else {
			defer statusMonitor.Stop()
		}
	}

	for _, team := range teams {
		if team == "" {
			continue
		}
		if err := manager.Track(team); err != nil {
			logger.Error().Err(err).Str("team", team).Msg("Failed to track team")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Shutting down...")
	manager.Stop()
	logger.Info().Msg("Shutdown complete")
}

// buildNotifier returns the WebSocket pusher when configured, otherwise the
// log notifier.
func buildNotifier(logger zerolog.Logger) notify.Notifier {
	if !viper.GetBool("notify.websocket.enabled") {
		return notify.LogNotifier{Logger: logger}
	}

	pusher := notify.NewPusher(
		viper.GetString("notify.websocket.url"),
		viper.GetString("notify.websocket.secret"),
		logger,
	)
	if err := pusher.Dial(); err != nil {
		logger.Warn().Err(err).Msg("WebSocket notifier unavailable, falling back to log")
		return notify.LogNotifier{Logger: logger}
	}
	return pusher
}
