// relaywf - workflow runtime for Relay devices
//
// This is the main entry point for the workflow runtime. It loads
// configuration, wires the optional journal and telemetry sinks, registers
// the bundled hello-world workflow, and serves websocket endpoints until a
// shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relaywf/relay-go/internal/infrastructure/config"
	"github.com/relaywf/relay-go/internal/infrastructure/logging"
	"github.com/relaywf/relay-go/internal/journal"
	"github.com/relaywf/relay-go/internal/telemetry"
	"github.com/relaywf/relay-go/resource"
	"github.com/relaywf/relay-go/server"
	"github.com/relaywf/relay-go/session"
	"github.com/relaywf/relay-go/wire"
	"github.com/relaywf/relay-go/workflow"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
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
	log.Info("starting relaywf",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the event journal (optional)
	var tap session.Tap
	if cfg.Journal.Enabled {
		j, err := journal.Open(journal.Config{
			Path:        cfg.Journal.Path,
			WALMode:     cfg.Journal.WALMode,
			BusyTimeout: cfg.Journal.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() {
			log.Info("closing journal")
			if closeErr := j.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		j.SetLogger(log)
		tap = j
		log.Info("journal opened", "path", cfg.Journal.Path)
	} else {
		log.Info("journal disabled")
	}

	// Connect dispatch telemetry (optional)
	var metrics session.Metrics
	if cfg.Telemetry.Enabled {
		tc, err := telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := tc.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		tc.SetLogger(log)
		metrics = tc
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	srv, err := server.New(server.Deps{
		Config:  cfg.Server,
		WS:      cfg.WebSocket,
		Logger:  log,
		Tap:     tap,
		Metrics: metrics,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := srv.Register("/hellowf", helloWorkflow(log)); err != nil {
		return fmt.Errorf("registering workflow: %w", err)
	}

	log.Info("initialisation complete, serving workflows")
	return srv.Start(ctx)
}

// getConfigPath returns the configuration file path.
// Uses RELAYWF_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RELAYWF_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// helloWorkflow builds the bundled demonstration workflow: greet the device
// that triggered it, vibrate on a button press, and terminate.
func helloWorkflow(log *logging.Logger) *workflow.Workflow {
	wf := workflow.New("hellowf")

	mustRegister := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("hellowf registration: %v", err))
		}
	}

	mustRegister(wf.OnStart(func(ctx context.Context, s *session.Session, e wire.Event) {
		trigger, _ := e["trigger"].(map[string]any)
		target, err := resource.TargetsFromTrigger(trigger)
		if err != nil {
			log.Error("resolving trigger target", "error", err)
			return
		}

		if err := s.StartInteraction(ctx, target, "hello interaction", nil); err != nil {
			log.Error("starting interaction", "error", err)
			return
		}

		if _, err := s.SayAndWait(ctx, target, "Hello. What is your name?", ""); err != nil {
			log.Error("saying hello", "error", err)
		}

		name, err := s.Listen(ctx, target, nil, 0)
		if err != nil {
			log.Error("listening", "error", err)
		} else if _, err := s.SayAndWait(ctx, target, "Nice to meet you, "+name, ""); err != nil {
			log.Error("greeting", "error", err)
		}

		if err := s.Terminate(); err != nil {
			log.Error("terminating", "error", err)
		}
	}))

	mustRegister(wf.OnButton("action", "single", func(ctx context.Context, s *session.Session, e wire.Event) {
		target := resource.Targets(e.String("source_uri"))
		if err := s.Vibrate(ctx, target, nil); err != nil {
			log.Error("vibrating", "error", err)
		}
	}))

	mustRegister(wf.OnStop(func(ctx context.Context, s *session.Session, e wire.Event) {
		log.Info("workflow stopped", "reason", e.String("reason"))
	}))

	return wf
}
