package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/relaywf/relay-go/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second

	// millisecondsPerSecond converts seconds to milliseconds for the InfluxDB API.
	millisecondsPerSecond = 1000
)

// Sentinel errors for telemetry lifecycle.
var (
	// ErrDisabled is returned by Connect when telemetry is disabled in config.
	ErrDisabled = errors.New("telemetry: disabled in configuration")

	// ErrConnectionFailed is returned when the InfluxDB server is unreachable.
	ErrConnectionFailed = errors.New("telemetry: connection failed")
)

// Logger receives diagnostics for async write failures.
type Logger interface {
	Warn(msg string, args ...any)
}

// Client writes dispatch telemetry to InfluxDB. It implements the session
// metrics interface: all writes are non-blocking and batched, so recording a
// point never holds up the read loop.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.TelemetryConfig

	connected bool
	mu        sync.RWMutex

	logger Logger
}

// Connect establishes a connection to the InfluxDB server.
//
// The server is pinged before the client is returned, so a misconfigured URL
// fails at startup rather than silently dropping points.
func Connect(cfg config.TelemetryConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	c := &Client{
		client:    client,
		writeAPI:  writeAPI,
		cfg:       cfg,
		connected: true,
	}

	go c.handleWriteErrors(writeAPI.Errors())

	return c, nil
}

// SetLogger attaches a logger for async write failure diagnostics.
func (c *Client) SetLogger(l Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
}

// handleWriteErrors drains the async error channel from the write API.
func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.mu.RLock()
		logger := c.logger
		c.mu.RUnlock()
		if logger != nil {
			logger.Warn("telemetry write failed", "error", err)
		}
	}
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close flushes pending points and shuts the client down.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// SessionOpened records a session start.
func (c *Client) SessionOpened(workflow string) {
	c.write(influxdb2.NewPoint("sessions",
		map[string]string{"workflow": workflow, "state": "opened"},
		map[string]any{"count": 1},
		time.Now(),
	))
}

// SessionClosed records a session end.
func (c *Client) SessionClosed(workflow string) {
	c.write(influxdb2.NewPoint("sessions",
		map[string]string{"workflow": workflow, "state": "closed"},
		map[string]any{"count": 1},
		time.Now(),
	))
}

// EventRouted records one dispatch decision: which route an inbound event
// took (response, wait, handler, unknown_id, unhandled).
func (c *Client) EventRouted(workflow, eventType, route string) {
	c.write(influxdb2.NewPoint("dispatch",
		map[string]string{"workflow": workflow, "event_type": eventType, "route": route},
		map[string]any{"count": 1},
		time.Now(),
	))
}

// HandlerDuration records one handler execution.
func (c *Client) HandlerDuration(workflow, eventType string, d time.Duration, failed bool) {
	c.write(influxdb2.NewPoint("handlers",
		map[string]string{
			"workflow":   workflow,
			"event_type": eventType,
			"outcome":    outcome(failed),
		},
		map[string]any{"duration_ms": float64(d.Microseconds()) / 1000.0},
		time.Now(),
	))
}

func outcome(failed bool) string {
	if failed {
		return "panic"
	}
	return "ok"
}

func (c *Client) write(p *write.Point) {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	if !connected {
		return
	}
	c.writeAPI.WritePoint(p)
}
