package loading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/grainline/wagonloader/internal/wagon"
)

// DefaultIncrementDelay is the pause between bag increments when none is
// configured. It models the physical loading rate of one crew per siding.
const DefaultIncrementDelay = 500 * time.Millisecond

// Logger defines the logging interface used by the loading components.
// It is satisfied by logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broadcaster is the interface for pushing loading events to WebSocket
// dashboard clients. Satisfied by the API hub.
type Broadcaster interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// Publisher is the interface for publishing loading events to external
// dashboard collaborators over MQTT.
type Publisher interface {
	// Publish sends a message to the specified MQTT topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Telemetry is the interface for recording loading-rate measurements.
// Satisfied by the InfluxDB client.
type Telemetry interface {
	// WriteBagLoaded records one loaded bag for a wagon.
	WriteBagLoaded(siding, wagonNumber string, count int)
}

// TopicBuilder returns the MQTT topic for a siding's loading events.
// Wired from the infrastructure mqtt package's topic scheme.
type TopicBuilder func(siding string) string

// WebSocket channels for loading events.
const (
	ChannelWagonStarted   = "wagon.started"
	ChannelWagonProgress  = "wagon.progress"
	ChannelWagonCompleted = "wagon.completed"
)

// Driver processes every pending wagon on a siding to its target bag count.
//
// Wagons are processed strictly sequentially in track-tower order. Each bag
// is a single guarded increment against the store; the driver pauses between
// increments so concurrent dashboards see loading progress at a realistic
// rate. A store failure aborts the run; every committed step is
// self-consistent, so a fresh run can safely resume from the durable counts.
//
// Thread Safety: Run is safe for concurrent use; concurrent runs on the same
// siding interleave through the store's conditional increments.
type Driver struct {
	repo     wagon.Repository
	assigner *Assigner
	delay    time.Duration
	logger   Logger

	// Optional collaborators; nil disables the corresponding notifications.
	hub       Broadcaster
	events    Publisher
	topic     TopicBuilder
	telemetry Telemetry
	qos       byte
}

// NewDriver creates a driver with the given inter-bag delay.
// A zero delay is valid (useful in tests); a negative delay falls back to
// DefaultIncrementDelay.
func NewDriver(repo wagon.Repository, assigner *Assigner, delay time.Duration, logger Logger) *Driver {
	if delay < 0 {
		delay = DefaultIncrementDelay
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Driver{
		repo:     repo,
		assigner: assigner,
		delay:    delay,
		logger:   logger,
		qos:      1,
	}
}

// SetBroadcaster wires the WebSocket hub for dashboard events.
func (d *Driver) SetBroadcaster(hub Broadcaster) {
	d.hub = hub
}

// SetPublisher wires the MQTT publisher and topic scheme for external
// dashboard collaborators.
func (d *Driver) SetPublisher(events Publisher, topic TopicBuilder) {
	d.events = events
	d.topic = topic
}

// SetTelemetry wires the loading-rate telemetry sink.
func (d *Driver) SetTelemetry(telemetry Telemetry) {
	d.telemetry = telemetry
}

// Run processes all currently-pending wagons on the siding to maxBags.
//
// It numbers any unnumbered pending wagons first, re-reads the pending list
// to pick up the new numbers, then loads each wagon in tower order. Returns
// the number of wagons this run finished processing.
//
// Zero pending wagons is not an error: the run logs and returns immediately.
// A store failure aborts the run and is returned to the caller; no retry
// happens here, since a fresh run is safe with progress committed per bag.
func (d *Driver) Run(ctx context.Context, siding string, maxBags int) (int, error) {
	if siding == "" {
		return 0, ErrInvalidSiding
	}
	if maxBags <= 0 {
		return 0, ErrInvalidMaxBags
	}

	d.logger.Info("loading started", "siding", siding, "max_bags", maxBags)

	pending, err := d.repo.ListPending(ctx, siding)
	if err != nil {
		return 0, fmt.Errorf("listing pending wagons: %w", err)
	}
	if len(pending) == 0 {
		d.logger.Warn("no pending wagons found", "siding", siding)
		return 0, nil
	}

	assigned, err := d.assigner.Assign(ctx, siding)
	if err != nil {
		return 0, fmt.Errorf("assigning wagon numbers: %w", err)
	}
	if assigned > 0 {
		d.logger.Info("wagon numbers assigned", "siding", siding, "count", assigned)
	}

	// Re-read to pick up newly-assigned numbers.
	pending, err = d.repo.ListPending(ctx, siding)
	if err != nil {
		return 0, fmt.Errorf("reloading pending wagons: %w", err)
	}

	loaded := 0
	for i := range pending {
		rec := &pending[i]
		if !rec.Numbered() {
			// Should not happen after assignment; skip rather than load an
			// unaddressable wagon.
			d.logger.Warn("pending wagon has no display number", "siding", siding, "id", rec.ID)
			continue
		}

		d.logger.Info("loading wagon", "siding", siding, "wagon", *rec.WagonNumber)
		if err := d.loadWagon(ctx, siding, *rec.WagonNumber, maxBags); err != nil {
			return loaded, fmt.Errorf("loading wagon %s: %w", *rec.WagonNumber, err)
		}
		loaded++
	}

	d.logger.Info("all pending wagons finished", "siding", siding, "wagons", loaded)
	return loaded, nil
}

// loadWagon drives a single wagon to maxBags, one guarded increment at a time.
//
// Step order per bag is fixed: increment, then (for the first bag) the start
// stamp, then (for the last bag) the completion stamp, then the pause. For
// maxBags == 1 both stamps are written, start first.
func (d *Driver) loadWagon(ctx context.Context, siding, wagonNumber string, maxBags int) error {
	for {
		count, err := d.repo.IncrementLoaded(ctx, siding, wagonNumber, maxBags)
		if errors.Is(err, wagon.ErrWagonNotPending) {
			// Already complete, removed, or another driver loaded the last
			// bag. Not an error; move to the next wagon.
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC().Truncate(time.Second)

		if count == 1 {
			if err := d.repo.MarkStarted(ctx, siding, wagonNumber, now); err != nil {
				return err
			}
			d.notify(ChannelWagonStarted, siding, wagonNumber, count, maxBags)
		}

		if count == maxBags {
			if err := d.repo.MarkCompleted(ctx, siding, wagonNumber, now); err != nil {
				return err
			}
		}

		d.logger.Info("bag loaded",
			"siding", siding,
			"wagon", wagonNumber,
			"loaded", count,
			"max_bags", maxBags,
		)
		d.notify(ChannelWagonProgress, siding, wagonNumber, count, maxBags)
		if d.telemetry != nil {
			d.telemetry.WriteBagLoaded(siding, wagonNumber, count)
		}

		if count == maxBags {
			d.notify(ChannelWagonCompleted, siding, wagonNumber, count, maxBags)
			return nil
		}

		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return fmt.Errorf("loading interrupted: %w", ctx.Err())
		}
	}
}

// notify pushes a loading event to the WebSocket hub and the MQTT topic.
// Both collaborators are optional and best-effort: a publish failure is
// logged, never propagated into the loading loop.
func (d *Driver) notify(channel, siding, wagonNumber string, count, maxBags int) {
	payload := map[string]any{
		"event":    channel,
		"siding":   siding,
		"wagon":    wagonNumber,
		"loaded":   count,
		"max_bags": maxBags,
	}

	if d.hub != nil {
		d.hub.Broadcast(channel, payload)
	}

	if d.events != nil && d.topic != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			d.logger.Error("failed to marshal loading event", "error", err)
			return
		}
		if err := d.events.Publish(d.topic(siding), data, d.qos, false); err != nil {
			d.logger.Warn("failed to publish loading event", "siding", siding, "error", err)
		}
	}
}
