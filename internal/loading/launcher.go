package loading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// finaliseTimeout bounds the session status write after a run finishes.
// The write uses a fresh context so it still lands during shutdown.
const finaliseTimeout = 10 * time.Second

// TrainRegistrar registers an inbound train with the external train service.
// Satisfied by trainservice.Client.
type TrainRegistrar interface {
	Register(ctx context.Context, payload map[string]any) error
}

// SessionTelemetry records finished loading sessions. Satisfied by the
// InfluxDB client.
type SessionTelemetry interface {
	WriteSessionCompleted(siding string, wagonsLoaded int, duration time.Duration)
}

// LaunchRequest describes one train arrival to process.
type LaunchRequest struct {
	// Siding identifies the siding whose pending wagons will be loaded.
	Siding string

	// MaxBags is the target bag count per wagon. Must be positive.
	MaxBags int

	// Payload is the raw train notification forwarded to the train service.
	Payload map[string]any
}

// Launcher validates train requests, registers them with the train service,
// and spawns loading runs as tracked background tasks.
//
// Launch returns as soon as the run is spawned; the HTTP caller never waits
// for loading to finish. Every spawned run is tracked so Wait can drain
// in-flight sessions during shutdown.
type Launcher struct {
	driver    *Driver
	sessions  SessionRepository
	trains    TrainRegistrar
	logger    Logger
	telemetry SessionTelemetry

	wg sync.WaitGroup

	mu      sync.Mutex
	baseCtx context.Context
	active  map[string]int
}

// NewLauncher creates a launcher. The session repository and train registrar
// are optional; a nil registrar skips registration, a nil repository skips
// session bookkeeping.
func NewLauncher(driver *Driver, sessions SessionRepository, trains TrainRegistrar, logger Logger) *Launcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Launcher{
		driver:   driver,
		sessions: sessions,
		trains:   trains,
		logger:   logger,
		baseCtx:  context.Background(),
		active:   make(map[string]int),
	}
}

// SetTelemetry wires the session telemetry sink. Optional.
func (l *Launcher) SetTelemetry(telemetry SessionTelemetry) {
	l.telemetry = telemetry
}

// Start sets the base context inherited by spawned loading runs. Cancelling
// it interrupts in-flight sessions at the next inter-bag pause.
func (l *Launcher) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baseCtx = ctx
}

// Launch validates the request, registers the train, records a session, and
// spawns the loading run. It returns the session ID without waiting for the
// run to finish.
//
// Validation and registration failures are synchronous: nothing is spawned
// and no wagon state changes. A second launch on a siding with a run still
// active is allowed but logged, since the guarded increments keep racing
// runs correct.
func (l *Launcher) Launch(ctx context.Context, req LaunchRequest) (string, error) {
	if req.Siding == "" {
		return "", ErrInvalidSiding
	}
	if req.MaxBags <= 0 {
		return "", ErrInvalidMaxBags
	}

	if l.trains != nil {
		if err := l.trains.Register(ctx, req.Payload); err != nil {
			return "", fmt.Errorf("registering train: %w", err)
		}
	}

	sessionID := uuid.NewString()
	if l.sessions != nil {
		session := &Session{
			ID:      sessionID,
			Siding:  req.Siding,
			MaxBags: req.MaxBags,
			Status:  SessionRunning,
		}
		if err := l.sessions.Create(ctx, session); err != nil {
			return "", fmt.Errorf("recording session: %w", err)
		}
	}

	l.mu.Lock()
	runCtx := l.baseCtx
	l.active[req.Siding]++
	if n := l.active[req.Siding]; n > 1 {
		l.logger.Warn("siding already has an active loading session",
			"siding", req.Siding, "active", n)
	}
	l.mu.Unlock()

	l.logger.Info("loading session launched",
		"session_id", sessionID, "siding", req.Siding, "max_bags", req.MaxBags)

	l.wg.Add(1)
	go l.runSession(runCtx, sessionID, req)

	return sessionID, nil
}

// Wait blocks until every spawned loading run has finished.
func (l *Launcher) Wait() {
	l.wg.Wait()
}

func (l *Launcher) runSession(ctx context.Context, sessionID string, req LaunchRequest) {
	defer l.wg.Done()
	defer func() {
		l.mu.Lock()
		l.active[req.Siding]--
		if l.active[req.Siding] <= 0 {
			delete(l.active, req.Siding)
		}
		l.mu.Unlock()
	}()

	started := time.Now()
	wagons, err := l.driver.Run(ctx, req.Siding, req.MaxBags)
	if err != nil {
		l.logger.Error("loading session failed",
			"session_id", sessionID, "siding", req.Siding, "error", err)
		l.finalise(sessionID, wagons, err)
		return
	}

	l.logger.Info("loading session completed",
		"session_id", sessionID, "siding", req.Siding, "wagons", wagons)
	if l.telemetry != nil {
		l.telemetry.WriteSessionCompleted(req.Siding, wagons, time.Since(started))
	}
	l.finalise(sessionID, wagons, nil)
}

// finalise records the session outcome. It uses a fresh context so the write
// succeeds even when the base context was cancelled by shutdown.
func (l *Launcher) finalise(sessionID string, wagons int, runErr error) {
	if l.sessions == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finaliseTimeout)
	defer cancel()

	var err error
	if runErr != nil {
		err = l.sessions.MarkFailed(ctx, sessionID, runErr.Error())
	} else {
		err = l.sessions.MarkCompleted(ctx, sessionID, wagons)
	}
	if err != nil {
		l.logger.Error("failed to record session outcome",
			"session_id", sessionID, "error", err)
	}
}
