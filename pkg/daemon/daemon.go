package daemon

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"xlogd/pkg/clock"
	"xlogd/pkg/config"
	"xlogd/pkg/control"
	"xlogd/pkg/ingest"
	"xlogd/pkg/queue"
	"xlogd/pkg/record"
	"xlogd/pkg/viewer"
	"xlogd/pkg/writer"
)

// Shutdown bounds. The queue gets drainWait to empty, checked every
// drainStep; the writer then gets ackWait to acknowledge its stop.
const (
	defaultDrainWait = 10 * time.Second
	defaultDrainStep = 100 * time.Millisecond
	defaultAckWait   = 10 * time.Second
)

// markerSource is the sentinel address lifecycle markers are attributed to.
const markerSource = "0.0.0.0"

// Daemon owns one complete xlogd instance: clock, normalizer, queue, writer,
// listener, optional redis control watcher, and the one-way stop flag.
// Everything hangs off this struct so tests can run isolated instances side
// by side.
type Daemon struct {
	cfg  *config.Config
	me   string
	log  zerolog.Logger
	clk  *clock.Clock
	norm *record.Normalizer
	q    *queue.Queue
	w    *writer.Writer
	l    *ingest.Listener

	drainWait time.Duration
	drainStep time.Duration
	ackWait   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	readyCh  chan struct{}
}

func New(cfg *config.Config, me string, log zerolog.Logger) *Daemon {
	d := &Daemon{
		cfg:       cfg,
		me:        me,
		log:       log,
		clk:       clock.New(),
		q:         queue.New(),
		drainWait: defaultDrainWait,
		drainStep: defaultDrainStep,
		ackWait:   defaultAckWait,
		stopCh:    make(chan struct{}),
		readyCh:   make(chan struct{}),
	}
	d.norm = record.NewNormalizer(d.clk)

	var view viewer.Viewer
	if cfg.Log.Verbose {
		view = d.buildViewer(cfg.Log.Viewer)
	}
	d.w = writer.New(writer.Options{
		Queue:        d.q,
		Clock:        d.clk,
		PathTemplate: cfg.Log.Path,
		Me:           me,
		Viewer:       view,
		Logger:       log.With().Str("component", "writer").Logger(),
		OnFatal: func(err error) {
			log.Error().Err(err).Msg("writer fatal, shutting down")
			d.RequestStop()
		},
	})
	d.l = ingest.NewListener(
		cfg.ListenAddr(), cfg.Server.IPPfx, d.norm, d.q, d.RequestStop,
		log.With().Str("component", "ingest").Logger(),
	)
	return d
}

// buildViewer resolves the configured viewer name. "console" is the only
// built-in; unknown names fall back to it rather than leaving verbose mode
// blind.
func (d *Daemon) buildViewer(name string) viewer.Viewer {
	if name != "" && name != "console" {
		d.log.Warn().Str("viewer", name).Msg("unknown viewer, using console")
	}
	return viewer.NewConsole()
}

// Start launches the writer and the listener and enqueues the begin marker.
func (d *Daemon) Start(ctx context.Context) error {
	d.log.Info().
		Str("addr", d.cfg.ListenAddr()).
		Str("log_path", d.cfg.Log.Path).
		Bool("verbose", d.cfg.Log.Verbose).
		Msg("starting")

	d.w.Start()
	d.enqueueMarker("begins")

	if err := d.l.Start(); err != nil {
		return fmt.Errorf("listener: %w", err)
	}
	if d.cfg.Redis.Address != "" {
		cw := control.NewWatcher(
			d.cfg.Redis.Address, d.cfg.Redis.Password, d.cfg.Redis.DB,
			d.cfg.Redis.Channel, d.RequestStop,
			d.log.With().Str("component", "control").Logger(),
		)
		cw.Start(ctx)
	}
	close(d.readyCh)
	return nil
}

// Ready is closed once the listener is accepting connections.
func (d *Daemon) Ready() <-chan struct{} {
	return d.readyCh
}

// Run drives the full lifecycle: start, block until a stop request or
// context cancellation, then the ordered shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		d.log.Warn().Msg("interrupted")
	case <-d.stopCh:
	}
	d.Shutdown()
	return nil
}

// RequestStop sets the process-wide stop flag. Idempotent and safe from any
// goroutine; the first call wins.
func (d *Daemon) RequestStop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// StopRequested is closed once a stop has been requested.
func (d *Daemon) StopRequested() <-chan struct{} {
	return d.stopCh
}

// Addr returns the listener's bound address.
func (d *Daemon) Addr() net.Addr {
	return d.l.Addr()
}

// Shutdown runs the drain-then-stop sequence, strictly ordered: stop
// accepting work, append the end marker, wait for the queue to drain, stop
// the writer and wait for its acknowledgement. Timeouts are reported but do
// not block exit; shutdown is best effort past the deadline.
func (d *Daemon) Shutdown() {
	d.log.Warn().Msg("shutting down")

	if err := d.l.Close(); err != nil {
		d.log.Error().Err(err).Msg("listener close failed")
	}

	d.enqueueMarker("ends")

	drained := false
	for waited := time.Duration(0); waited < d.drainWait; waited += d.drainStep {
		time.Sleep(d.drainStep)
		if d.q.Len() == 0 {
			drained = true
			break
		}
	}
	if !drained {
		d.log.Error().Int("pending", d.q.Len()).Msg("writer did not empty its queue")
	}

	d.w.Stop()
	select {
	case <-d.w.Stopped():
	case <-time.After(d.ackWait):
		d.log.Error().Msg("writer did not acknowledge stop request")
	}

	d.log.Info().
		Uint64("records", d.q.Pushed()).
		Uint64("connections", d.l.TotalConns()).
		Msg("stopped")
}

// enqueueMarker pushes a synthetic lifecycle record through the normal
// normalize path, so markers share the format and rotation logic of real
// records.
func (d *Daemon) enqueueMarker(what string) {
	msg := fmt.Sprintf("%s %s @ %s", d.me, what, time.Now().Format("2006-01-02 15:04:05"))
	line := markerSource + record.Delim +
		fmt.Sprintf(`{"_id": "----", "_si": "----", "_el": 0, "_sl": "_", "_msg": "%s"}`, msg)
	rec, err := d.norm.Normalize(line)
	if err != nil {
		d.log.Error().Err(err).Str("marker", what).Msg("marker record rejected")
		return
	}
	d.q.Push(rec)
}
