package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"xlogd/pkg/clock"
	"xlogd/pkg/queue"
	"xlogd/pkg/record"
	"xlogd/pkg/viewer"
)

// defaultPoll bounds the queue wait so the loop keeps re-checking the stop
// flag and the rotation cadence even when idle.
const defaultPoll = 50 * time.Millisecond

// Writer is the single consumer of the record queue. It owns the current
// output file and all rotation state; no other goroutine touches either. The
// only exit path is a stop request, which closes the open file and signals
// the stopped channel.
type Writer struct {
	q      *queue.Queue
	clk    *clock.Clock
	tmpl   string // path template; empty disables persistence
	me     string // process identity for ~me~
	view   viewer.Viewer
	log    zerolog.Logger
	poll   time.Duration
	dots   io.Writer // progress dots when no viewer is attached

	// onFatal is called when the writer can no longer persist and there is
	// no console fallback. The daemon uses it to trigger shutdown.
	onFatal func(error)

	stop    atomic.Bool
	stopped chan struct{}

	// Rotation state. Writer goroutine only.
	curPath    string
	file       *os.File
	chkEpoch   float64
	sinceFlush int
}

type Options struct {
	Queue        *queue.Queue
	Clock        *clock.Clock
	PathTemplate string
	Me           string
	Viewer       viewer.Viewer // nil unless verbose
	Logger       zerolog.Logger
	OnFatal      func(error)
	Poll         time.Duration // zero means defaultPoll
	Dots         io.Writer     // zero value means os.Stdout
}

func New(opts Options) *Writer {
	w := &Writer{
		q:       opts.Queue,
		clk:     opts.Clock,
		tmpl:    opts.PathTemplate,
		me:      opts.Me,
		view:    opts.Viewer,
		log:     opts.Logger,
		onFatal: opts.OnFatal,
		poll:    opts.Poll,
		dots:    opts.Dots,
		stopped: make(chan struct{}),
	}
	if w.poll == 0 {
		w.poll = defaultPoll
	}
	if w.dots == nil {
		w.dots = os.Stdout
	}
	return w
}

// Start launches the consumer goroutine.
func (w *Writer) Start() {
	go w.run()
}

// Stop requests shutdown. Idempotent; the writer acknowledges by closing the
// channel returned from Stopped.
func (w *Writer) Stop() {
	w.stop.Store(true)
}

// Stopped is closed once the writer has exited and closed its file.
func (w *Writer) Stopped() <-chan struct{} {
	return w.stopped
}

func (w *Writer) run() {
	w.log.Debug().Msg("writer begins")
	defer w.log.Debug().Msg("writer ends")
	defer close(w.stopped)

	for {
		if w.stop.Load() {
			w.closeFile()
			return
		}
		rec := w.q.Pop()
		if rec == nil {
			time.Sleep(w.poll)
			continue
		}
		w.handle(rec)
	}
}

func (w *Writer) handle(rec []byte) {
	switch {
	case w.tmpl != "":
		// Rotation is evaluated at most once per elapsed wall-clock second.
		// On that cadence the previous batch is flushed to disk and the
		// target path is recomputed; a changed path closes the current file,
		// to be lazily reopened below.
		if snap := w.clk.Current(); snap.Epoch > w.chkEpoch+1 {
			snap = w.clk.Refresh()
			w.chkEpoch = snap.Epoch
			w.flushSync()
			if path := Resolve(w.tmpl, w.me, snap); path != w.curPath {
				w.closeFile()
				w.curPath = path
			}
		}
		if w.file == nil {
			if err := w.open(); err != nil {
				w.log.Error().Err(err).Str("path", w.curPath).Msg("cannot open log file")
				if w.view == nil {
					w.fatal(fmt.Errorf("no log file from %q: %w", w.curPath, err))
				}
				break
			}
		}
		if _, err := w.file.Write(rec); err != nil {
			w.log.Error().Err(err).Str("path", w.curPath).Msg("log file write failed")
			if w.view == nil {
				w.fatal(fmt.Errorf("write to %q: %w", w.curPath, err))
			}
			break
		}
		w.sinceFlush++
	case w.view == nil:
		// Neither a file nor a console: nowhere for records to go.
		w.fatal(fmt.Errorf("no log path configured and no viewer attached"))
	}

	if w.view != nil {
		w.render(rec)
	}
}

// render decodes the record and hands it to the viewer. Viewer failures are
// reported straight to stderr: the diagnostic logger could itself be wired to
// the console the viewer just broke.
func (w *Writer) render(rec []byte) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "!! %s !! viewer panic: %v !!\n", rec, r)
		}
	}()
	p, ev, err := record.Decode(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "!! %s !! %v !!\n", rec, err)
		return
	}
	if err := w.view.Render(p, ev); err != nil {
		fmt.Fprintf(os.Stderr, "!! %s !! %v !!\n", rec, err)
	}
}

// flushSync pushes the batch written since the last rotation check to stable
// storage. Skipped entirely when nothing was written. A progress dot marks
// each batch on the console when no viewer is attached.
func (w *Writer) flushSync() {
	if w.sinceFlush == 0 || w.file == nil {
		return
	}
	if err := w.file.Sync(); err != nil {
		w.log.Error().Err(err).Str("path", w.curPath).Msg("fsync failed")
	}
	if w.view == nil {
		fmt.Fprint(w.dots, ".")
	}
	w.sinceFlush = 0
}

// open (re)opens the current path for append, creating parent directories as
// needed. Writes go straight to the fd, so every record is durable in the OS
// without an explicit flush; fsync happens on the rotation cadence.
func (w *Writer) open() error {
	if dir := filepath.Dir(w.curPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(w.curPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	return nil
}

func (w *Writer) closeFile() {
	if w.file == nil {
		return
	}
	w.flushSync()
	if err := w.file.Close(); err != nil {
		w.log.Error().Err(err).Str("path", w.curPath).Msg("log file close failed")
	}
	w.file = nil
}

func (w *Writer) fatal(err error) {
	if w.onFatal != nil {
		w.onFatal(err)
	}
}
