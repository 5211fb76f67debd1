package ingest

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"

	"xlogd/pkg/queue"
	"xlogd/pkg/record"
)

// Listener accepts TCP connections and serves each with its own goroutine
// running the line protocol: one newline-terminated request, one
// newline-terminated reply. Accepted records are normalized and pushed to the
// writer queue before the OK goes back, so an acknowledged line is always in
// the queue.
type Listener struct {
	addr  string
	ippfx string // trimmed from client addresses in diagnostics only
	norm  *record.Normalizer
	q     *queue.Queue
	log   zerolog.Logger

	// onStop is invoked when a client sends !STOP!. The connection stays
	// open; shutdown is the daemon's job.
	onStop func()

	ln net.Listener

	// Connection counters, observability only.
	total atomic.Uint64
	open  atomic.Int64
}

func NewListener(addr, ippfx string, norm *record.Normalizer, q *queue.Queue, onStop func(), log zerolog.Logger) *Listener {
	return &Listener{
		addr:   addr,
		ippfx:  ippfx,
		norm:   norm,
		q:      q,
		onStop: onStop,
		log:    log,
	}
}

// Start binds the listen address and launches the accept loop. Non-blocking;
// the loop runs until Close.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.ln = ln
	l.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	go l.acceptLoop()
	return nil
}

// Close stops accepting new connections. Connections already open keep being
// served until their clients go away.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

// Addr returns the bound address, for callers that listened on port 0.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// OpenConns returns the number of currently open connections.
func (l *Listener) OpenConns() int64 {
	return l.open.Load()
}

// TotalConns returns the number of connections ever accepted.
func (l *Listener) TotalConns() uint64 {
	return l.total.Load()
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.log.Error().Err(err).Msg("accept failed")
			continue
		}
		go l.handleConn(conn)
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	n := l.total.Add(1)
	open := l.open.Add(1)
	addr := l.short(conn.RemoteAddr().String())
	l.log.Info().Uint64("conn", n).Int64("open", open).Str("addr", addr).Msg("connection")

	defer func() {
		conn.Close()
		l.log.Info().Int64("open", l.open.Add(-1)).Str("addr", addr).Msg("connection closed")
	}()

	ip := remoteIP(conn)
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if !l.serveLine(conn, addr, ip, line) {
				return
			}
		}
		if err != nil {
			l.logConnErr(addr, err)
			return
		}
	}
}

// serveLine handles one received line and sends the reply. Returns false when
// the reply could not be delivered and the connection should be dropped.
func (l *Listener) serveLine(conn net.Conn, addr, ip, line string) bool {
	rx := strings.TrimRight(line, "\r\n")
	if rx == "" {
		// Blank line, no reply.
		return true
	}

	var tx string
	switch {
	case rx == "!STOP!":
		l.log.Warn().Str("addr", addr).Msg("stop requested by client")
		l.onStop()
		tx = "OK"
	case rx[0] == '!' && rx[len(rx)-1] == '!':
		// Echo probe.
		tx = "OK|" + rx
	default:
		src := ip + record.Delim + rx
		rec, err := l.norm.Normalize(src)
		if err != nil {
			tx = "E: " + err.Error()
			l.log.Error().Str("addr", addr).Msg(tx)
			l.log.Error().Str("addr", addr).Msg(":: " + src)
		} else {
			l.q.Push(rec)
			tx = "OK"
		}
	}

	if _, err := conn.Write([]byte(tx + "\n")); err != nil {
		l.logConnErr(addr, err)
		return false
	}
	return true
}

// logConnErr classifies a connection-level failure. EOF and peer resets are
// routine; anything unexplained is elevated.
func (l *Listener) logConnErr(addr string, err error) {
	switch {
	case errors.Is(err, io.EOF):
		l.log.Info().Str("addr", addr).Msg("no more rx")
	case errors.Is(err, syscall.ECONNRESET):
		l.log.Info().Str("addr", addr).Msg("client closed connection")
	case errors.Is(err, syscall.ECONNABORTED):
		l.log.Warn().Str("addr", addr).Msg("client aborted connection")
	case errors.Is(err, net.ErrClosed):
		l.log.Debug().Str("addr", addr).Msg("connection closed locally")
	default:
		l.log.Error().Err(err).Str("addr", addr).Msg("connection error")
	}
}

// short trims the configured prefix from a client address so diagnostic lines
// stay readable on a busy LAN.
func (l *Listener) short(addr string) string {
	if l.ippfx == "" {
		return addr
	}
	return strings.TrimPrefix(addr, l.ippfx)
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
