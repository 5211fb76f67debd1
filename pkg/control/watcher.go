package control

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Watcher subscribes to a redis pub/sub channel and relays remote commands to
// the daemon. It is the operator's out-of-band stop switch: a "stop" message
// triggers the same shutdown path as a !STOP! line on the wire. Optional; the
// daemon runs fine without redis.
type Watcher struct {
	redisClient *redis.Client
	channel     string
	onStop      func()
	log         zerolog.Logger
}

func NewWatcher(addr, password string, db int, channel string, onStop func(), log zerolog.Logger) *Watcher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Watcher{
		redisClient: rdb,
		channel:     channel,
		onStop:      onStop,
		log:         log,
	}
}

// Start subscribes and consumes commands until the context is cancelled.
// Non-blocking.
func (w *Watcher) Start(ctx context.Context) {
	w.log.Info().Str("channel", w.channel).Msg("control: watching redis channel")

	pubsub := w.redisClient.Subscribe(ctx, w.channel)
	go func() {
		defer pubsub.Close()
		defer w.redisClient.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				w.dispatch(msg.Payload)
			}
		}
	}()
}

func (w *Watcher) dispatch(payload string) {
	switch strings.TrimSpace(strings.ToLower(payload)) {
	case "stop":
		w.log.Warn().Msg("control: remote stop received")
		w.onStop()
	case "ping":
		w.log.Info().Msg("control: ping")
	default:
		w.log.Warn().Str("payload", payload).Msg("control: unknown command ignored")
	}
}
