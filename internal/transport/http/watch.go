package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"trivia-night/internal/app"
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type missingPayload struct {
	Key string `json:"key"`
}

// watch upgrades to a websocket and pushes the document each time its value changes.
// The stream polls the store on the gateway interval, so clients can replace their own
// polling with a single connection.
func (g *Gateway) watch(w http.ResponseWriter, r *http.Request) {
	key, shared, ok := documentParams(w, r)
	if !ok {
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	logger := g.logger.With("watcher", uuid.NewString(), "key", key, "shared", shared)
	logger.Info("watch opened")
	defer logger.Info("watch closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write error", "error", err)
				cancel()
				return
			}
		}
	}()

	var (
		last    string
		present bool
		primed  bool
	)
	check := func(ctx context.Context) error {
		rec, found, err := g.store.Get(ctx, key, shared)
		if err != nil {
			push(ctx, send, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return err
		}
		switch {
		case !found && (present || !primed):
			push(ctx, send, outboundMessage[any]{Type: "missing", Payload: missingPayload{Key: key}})
		case found && (!present || rec.Value != last):
			push(ctx, send, outboundMessage[any]{Type: "document", Payload: rec})
		}
		primed = true
		present = found
		last = rec.Value
		return nil
	}

	_ = check(ctx)
	stop := app.NewPoller(g.watchInterval, check, logger).Start(ctx)

	// Clients never send anything meaningful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	stop()
	close(send)
	<-writerDone
}

func push(ctx context.Context, send chan<- outboundMessage[any], msg outboundMessage[any]) {
	select {
	case send <- msg:
	case <-ctx.Done():
	}
}
