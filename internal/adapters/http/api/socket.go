package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/okian/sportsday/pkg/logger"
)

const echoPrefix = "echo: "

// SocketHandler relays hub channels to websocket clients.
type SocketHandler struct {
	hub Subscriber
}

// NewSocketHandler creates a new socket handler.
func NewSocketHandler(hub Subscriber) *SocketHandler {
	return &SocketHandler{hub: hub}
}

// Handle upgrades GET /ws/{channel}. Every message published on the channel
// is sent to the client; text from the client is answered with "echo: ".
func (h *SocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	srv := websocket.Server{
		// browsers on other hosts are allowed to watch the board
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			h.serve(r.Context(), conn, channel)
		},
	}
	srv.ServeHTTP(w, r)
}

func (h *SocketHandler) serve(ctx context.Context, conn *websocket.Conn, channel string) {
	log := logger.Get().Named("ws")
	defer conn.Close()

	sub, err := h.hub.Subscribe(channel)
	if err != nil {
		log.Warn(ctx, "subscribe failed", logger.String("channel", channel), logger.Error(err))
		return
	}
	defer h.hub.Unsubscribe(sub)
	log.Debug(ctx, "client subscribed", logger.String("channel", channel), logger.String("id", sub.ID))

	incoming := make(chan string)
	done := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(done)
		for {
			var text string
			if err := websocket.Message.Receive(conn, &text); err != nil {
				return
			}
			select {
			case incoming <- text:
			case <-stop:
				return
			}
		}
	}()

	for {
		var out string
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			out = msg
		case text := <-incoming:
			out = echoPrefix + text
		case <-done:
			return
		case <-ctx.Done():
			return
		}
		if err := websocket.Message.Send(conn, out); err != nil {
			log.Debug(ctx, "client gone", logger.String("channel", channel), logger.Error(err))
			return
		}
	}
}
