package loadsim

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/okian/sportsday/pkg/logger"
)

// scoresChannel is the hub channel score updates are published on.
const scoresChannel = "scores"

// watcher counts score notifications received over the websocket.
type watcher struct {
	conn  *websocket.Conn
	mu    sync.Mutex
	count int
	done  chan struct{}
}

// wsURL turns an http(s) base URL into the websocket URL for channel.
func wsURL(baseURL, channel string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/" + channel
}

func startWatcher(ctx context.Context, baseURL string) (*watcher, error) {
	conn, err := websocket.Dial(wsURL(baseURL, scoresChannel), "", baseURL)
	if err != nil {
		return nil, err
	}
	w := &watcher{conn: conn, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			var msg string
			if err := websocket.Message.Receive(conn, &msg); err != nil {
				logger.Get().Named("loadsim").Debug(ctx, "watcher stopped", logger.Error(err))
				return
			}
			if strings.HasPrefix(msg, "{") {
				w.mu.Lock()
				w.count++
				w.mu.Unlock()
			}
		}
	}()
	return w, nil
}

// stop closes the connection and returns the number of notifications seen.
func (w *watcher) stop() int {
	_ = w.conn.Close()
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
