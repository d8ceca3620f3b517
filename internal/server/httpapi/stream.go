package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/server/listview"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// streamMessage is one list snapshot as sent to the admin panel.
type streamMessage struct {
	Status string `json:"status"`
	Items  any    `json:"items"`
	Error  string `json:"error,omitempty"`
}

func newStreamMessage[T any](st listview.State[T]) streamMessage {
	m := streamMessage{Status: st.Status.String(), Items: st.Items}
	if st.Items == nil {
		m.Items = []T{}
	}
	if st.Err != nil {
		m.Error = st.Err.Error()
	}
	return m
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts same-host requests and the configured API origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host || slices.Contains(s.origins, origin)
}

func (s *Server) stream(collection string) http.HandlerFunc {
	switch collection {
	case models.CollectionSkills:
		return func(w http.ResponseWriter, r *http.Request) { streamList[models.Skill](s, w, r, collection) }
	default:
		return func(w http.ResponseWriter, r *http.Request) { streamList[models.Project](s, w, r, collection) }
	}
}

// streamList pushes every state of one list view over a websocket. The view
// lives exactly as long as the socket.
func streamList[T any](s *Server, w http.ResponseWriter, r *http.Request, collection string) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var writeMu sync.Mutex
	write := func(msg streamMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	view, err := listview.Open(ctx, s.lists, collection, func(st listview.State[T]) {
		if err := write(newStreamMessage(st)); err != nil {
			cancel()
		}
	})
	if err != nil {
		s.logger.Error(ctx, "list subscribe failed", "collection", collection, "error", err)
		_ = write(streamMessage{Status: listview.Error.String(), Items: []T{}, Error: "subscription failed"})
		return
	}
	defer view.Close()

	s.logger.Debug(ctx, "list stream opened", "collection", collection)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug(ctx, "list stream closed", "collection", collection)
			return
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
