// Package server broadcasts live benchmark results to WebSocket clients so
// a sweep can be watched while it runs.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Server accepts WebSocket clients and fans benchmark frames out to them.
type Server struct {
	addr string

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	// history replays already-broadcast frames to late-joining clients.
	history   [][]byte
	historyMu sync.Mutex

	upgrader websocket.Upgrader
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure sent to clients. Payload is one of
// sweep.BitrateResult ("result"), a full stats report ("report") or the
// final result list ("summary").
type Frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Stamp   int64       `json:"stamp"` // Unix ms
}

// New creates a server listening on addr once Run is called.
func New(addr string) *Server {
	return &Server{
		addr:    addr,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves the WebSocket endpoint until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[server] live results on ws://%s/ws", s.addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	// Writer goroutine. Must be running before the history replay below:
	// a replay larger than the send buffer would otherwise block forever.
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// Keep draining until the channel closes so pending
				// replay sends never block.
				for range client.send {
				}
				return
			}
		}
	}()

	// Replay everything broadcast so far, then register for new frames.
	s.historyMu.Lock()
	replay := make([][]byte, len(s.history))
	copy(replay, s.history)
	s.historyMu.Unlock()

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()
	log.Printf("[ws] client connected (%d total)", total)

	for _, msg := range replay {
		client.send <- msg
	}

	// Reader goroutine (keep-alive; any read error drops the client)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			total := len(s.clients)
			s.clientsMu.Unlock()
			close(client.send)
			log.Printf("[ws] client disconnected (%d total)", total)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Broadcast sends one frame to every connected client and records it for
// replay to clients that connect later.
func (s *Server) Broadcast(frameType string, payload interface{}) {
	frame := Frame{Type: frameType, Payload: payload, Stamp: time.Now().UnixMilli()}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[ws] marshal %s frame: %v", frameType, err)
		return
	}

	s.historyMu.Lock()
	s.history = append(s.history, data)
	s.historyMu.Unlock()

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}
