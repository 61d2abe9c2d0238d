// Package server is the development backend for the realtime channel. It
// honors the contract the client expects from the production orchestrator:
// sessions attach at /api/chat/{sessionId}, every "ping" text frame is
// answered with exactly one "pong", domain envelopes fan out to all peers
// of a session, and shutdown closes every socket with the normal close
// code so clients do not try to reconnect.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/appdock/chatwire/internal/logging"
	"github.com/appdock/chatwire/internal/transcript"
	"github.com/appdock/chatwire/pkg/types"
)

const writeTimeout = 10 * time.Second

// CommandHandler receives every domain envelope a client sends.
type CommandHandler func(sessionID, peerID string, env types.Envelope)

// Server fans realtime events out to the attached sessions.
type Server struct {
	addr string
	log  zerolog.Logger

	upgrader websocket.Upgrader
	srv      *http.Server

	mu          sync.Mutex
	sessions    map[string]map[string]*peer
	transcripts map[string]*transcript.Writer
	closed      bool

	transcriptDir string
	onCommand     CommandHandler
}

type peer struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex // serializes writes (broadcasts vs pong replies)
}

func (p *peer) write(messageType int, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.ws.WriteMessage(messageType, data)
}

// New builds a server listening on addr.
func New(addr string) *Server {
	return &Server{
		addr: addr,
		log:  logging.New("server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions:    make(map[string]map[string]*peer),
		transcripts: make(map[string]*transcript.Writer),
	}
}

// SetCommandHandler registers the inbound-envelope callback.
func (s *Server) SetCommandHandler(h CommandHandler) { s.onCommand = h }

// SetTranscriptDir enables per-session transcript recording under dir.
func (s *Server) SetTranscriptDir(dir string) { s.transcriptDir = dir }

// Handler returns the HTTP handler; tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/", s.handleChannel)
	return mux
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.Handler()}
	s.log.Info().Str("addr", s.addr).Msg("realtime server listening")
	return s.srv.ListenAndServe()
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "invalid session id", http.StatusNotFound)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	p := &peer{id: uuid.NewString(), ws: ws}
	if !s.addPeer(sessionID, p) {
		// Shutting down; refuse politely.
		closeNormal(ws)
		return
	}
	s.log.Info().Str("session", sessionID).Str("peer", p.id).Msg("peer attached")

	defer func() {
		s.removePeer(sessionID, p)
		ws.Close()
		s.log.Info().Str("session", sessionID).Str("peer", p.id).Msg("peer detached")
	}()

	for {
		messageType, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.record(sessionID, transcript.DirInbound, raw)

		if string(raw) == types.LivenessProbe {
			if err := p.write(websocket.TextMessage, []byte(types.LivenessAck)); err != nil {
				return
			}
			continue
		}

		var env types.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("dropping unparseable command")
			continue
		}
		if s.onCommand != nil {
			s.onCommand(sessionID, p.id, env)
		}
	}
}

// Broadcast sends an envelope to every peer of a session, pruning peers
// whose sockets have gone dead.
func (s *Server) Broadcast(sessionID string, env types.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	s.record(sessionID, transcript.DirOutbound, raw)

	for _, p := range s.peers(sessionID) {
		if err := p.write(websocket.TextMessage, raw); err != nil {
			s.log.Warn().Err(err).Str("peer", p.id).Msg("pruning dead peer")
			s.removePeer(sessionID, p)
			p.ws.Close()
		}
	}
	return nil
}

// BroadcastStatus emits a bare status frame, the shape the orchestrator
// uses for session-level progress.
func (s *Server) BroadcastStatus(sessionID, status, message string) error {
	return s.Broadcast(sessionID, types.Envelope{
		Type:    "status",
		Status:  status,
		Message: message,
	})
}

// PeerCount reports the attached peers of a session.
func (s *Server) PeerCount(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[sessionID])
}

// Shutdown closes every peer with the normal close code, finalizes
// transcripts, and stops the HTTP server if one was started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var peers []*peer
	for _, session := range s.sessions {
		for _, p := range session {
			peers = append(peers, p)
		}
	}
	s.sessions = make(map[string]map[string]*peer)
	writers := s.transcripts
	s.transcripts = make(map[string]*transcript.Writer)
	s.mu.Unlock()

	for _, p := range peers {
		closeNormal(p.ws)
	}
	for sessionID, tw := range writers {
		if err := tw.Close(); err != nil {
			s.log.Warn().Err(err).Str("session", sessionID).Msg("transcript close failed")
		}
	}
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) addPeer(sessionID string, p *peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	session, ok := s.sessions[sessionID]
	if !ok {
		session = make(map[string]*peer)
		s.sessions[sessionID] = session
	}
	session[p.id] = p

	if s.transcriptDir != "" {
		if _, ok := s.transcripts[sessionID]; !ok {
			path := filepath.Join(s.transcriptDir, sessionID+".ndjson.gz")
			tw, err := transcript.NewWriter(path)
			if err != nil {
				s.log.Warn().Err(err).Str("session", sessionID).Msg("transcript disabled")
			} else {
				s.transcripts[sessionID] = tw
			}
		}
	}
	return true
}

func (s *Server) removePeer(sessionID string, p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	delete(session, p.id)
	if len(session) == 0 {
		delete(s.sessions, sessionID)
	}
}

func (s *Server) peers(sessionID string) []*peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := s.sessions[sessionID]
	out := make([]*peer, 0, len(session))
	for _, p := range session {
		out = append(out, p)
	}
	return out
}

func (s *Server) record(sessionID, direction string, frame []byte) {
	s.mu.Lock()
	tw := s.transcripts[sessionID]
	s.mu.Unlock()
	if tw == nil {
		return
	}
	if err := tw.Record(direction, frame); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("transcript write failed")
	}
}

func closeNormal(ws *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutdown")
	ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	ws.Close()
}
