package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/kernel/mindmap/internal/messaging"
)

const maxMessageBytes = 1 << 20

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", s.logger.Args("error", err))
		return
	}
	conn.SetReadLimit(maxMessageBytes)
	c := &client{conn: conn}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer s.drop(c)

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", s.logger.Args("error", err))
			}
			return
		}

		var msg messaging.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Action == "" {
			_ = c.send(messaging.Fail(errors.New("invalid message envelope")))
			continue
		}
		go func(msg messaging.Message) {
			if err := c.send(s.dispatch(ctx, msg)); err != nil {
				s.logger.Debug("websocket write failed", s.logger.Args("error", err))
			}
		}(msg)
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// dispatch forwards msg to the bus. Delivery errors become unsuccessful
// responses carrying the request id.
func (s *Server) dispatch(ctx context.Context, msg messaging.Message) messaging.Response {
	resp, err := s.bus.Send(ctx, msg)
	if err != nil {
		resp = messaging.Fail(err)
		resp.ID = msg.ID
	}
	return resp
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg messaging.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid message envelope: %w", err))
		return
	}
	if msg.Action == "" {
		writeError(w, http.StatusBadRequest, errors.New("action is required"))
		return
	}
	resp, err := s.bus.Send(r.Context(), msg)
	if err != nil {
		status := http.StatusGatewayTimeout
		if errors.Is(err, messaging.ErrNoReceiver) {
			status = http.StatusServiceUnavailable
		}
		fail := messaging.Fail(err)
		fail.ID = msg.ID
		writeJSON(w, status, fail)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cur, err := s.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

// handlePutSettings applies the fields present in the body over the stored
// record.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	cur, err := s.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&cur); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid settings: %w", err))
		return
	}
	if err := cur.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Save(r.Context(), cur); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}
