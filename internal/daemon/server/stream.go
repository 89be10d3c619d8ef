package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/internal/session"
	"github.com/grovetools/pantry/pkg/daemon"
)

func topicParam(r *http.Request) (registry.Topic, error) {
	switch t := registry.Topic(r.URL.Query().Get("topic")); t {
	case "", registry.TopicSnapshots:
		return registry.TopicSnapshots, nil
	case registry.TopicChanges:
		return t, nil
	default:
		return "", errors.InvalidInput(fmt.Sprintf("unknown topic %q", t))
	}
}

// subscriptions is one stream's registrations with the agent, the session
// and the config watcher.
type subscriptions struct {
	agent   *registry.Subscription[agent.Response]
	session *registry.Subscription[session.State]
	reloads *registry.Subscription[string]
}

func (s *Server) subscribe(topic registry.Topic) (*subscriptions, func()) {
	subs := &subscriptions{
		agent:   s.agent.Subscribe(topic),
		session: s.session.Subscribe(),
		reloads: s.reloads.Subscribe(reloadTopic),
	}
	return subs, func() {
		s.agent.Unsubscribe(subs.agent.Token)
		s.session.Unsubscribe(subs.session.Token)
		s.reloads.Unsubscribe(subs.reloads.Token)
	}
}

func responseUpdate(kind string, resp agent.Response) (daemon.StateUpdate, error) {
	env, err := agent.EncodeResponse(resp)
	if err != nil {
		return daemon.StateUpdate{}, err
	}
	return daemon.StateUpdate{UpdateType: kind, Response: &env}, nil
}

// pump sends the greeting, the initial snapshot and the session state,
// then forwards every update until ctx ends or a subscription closes.
func (s *Server) pump(ctx context.Context, topic registry.Topic, subs *subscriptions, emit func(daemon.StateUpdate) error) error {
	if err := emit(daemon.StateUpdate{UpdateType: daemon.UpdateSubscribed, Token: subs.agent.Token, Topic: topic}); err != nil {
		return err
	}

	resp, err := s.agent.SendAs(ctx, subs.agent.Token, agent.GetInventories{})
	if err != nil {
		return err
	}
	initial, err := responseUpdate(daemon.UpdateInitial, resp)
	if err != nil {
		return err
	}
	if err := emit(initial); err != nil {
		return err
	}
	st := s.session.Current()
	if err := emit(daemon.StateUpdate{UpdateType: daemon.UpdateSession, Session: &st}); err != nil {
		return err
	}

	kind := daemon.UpdateSnapshot
	if topic == registry.TopicChanges {
		kind = daemon.UpdateChange
	}
	for {
		var update daemon.StateUpdate
		select {
		case <-ctx.Done():
			return nil
		case resp, ok := <-subs.agent.C:
			if !ok {
				return nil
			}
			if update, err = responseUpdate(kind, resp); err != nil {
				s.logger.WithError(err).Error("Failed to encode update")
				continue
			}
		case st, ok := <-subs.session.C:
			if !ok {
				return nil
			}
			update = daemon.StateUpdate{UpdateType: daemon.UpdateSession, Session: &st}
		case file, ok := <-subs.reloads.C:
			if !ok {
				return nil
			}
			update = daemon.StateUpdate{UpdateType: daemon.UpdateConfigReload, ConfigFile: file}
		}
		if err := emit(update); err != nil {
			return err
		}
	}
}

// handleStream provides Server-Sent Events for real-time updates.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	topic, err := topicParam(r)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeInternal, "streaming not supported"), http.StatusInternalServerError)
		return
	}

	subs, unsubscribe := s.subscribe(topic)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	log := s.logger.WithField("token", subs.agent.Token)
	log.Debug("SSE client connected")

	err = s.pump(r.Context(), topic, subs, func(u daemon.StateUpdate) error {
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		// SSE format: "data: {json}\n\n"
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		log.WithError(err).Debug("SSE stream ended")
		return
	}
	log.Debug("SSE client disconnected")
}

// handleWebSocket streams the same updates as handleStream and also accepts
// request envelopes, answering each on the socket as a reply update.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	topic, err := topicParam(r)
	if err != nil {
		writeError(w, err, 0)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	subs, unsubscribe := s.subscribe(topic)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var mu sync.Mutex
	emit := func(u daemon.StateUpdate) error {
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteJSON(u)
	}

	log := s.logger.WithField("token", subs.agent.Token)
	log.Debug("WebSocket client connected")

	go func() {
		defer cancel()
		for {
			var env agent.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.WithError(err).Debug("WebSocket read ended")
				}
				return
			}
			if err := emit(s.reply(ctx, subs.agent.Token, env)); err != nil {
				return
			}
		}
	}()

	if err := s.pump(ctx, topic, subs, emit); err != nil {
		log.WithError(err).Debug("WebSocket stream ended")
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	log.Debug("WebSocket client disconnected")
}

func (s *Server) reply(ctx context.Context, token registry.Token, env agent.Envelope) daemon.StateUpdate {
	req, err := agent.DecodeRequest(env)
	if err != nil {
		return daemon.StateUpdate{UpdateType: daemon.UpdateError, Error: err.Error()}
	}
	resp, err := s.agent.SendAs(ctx, token, req)
	if err != nil {
		return daemon.StateUpdate{UpdateType: daemon.UpdateError, Error: err.Error()}
	}
	update, err := responseUpdate(daemon.UpdateReply, resp)
	if err != nil {
		return daemon.StateUpdate{UpdateType: daemon.UpdateError, Error: err.Error()}
	}
	return update
}
