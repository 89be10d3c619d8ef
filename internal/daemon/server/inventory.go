package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/alexedwards/flow"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/query"
)

// StatusFor maps a response variant to its HTTP status.
func StatusFor(resp agent.Response) int {
	switch resp.(type) {
	case agent.NewInventoryUUID, agent.NewItemUUID, agent.NewUnitUUID:
		return http.StatusCreated
	case agent.InvalidInventoryUUID, agent.InvalidItemUUID:
		return http.StatusNotFound
	case agent.Unauthorized:
		return http.StatusUnauthorized
	case agent.Forbidden:
		return http.StatusForbidden
	case agent.InvalidRequest:
		return http.StatusBadRequest
	}
	return http.StatusOK
}

// execute runs req for the caller and writes the response envelope.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, req agent.Request) {
	resp, err := s.agent.SendAs(r.Context(), subscriptionToken(r), req)
	if err != nil {
		s.logger.WithError(err).WithField("request", agent.RequestType(req)).Warn("Agent unavailable")
		writeError(w, errors.Wrap(err, errors.ErrCodeInternal, "agent unavailable"), http.StatusServiceUnavailable)
		return
	}
	s.writeResponse(w, resp)
}

func (s *Server) writeResponse(w http.ResponseWriter, resp agent.Response) {
	env, err := agent.EncodeResponse(resp)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, StatusFor(resp), env)
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body")
	}
	return nil
}

func (s *Server) handleEnvelope(w http.ResponseWriter, r *http.Request) {
	var env agent.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request envelope"), 0)
		return
	}
	req, err := agent.DecodeRequest(env)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, err.Error()), 0)
		return
	}
	s.execute(w, r, req)
}

// handleListInventories serves GET /api/inventories. Optional where and
// name query parameters filter the collection.
func (s *Server) handleListInventories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := query.Compile(q.Get("where"), q["name"])
	if err != nil {
		writeError(w, err, 0)
		return
	}

	resp, err := s.agent.SendAs(r.Context(), subscriptionToken(r), agent.GetInventories{})
	if err != nil {
		writeError(w, errors.Wrap(err, errors.ErrCodeInternal, "agent unavailable"), http.StatusServiceUnavailable)
		return
	}
	if invs, ok := resp.(agent.Inventories); ok && !filter.Empty() {
		filtered, err := filter.Apply(invs.Inventories)
		if err != nil {
			writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "filter failed"), 0)
			return
		}
		s.logger.WithFields(logrus.Fields{"total": len(invs.Inventories), "matched": len(filtered)}).Debug("Filtered inventories")
		resp = agent.Inventories{Inventories: filtered}
	}
	s.writeResponse(w, resp)
}

func (s *Server) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var req agent.CreateInventory
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	s.execute(w, r, req)
}

func (s *Server) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, agent.GetInventory{InventoryUUID: flow.Param(r.Context(), "inventory")})
}

func (s *Server) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req agent.UpdateInventory
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	req.InventoryUUID = flow.Param(r.Context(), "inventory")
	s.execute(w, r, req)
}

func (s *Server) handleDeleteInventory(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, agent.DeleteInventory{InventoryUUID: flow.Param(r.Context(), "inventory")})
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req agent.CreateItem
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	req.InventoryUUID = flow.Param(r.Context(), "inventory")
	s.execute(w, r, req)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, agent.GetItem{
		InventoryUUID: flow.Param(r.Context(), "inventory"),
		ItemUUID:      flow.Param(r.Context(), "item"),
	})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req agent.UpdateItem
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	req.InventoryUUID = flow.Param(r.Context(), "inventory")
	req.ItemUUID = flow.Param(r.Context(), "item")
	s.execute(w, r, req)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, agent.DeleteItem{
		InventoryUUID: flow.Param(r.Context(), "inventory"),
		ItemUUID:      flow.Param(r.Context(), "item"),
	})
}

func (s *Server) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	var req agent.CreateUnit
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, 0)
		return
	}
	req.InventoryUUID = flow.Param(r.Context(), "inventory")
	req.ItemUUID = flow.Param(r.Context(), "item")
	s.execute(w, r, req)
}

func (s *Server) handleDebugInventory(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, agent.MakeDebugInventory{})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, agent.DeleteAllData{})
}
