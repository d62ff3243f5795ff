package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	orderbookv1 "github.com/muhammadchandra19/rtcrypto-exchange/internal/domain/orderbook/v1"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/logger"
)

const maxBodySize = 1 << 16

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req orderbookv1.PlaceOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		s.respondError(w, r, errors.NewErrorDetails("Invalid Order Data", string(errors.InvalidOrder), ""))
		return
	}

	ack, err := s.submitter.Submit(ctx, "rest", req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusAccepted, ack)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Websocket upgrade failed", logger.NewField("error", err.Error()))
		return
	}

	client := newClient(s.hub, conn, s.submitter, s.logger)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	// the request context ends when this handler returns
	ctx := context.WithoutCancel(r.Context())

	go client.writePump()
	go client.readPump(ctx)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCode(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), err, logger.NewField("action", "place_order"))
	}
	respondJSON(w, status, newErrorResponse(err))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
