package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
)

// Websocket events.
const (
	EventOrderCreate = "order:create"
	EventOrderAck    = "order:ack"
	EventTrade       = "trade"
	EventError       = "error"
)

// Message is the websocket envelope in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorResponse is the body of every error sent to a client.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	OrderID string         `json:"orderId,omitempty"`
	Details []ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails describes one offending field.
type ErrorDetails struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func newMessage(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: event, Data: raw})
}

// newErrorResponse flattens err into the client facing shape. Errors without
// a domain code are reported as internal errors so their text does not leak.
func newErrorResponse(err error) ErrorResponse {
	code := errors.CodeOf(err)
	if code == "" {
		return ErrorResponse{
			Code:    string(errors.GeneralInternalServerError),
			Message: "internal error",
		}
	}

	resp := ErrorResponse{Code: string(code)}

	var base *errors.BaseError
	var details *errors.ErrorDetails
	switch {
	case errors.As(err, &base):
		resp.Message = "invalid request"
		for _, d := range base.GetDetails() {
			resp.Details = append(resp.Details, ErrorDetails{Field: d.Field, Message: d.Message})
		}
	case errors.As(err, &details):
		resp.Message = details.Message
		if details.Field != "" {
			resp.Details = []ErrorDetails{{Field: details.Field, Message: details.Message}}
		}
	default:
		resp.Message = "internal error"
	}

	return resp
}

// statusCode maps error codes onto HTTP statuses.
func statusCode(err error) int {
	switch errors.CodeOf(err) {
	case errors.InvalidOrder, errors.GeneralBadRequestError, errors.PriceOutOfRange:
		return http.StatusBadRequest
	case errors.UnknownSymbol:
		return http.StatusNotFound
	case errors.EngineStopped:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
