package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/perfuselab/pindrive/pin"
	"github.com/perfuselab/pindrive/schedule"
	"github.com/perfuselab/pindrive/wave"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respond encodes data to JSON and responds with it and the http code.
// Errors are rendered as an error response body.
func respond(w http.ResponseWriter, data interface{}, httpCode int) {
	var resp interface{}
	if v, ok := data.(error); ok {
		resp = errorResponse{Error: v.Error()}
	} else {
		resp = data
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpCode)

	if resp != nil {
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// notWiredError marks a hardware PWM request for a pin with no PWM
// peripheral behind it.
type notWiredError struct {
	error
}

// statusFor picks the status code for a failed operation: requests the
// hardware can never satisfy are the client's fault, everything else is the
// server's.
func statusFor(err error) int {
	var notWired notWiredError
	switch {
	case errors.Is(err, wave.ConfigError{}),
		errors.Is(err, pin.UnsupportedPinError{}),
		errors.Is(err, schedule.MismatchError{}),
		errors.As(err, &notWired):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
