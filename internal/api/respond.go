package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/generation"
	"github.com/aaryan23/cold-email-os/internal/kb"
	"github.com/aaryan23/cold-email-os/internal/queue"
	"github.com/aaryan23/cold-email-os/internal/research"
	"github.com/aaryan23/cold-email-os/internal/store"
)

const maxBodyBytes = 2 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// badRequestError marks client input problems.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("invalid request body: " + err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

func statusFor(err error) int {
	var bad *badRequestError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &bad), errors.As(err, &verrs),
		errors.Is(err, research.ErrTranscriptTooShort),
		errors.Is(err, generation.ErrInvalidSequenceLength),
		errors.Is(err, kb.ErrNoChunks):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generation.ErrNoActiveReport), errors.Is(err, queue.ErrAlreadyRunning):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func errorMessage(err error, status int) string {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		msgs := make([]string, len(verrs))
		for i, fe := range verrs {
			msgs[i] = fe.Field() + " failed " + fe.Tag()
			if fe.Param() != "" {
				msgs[i] += "=" + fe.Param()
			}
		}
		return "validation: " + strings.Join(msgs, ", ")
	case errors.Is(err, store.ErrNotFound):
		return "not found"
	case errors.Is(err, research.ErrTranscriptTooShort):
		return research.ErrTranscriptTooShort.Error()
	case errors.Is(err, generation.ErrNoActiveReport):
		return generation.ErrNoActiveReport.Error()
	case errors.Is(err, generation.ErrInvalidSequenceLength):
		return generation.ErrInvalidSequenceLength.Error()
	case errors.Is(err, queue.ErrAlreadyRunning):
		return queue.ErrAlreadyRunning.Error()
	case errors.Is(err, kb.ErrNoChunks):
		return kb.ErrNoChunks.Error()
	case status == http.StatusInternalServerError:
		return "internal error"
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": errorMessage(err, status)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
