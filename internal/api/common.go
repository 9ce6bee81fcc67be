package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/crewhub/workspace/internal/log"
)

type Error struct {
	Status int
	Err    error
	Msg    string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}, allowUnknown bool) error {
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		value, _, _ := mime.ParseMediaType(contentType)
		if value != "application/json" {
			return &Error{Status: http.StatusUnsupportedMediaType, Msg: "Content-Type header is not application/json"}
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1*1024*1024)

	dec := json.NewDecoder(r.Body)
	if !allowUnknown {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(&dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxError):
			msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
			return &Error{Status: http.StatusBadRequest, Msg: msg}

		case errors.Is(err, io.ErrUnexpectedEOF):
			return &Error{Status: http.StatusBadRequest, Msg: "Request body contains badly-formed JSON"}

		case errors.As(err, &unmarshalTypeError):
			msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
			return &Error{Status: http.StatusBadRequest, Msg: msg}

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return &Error{Status: http.StatusBadRequest, Msg: fmt.Sprintf("Request body contains unknown field %s", fieldName)}

		case errors.Is(err, io.EOF):
			return &Error{Status: http.StatusBadRequest, Msg: "Request body must not be empty"}

		case err.Error() == "http: request body too large":
			return &Error{Status: http.StatusRequestEntityTooLarge, Msg: "Request body must not be larger than 1MB"}

		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &Error{Status: http.StatusBadRequest, Msg: "Request body must only contain a single JSON object"}
	}

	return nil
}

func JSONResponseHandler(handler func(http.ResponseWriter, *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		errMsg := ""
		var apiErr *Error

		body, err := handler(w, r)
		if err != nil {
			if errors.As(err, &apiErr) {
				status = apiErr.Status
				errMsg = apiErr.Error()
				log.Warning(r.Context(), "API error", "err", errMsg, "status", status)
			} else {
				status = http.StatusInternalServerError
				log.Error(r.Context(), "Unexpected API error", "err", err, "status", status)
			}
		}

		if status != http.StatusInternalServerError && body != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		} else {
			http.Error(w, errMsg, status)
		}
	}
}
