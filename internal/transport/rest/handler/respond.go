package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"healthpulse/internal/apperr"
	"healthpulse/internal/logger"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error *apperr.Error `json:"error"`
}

// writeError renders err as {"error":{kind,code,message,details}}.
// Internal causes are logged, never sent.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	ae := apperr.As(err)
	if ae.Kind == apperr.KindInternal || ae.Kind == apperr.KindUpstream {
		log.Error("request error", "kind", ae.Kind, "code", ae.Code, "error", err)
	}
	writeJSON(w, ae.HTTPStatus(), errorBody{Error: ae})
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
// Unknown fields are ignored.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body", []string{err.Error()})
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fieldMessage(fe))
			}
			return apperr.Validation("invalid request", details)
		}
		return apperr.Validation("invalid request", []string{err.Error()})
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
