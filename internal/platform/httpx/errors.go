package httpx

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lyceum-app/lyceum/internal/shared"
)

// RespondError maps a service error to the wire envelope. Unrecognised
// errors become opaque 500s; internal details never cross the boundary.
func RespondError(w http.ResponseWriter, err error) {
	if apiErr, ok := shared.AsError(err); ok {
		JSON(w, apiErr.Status, ErrorBody{Error: apiErr.Code, Code: apiErr.Status})
		return
	}
	JSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal_error", Code: http.StatusInternalServerError})
}

// RespondValidation writes the field-error list for a failed request DTO.
func RespondValidation(w http.ResponseWriter, err error) {
	body := ValidationBody{Message: "request_validation_error"}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			body.Errors = append(body.Errors, FieldError{Field: fe.Field(), Message: fe.Tag()})
		}
	} else {
		body.Errors = append(body.Errors, FieldError{Field: "body", Message: "invalid"})
	}
	JSON(w, http.StatusUnprocessableEntity, body)
}
