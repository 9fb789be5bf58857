package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchyard/internal/apperr"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Fields  []apperr.FieldError   `json:"fields,omitempty"`
	Wip     *apperr.WipLimitError `json:"wip,omitempty"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeValidation:
		return http.StatusUnprocessableEntity
	case apperr.CodeWipLimitExceeded, apperr.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error response. Internal errors are logged and
// reported without detail.
func (h *handler) fail(c *gin.Context, err error) {
	code := apperr.Code(err)
	body := errorBody{Code: code, Message: err.Error()}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	var we *apperr.WipLimitError
	if errors.As(err, &we) {
		body.Wip = we
	}
	if code == apperr.CodeInternal {
		h.log.WithField("path", c.FullPath()).WithError(err).Error("api: request failed")
		body.Message = "internal error"
	}
	c.AbortWithStatusJSON(statusFor(code), gin.H{"error": body})
}
