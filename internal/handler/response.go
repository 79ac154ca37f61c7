package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShipCreekGroup/email-parser/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response. Context carries the
// failure-specific payload: the raw response text for parse/unexpected
// failures, the instance path for schema failures.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest, "EMPTY_INPUT", "input text is empty"
	case errors.Is(err, domain.ErrTextTooLarge):
		return http.StatusRequestEntityTooLarge, "TEXT_TOO_LARGE", "input text exceeds maximum allowed size"
	case errors.Is(err, domain.ErrStreamInterrupted):
		return http.StatusBadGateway, "STREAM_INTERRUPTED", "response stream interrupted before completion"
	case errors.Is(err, domain.ErrProviderFailed):
		return http.StatusBadGateway, "PROVIDER_FAILED", "all parser providers failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// MapParseFailure translates a terminal classified parse failure to an
// HTTP status and response error.
func MapParseFailure(f *domain.ParseFailure) (int, *APIError) {
	switch f.Kind {
	case domain.FailureKindParse:
		return http.StatusUnprocessableEntity, &APIError{
			Code:    "JSON_PARSE_FAILED",
			Message: f.Message,
			Context: f.RawText,
		}
	case domain.FailureKindSchema:
		return http.StatusUnprocessableEntity, &APIError{
			Code:    "SCHEMA_VALIDATION_FAILED",
			Message: f.Message,
			Context: f.FieldPath,
		}
	default:
		return http.StatusInternalServerError, &APIError{
			Code:    "UNEXPECTED_FAILURE",
			Message: f.Message,
			Context: f.RawText,
		}
	}
}

// HandleError maps an error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	var pf *domain.ParseFailure
	if errors.As(err, &pf) {
		status, apiErr := MapParseFailure(pf)
		c.JSON(status, APIResponse{Success: false, Error: apiErr})
		return
	}
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	RespondError(c, status, code, msg)
}
