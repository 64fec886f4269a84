package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ride-trip/internal/domain"
	"ride-trip/internal/service"
)

// TripResponse is the body of every trip operation.
type TripResponse struct {
	Success bool         `json:"success"`
	Trip    *domain.Trip `json:"trip,omitempty"`
	Message string       `json:"message,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// respondResult sends a trip result, or the mapped error when it failed.
func respondResult(c *gin.Context, code int, res service.Result) {
	if !res.Success {
		respondError(c, res.Err)
		return
	}
	respondJSON(c, code, TripResponse{Success: true, Trip: res.Trip, Message: res.Message})
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := service.ErrorCode(err)
	c.JSON(mapCodeToHTTPStatus(code), ErrorResponse{Error: err.Error(), Code: code})
}

// respondBadRequest rejects a payload that could not be bound.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: service.CodeValidation})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapCodeToHTTPStatus maps service error codes to HTTP status codes.
func mapCodeToHTTPStatus(code string) int {
	switch code {
	case service.CodeTripNotFound:
		return http.StatusNotFound
	case service.CodeInvalidStatus, service.CodeActiveConflict:
		return http.StatusConflict
	case service.CodeTripLocked:
		return http.StatusLocked
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeDirectory:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
