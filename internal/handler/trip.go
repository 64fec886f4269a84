package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ride-trip/internal/domain"
	"ride-trip/internal/service"
)

// TripService is the set of trip operations served over HTTP.
type TripService interface {
	Estimate(ctx context.Context, route []domain.Waypoint) (domain.Estimate, error)
	CreateTrip(ctx context.Context, req service.CreateTripRequest) service.Result
	GetTrip(ctx context.Context, tripID string) service.Result
	GetActiveTrip(ctx context.Context, userID string, userType domain.UserType) service.Result
	UpdateTrip(ctx context.Context, tripID string, patch service.TripPatch) service.Result
	ActivateTrip(ctx context.Context, tripID string) service.Result
	CallDrivers(ctx context.Context, req service.CallDriversRequest) service.Result
	RejectDriver(ctx context.Context, tripID, driverID string) service.Result
	ApproveTrip(ctx context.Context, tripID, driverID string) service.Result
	UpdateTripStatus(ctx context.Context, tripID string, status domain.TripStatus) service.Result
	CompleteTrip(ctx context.Context, tripID string) service.Result
	SettlePayment(ctx context.Context, tripID, paymentMethodID string) service.Result
	RateTrip(ctx context.Context, tripID string, rating float64, comment string) service.Result
	CancelTrip(ctx context.Context, userID string, userType domain.UserType) service.Result
}

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	trips TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(trips TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

// RouteRequest is the HTTP request body carrying a route.
type RouteRequest struct {
	Route []domain.Waypoint `json:"route" binding:"required"`
}

// CreateTripRequest is the HTTP request body for creating a trip.
type CreateTripRequest struct {
	CustomerID string            `json:"customerId" binding:"required"`
	Route      []domain.Waypoint `json:"route" binding:"required"`
}

// EstimateResponse is the HTTP response for a route estimate.
type EstimateResponse struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Cost     float64 `json:"cost"`
}

// UpdateTripRequest is the HTTP request body for patching a trip.
type UpdateTripRequest struct {
	Status          *domain.TripStatus    `json:"status"`
	PaymentStatus   *domain.PaymentStatus `json:"paymentStatus"`
	PaymentMethodID *string               `json:"paymentMethodId"`
	Rating          *float64              `json:"rating"`
	Comment         *string               `json:"comment"`
}

// CallDriversRequest is the HTTP request body for soliciting drivers.
type CallDriversRequest struct {
	CustomerID string   `json:"customerId" binding:"required"`
	DriverIDs  []string `json:"driverIds" binding:"required"`
}

// DriverRequest is the HTTP request body naming the acting driver.
type DriverRequest struct {
	DriverID string `json:"driverId" binding:"required"`
}

// StatusRequest is the HTTP request body for a driver status update.
type StatusRequest struct {
	Status domain.TripStatus `json:"status" binding:"required"`
}

// PaymentRequest is the HTTP request body for settling a trip.
type PaymentRequest struct {
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
}

// RateRequest is the HTTP request body for rating a trip.
type RateRequest struct {
	Rating  float64 `json:"rating" binding:"required"`
	Comment string  `json:"comment"`
}

// CancelRequest is the HTTP request body for cancelling the caller's active trip.
type CancelRequest struct {
	UserID   string          `json:"userId" binding:"required"`
	UserType domain.UserType `json:"userType" binding:"required"`
}

// Estimate handles POST /v1/trips/estimate
func (h *TripHandler) Estimate(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	est, err := h.trips.Estimate(c.Request.Context(), req.Route)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EstimateResponse{
		Distance: est.Distance,
		Duration: est.Duration,
		Cost:     est.Cost,
	})
}

// CreateTrip handles POST /v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res := h.trips.CreateTrip(c.Request.Context(), service.CreateTripRequest{
		CustomerID: req.CustomerID,
		Route:      req.Route,
	})
	respondResult(c, http.StatusCreated, res)
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	respondResult(c, http.StatusOK, h.trips.GetTrip(c.Request.Context(), c.Param("id")))
}

// GetCustomerActiveTrip handles GET /v1/customers/:id/active-trip
func (h *TripHandler) GetCustomerActiveTrip(c *gin.Context) {
	respondResult(c, http.StatusOK, h.trips.GetActiveTrip(c.Request.Context(), c.Param("id"), domain.UserTypeCustomer))
}

// GetDriverActiveTrip handles GET /v1/drivers/:id/active-trip
func (h *TripHandler) GetDriverActiveTrip(c *gin.Context) {
	respondResult(c, http.StatusOK, h.trips.GetActiveTrip(c.Request.Context(), c.Param("id"), domain.UserTypeDriver))
}

// UpdateTrip handles PATCH /v1/trips/:id
func (h *TripHandler) UpdateTrip(c *gin.Context) {
	var req UpdateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res := h.trips.UpdateTrip(c.Request.Context(), c.Param("id"), service.TripPatch{
		Status:          req.Status,
		PaymentStatus:   req.PaymentStatus,
		PaymentMethodID: req.PaymentMethodID,
		Rating:          req.Rating,
		Comment:         req.Comment,
	})
	respondResult(c, http.StatusOK, res)
}

// ActivateTrip handles POST /v1/trips/:id/activate
func (h *TripHandler) ActivateTrip(c *gin.Context) {
	respondResult(c, http.StatusOK, h.trips.ActivateTrip(c.Request.Context(), c.Param("id")))
}

// CallDrivers handles POST /v1/trips/:id/request-driver
func (h *TripHandler) CallDrivers(c *gin.Context) {
	var req CallDriversRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res := h.trips.CallDrivers(c.Request.Context(), service.CallDriversRequest{
		TripID:     c.Param("id"),
		CustomerID: req.CustomerID,
		DriverIDs:  req.DriverIDs,
	})
	respondResult(c, http.StatusOK, res)
}

// RejectDriver handles POST /v1/trips/:id/reject-driver
func (h *TripHandler) RejectDriver(c *gin.Context) {
	var req DriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	respondResult(c, http.StatusOK, h.trips.RejectDriver(c.Request.Context(), c.Param("id"), req.DriverID))
}

// ApproveTrip handles POST /v1/trips/:id/approve
func (h *TripHandler) ApproveTrip(c *gin.Context) {
	var req DriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	respondResult(c, http.StatusOK, h.trips.ApproveTrip(c.Request.Context(), c.Param("id"), req.DriverID))
}

// UpdateTripStatus handles POST /v1/trips/:id/status
func (h *TripHandler) UpdateTripStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	respondResult(c, http.StatusOK, h.trips.UpdateTripStatus(c.Request.Context(), c.Param("id"), req.Status))
}

// CompleteTrip handles POST /v1/trips/:id/complete
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	respondResult(c, http.StatusOK, h.trips.CompleteTrip(c.Request.Context(), c.Param("id")))
}

// SettlePayment handles POST /v1/trips/:id/payment
func (h *TripHandler) SettlePayment(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	respondResult(c, http.StatusOK, h.trips.SettlePayment(c.Request.Context(), c.Param("id"), req.PaymentMethodID))
}

// RateTrip handles POST /v1/trips/:id/rate
func (h *TripHandler) RateTrip(c *gin.Context) {
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	respondResult(c, http.StatusOK, h.trips.RateTrip(c.Request.Context(), c.Param("id"), req.Rating, req.Comment))
}

// CancelTrip handles POST /v1/trips/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	respondResult(c, http.StatusOK, h.trips.CancelTrip(c.Request.Context(), req.UserID, req.UserType))
}

// RegisterTripRoutes mounts the trip routes on a versioned group.
func RegisterTripRoutes(v1 *gin.RouterGroup, h *TripHandler) {
	trips := v1.Group("/trips")
	{
		trips.POST("", h.CreateTrip)
		trips.POST("/estimate", h.Estimate)
		trips.POST("/cancel", h.CancelTrip)
		trips.GET("/:id", h.GetTrip)
		trips.PATCH("/:id", h.UpdateTrip)
		trips.POST("/:id/activate", h.ActivateTrip)
		trips.POST("/:id/request-driver", h.CallDrivers)
		trips.POST("/:id/reject-driver", h.RejectDriver)
		trips.POST("/:id/approve", h.ApproveTrip)
		trips.POST("/:id/status", h.UpdateTripStatus)
		trips.POST("/:id/complete", h.CompleteTrip)
		trips.POST("/:id/payment", h.SettlePayment)
		trips.POST("/:id/rate", h.RateTrip)
	}

	v1.GET("/customers/:id/active-trip", h.GetCustomerActiveTrip)
	v1.GET("/drivers/:id/active-trip", h.GetDriverActiveTrip)
}
