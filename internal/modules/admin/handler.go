package admin

import (
	"errors"
	"net/http"

	"pcbooking/internal/modules/auth"
	"pcbooking/internal/modules/booking"
	"pcbooking/internal/pkg/response"
	"pcbooking/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	feed    *FeedHandler
}

func NewHandler(service *Service, feed *FeedHandler) *Handler {
	return &Handler{service: service, feed: feed}
}

// RegisterRoutes expects a group that already requires an admin bearer token.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/bookings", h.GetBookings)
	admin.POST("/bookings/:id/cancel", h.CancelBooking)
	admin.DELETE("/bookings/:id", h.DeleteBooking)

	admin.POST("/users", h.CreateAdmin)
	admin.POST("/test-booking", h.CreateTestBooking)
	admin.GET("/stats", h.GetStats)
}

// RegisterFeedRoutes expects a group gated by query-token admin auth, since
// browsers cannot set headers on websocket upgrades.
func (h *Handler) RegisterFeedRoutes(admin *gin.RouterGroup) {
	if h.feed != nil {
		admin.GET("/feed", h.feed.Serve)
	}
}

func (h *Handler) GetBookings(c *gin.Context) {
	var f BookingListFilter
	_ = c.ShouldBindQuery(&f)

	bookings, err := h.service.ListBookings(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": bookings, "total": len(bookings)})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	p, _ := auth.PrincipalFrom(c)
	b, err := h.service.CancelBooking(c.Request.Context(), p.UserID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) DeleteBooking(c *gin.Context) {
	p, _ := auth.PrincipalFrom(c)
	if err := h.service.DeleteBooking(c.Request.Context(), p.UserID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) CreateAdmin(c *gin.Context) {
	var req auth.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Email and a password of at least 8 characters are required")
		return
	}

	p, _ := auth.PrincipalFrom(c)
	user, err := h.service.CreateAdmin(c.Request.Context(), p.UserID, req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailAlreadyExists) {
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
			return
		}
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": auth.NewUserPublic(user)})
}

func (h *Handler) CreateTestBooking(c *gin.Context) {
	b, err := h.service.CreateTestBooking(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

func writeError(c *gin.Context, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Fields)
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, repository.ErrSlotTaken):
		response.Error(c, http.StatusConflict, "SLOT_TAKEN", "This time slot is already booked")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Admin operation failed")
	}
}
