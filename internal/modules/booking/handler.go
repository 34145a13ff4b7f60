package booking

import (
	"errors"
	"net/http"

	"pcbooking/internal/domain"
	"pcbooking/internal/pkg/response"
	"pcbooking/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the public read routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings", h.List)
	rg.GET("/bookings/:date", h.ListByDate)
	rg.GET("/slots/:date", h.Slots)
}

// RegisterAdminRoutes expects a group that already runs the admin gate.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.Create)
	rg.DELETE("/bookings/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	bookings, err := h.service.ListConfirmed(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": toPublic(bookings)})
}

func (h *Handler) ListByDate(c *gin.Context) {
	bookings, err := h.service.ListConfirmedByDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": toPublic(bookings)})
}

func (h *Handler) Slots(c *gin.Context) {
	date := c.Param("date")
	slots, err := h.service.Slots(c.Request.Context(), date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"date": date, "slots": slots})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	b, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Fields)
	case errors.Is(err, repository.ErrSlotTaken):
		response.Error(c, http.StatusConflict, "SLOT_TAKEN", "This time slot is already booked")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process booking request")
	}
}

// WriteError lets other handlers reuse the booking error mapping.
func (h *Handler) WriteError(c *gin.Context, err error) { h.writeError(c, err) }

func toPublic(in []domain.Booking) []PublicBooking {
	out := make([]PublicBooking, 0, len(in))
	for _, b := range in {
		out = append(out, NewPublicBooking(b))
	}
	return out
}
