package reservation

import (
	"errors"
	"net/http"
	"time"

	"pcbooking/internal/modules/payment"
	"pcbooking/internal/pkg/response"
	"pcbooking/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	tick    time.Duration
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, tick: time.Second}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	resv := rg.Group("/reservations")
	{
		resv.POST("", h.Open)
		resv.GET("/current", h.Current)
		resv.GET("/countdown", h.Countdown)
		resv.POST("/pay", h.Pay)
		resv.DELETE("", h.Cancel)
	}
}

func (h *Handler) Open(c *gin.Context) {
	var sel Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.Open(c.Request.Context(), sel)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

func (h *Handler) Current(c *gin.Context) {
	view, err := h.service.Current(c.Request.Context(), tokenFrom(c))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// Countdown streams the remaining seconds as server-sent events and a final
// expired event. The stream is advisory; Pay re-checks expiry itself.
func (h *Handler) Countdown(c *gin.Context) {
	token := tokenFrom(c)
	if _, err := h.service.Current(c.Request.Context(), token); err != nil {
		h.writeError(c, err, nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	st, err := h.service.Watch(c.Request.Context(), token, ticker.C, func(rem time.Duration) {
		c.SSEvent("tick", gin.H{"remainingSeconds": int(rem.Seconds())})
		c.Writer.Flush()
	})
	switch {
	case errors.Is(err, ErrSessionExpired) || st == StateExpired:
		c.SSEvent("expired", gin.H{"remainingSeconds": 0})
	case err != nil:
		c.SSEvent("closed", gin.H{"message": err.Error()})
	default:
		return
	}
	c.Writer.Flush()
}

func (h *Handler) Pay(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	token := req.Token
	if token == "" {
		token = tokenFrom(c)
	}

	out, err := h.service.Pay(c.Request.Context(), token, req.Card)
	if err != nil {
		h.writeError(c, err, out)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"state":   out.State,
		"booking": out.Booking,
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), tokenFrom(c)); err != nil {
		h.writeError(c, err, nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cancelled": true})
}

func (h *Handler) writeError(c *gin.Context, err error, out *Outcome) {
	var verr *ValidationError
	var cerr *payment.CardError

	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Fields)
	case errors.As(err, &cerr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "CARD_INVALID", "Card details are invalid", cerr.Fields)
	case errors.Is(err, repository.ErrSlotTaken):
		response.Error(c, http.StatusConflict, "SLOT_TAKEN", "This time slot is already booked")
	case errors.Is(err, ErrInvalidToken):
		response.Error(c, http.StatusUnauthorized, "INVALID_RESERVATION_TOKEN", "Reservation token is missing or invalid")
	case errors.Is(err, ErrSessionExpired):
		response.Error(c, http.StatusGone, "SESSION_EXPIRED", "Your reservation has expired, please start again")
	case errors.Is(err, ErrSessionClosed):
		response.Error(c, http.StatusGone, "SESSION_CLOSED", "This reservation is already closed")
	case errors.Is(err, ErrSubmissionInFlight):
		response.Error(c, http.StatusLocked, "SESSION_BUSY", "A payment for this reservation is already being processed")
	case errors.Is(err, ErrSessionLocked):
		response.Error(c, http.StatusLocked, "SESSION_LOCKED", "This reservation can no longer be paid, please start again")
	case errors.Is(err, ErrPaymentDeclined):
		msg := payment.DeclineMessage
		if out != nil && out.DeclineReason != "" {
			msg = out.DeclineReason
		}
		response.Error(c, http.StatusPaymentRequired, "PAYMENT_DECLINED", msg)
	case errors.Is(err, ErrCommitConflict):
		details := gin.H{"refundRequired": true}
		if out != nil {
			details = gin.H{"refundRequired": out.RefundRequired, "paymentRef": out.PaymentRef}
		}
		response.ErrorWithDetails(c, http.StatusConflict, "SLOT_TAKEN_AFTER_PAYMENT",
			"The slot was booked by someone else while you were paying", details)
	case errors.Is(err, ErrOutcomeUnknown):
		details := gin.H{}
		if out != nil {
			details["sessionId"] = out.SessionID
		}
		response.ErrorWithDetails(c, http.StatusBadGateway, "PAYMENT_OUTCOME_UNKNOWN",
			"We could not confirm your payment. Please contact support before trying again", details)
	case errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process reservation")
	}
}

func tokenFrom(c *gin.Context) string {
	if t := c.GetHeader(TokenHeader); t != "" {
		return t
	}
	return c.Query("token")
}
