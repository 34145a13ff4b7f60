package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/modules/payment"
	"pcbooking/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	bookings []domain.Booking
}

func (n *recordingNotifier) Notify(b domain.Booking) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, b)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bookings)
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testEnv struct {
	router   *gin.Engine
	handler  *Handler
	clock    *fakeClock
	store    *MockBookingStore
	adapter  *MockAdapter
	notifier *recordingNotifier
	ledger   *MemoryLedger
}

func setupHandler(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		clock:    newFakeClock(),
		store:    new(MockBookingStore),
		adapter:  new(MockAdapter),
		notifier: &recordingNotifier{},
	}
	env.ledger = NewMemoryLedger(env.clock.Now)
	env.store.On("GetByPrefix", mock.Anything, mock.Anything).Return([]domain.Booking{}, nil).Maybe()

	svc := NewService(env.store, env.adapter, env.notifier,
		NewTokenCodec(testHashKey, testBlockKey, DefaultWindow), env.ledger,
		Options{Window: DefaultWindow, PaymentTimeout: time.Second, Now: env.clock.Now})
	env.handler = NewHandler(svc)
	env.handler.tick = 5 * time.Millisecond

	env.router = gin.New()
	env.handler.RegisterRoutes(env.router.Group("/api/v1"))
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env apiEnvelope
	if w.Header().Get("Content-Type") != "text/event-stream" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (e *testEnv) open(t *testing.T, sel Selection) string {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/api/v1/reservations", sel, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res OpenResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (e *testEnv) pay(t *testing.T, token string, card payment.Card) (*httptest.ResponseRecorder, apiEnvelope) {
	return e.do(t, http.MethodPost, "/api/v1/reservations/pay", PayRequest{Token: token, Card: card}, "")
}

func TestOpenAndCurrent(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	e.clock.Advance(30 * time.Second)
	w, env := e.do(t, http.MethodGet, "/api/v1/reservations/current", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Session SessionView `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, StatePayment, data.Session.State)
	assert.Equal(t, 570, data.Session.RemainingSeconds)
	assert.Equal(t, int64(3000), data.Session.TotalCents)
}

func TestOpenValidationDetails(t *testing.T) {
	e := setupHandler(t)
	sel := optimizationSelection()
	sel.Time = ""
	sel.Contact.Email = ""

	w, env := e.do(t, http.MethodPost, "/api/v1/reservations", sel, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "time")
	assert.Contains(t, env.Error.Details, "contact.email")
}

func TestOpenRejectsTakenSlotEarly(t *testing.T) {
	e := setupHandler(t)
	e.store.ExpectedCalls = nil
	e.store.On("GetByPrefix", mock.Anything, "booking:2025-03-10:").Return([]domain.Booking{{
		ID: "booking:2025-03-10:10:00 AM:1-x", Date: "2025-03-10", Time: "10:00 AM", Status: domain.BookingConfirmed,
	}}, nil)

	w, env := e.do(t, http.MethodPost, "/api/v1/reservations", optimizationSelection(), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SLOT_TAKEN", env.Error.Code)
}

func TestPaySuccessNotifiesAndClosesSession(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	e.adapter.On("Authorize", mock.Anything, int64(3000), validCard).Return(approved("ref-ok"), nil).Once()
	e.store.On("Put", mock.Anything, mock.Anything).Return(nil).Once()

	w, env := e.pay(t, token, validCard)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		State   State          `json:"state"`
		Booking domain.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, StateSuccess, data.State)
	assert.Equal(t, domain.BookingConfirmed, data.Booking.Status)
	assert.Equal(t, 1, e.notifier.count())

	w, env = e.pay(t, token, validCard)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "SESSION_CLOSED", env.Error.Code)
	e.adapter.AssertNumberOfCalls(t, "Authorize", 1)
}

func TestPayAfterExpiry(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	e.clock.Advance(601 * time.Second)
	w, env := e.pay(t, token, validCard)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "SESSION_EXPIRED", env.Error.Code)

	w, _ = e.do(t, http.MethodGet, "/api/v1/reservations/current", nil, token)
	assert.Equal(t, http.StatusGone, w.Code)
	e.adapter.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayDeclineThenRetry(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	e.adapter.On("Authorize", mock.Anything, int64(3000), validCard).
		Return(payment.Authorization{DeclineReason: payment.DeclineMessage}, nil).Once()
	w, env := e.pay(t, token, validCard)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "PAYMENT_DECLINED", env.Error.Code)
	assert.Equal(t, payment.DeclineMessage, env.Error.Message)

	e.adapter.On("Authorize", mock.Anything, int64(3000), validCard).Return(approved("ref-retry"), nil).Once()
	e.store.On("Put", mock.Anything, mock.Anything).Return(nil).Once()
	w, _ = e.pay(t, token, validCard)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPayInvalidCardReportsFields(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	w, env := e.pay(t, token, payment.Card{Number: "123456789012345", Expiry: "01/20", CVC: "12"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CARD_INVALID", env.Error.Code)
	assert.Contains(t, env.Error.Details, "number")
	assert.Contains(t, env.Error.Details, "expiry")
	assert.Contains(t, env.Error.Details, "cvc")
	e.adapter.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayConflictAfterApproval(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	e.adapter.On("Authorize", mock.Anything, int64(3000), validCard).Return(approved("ref-conflict"), nil).Once()
	e.store.On("Put", mock.Anything, mock.Anything).Return(repository.ErrSlotTaken).Once()

	w, env := e.pay(t, token, validCard)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SLOT_TAKEN_AFTER_PAYMENT", env.Error.Code)
	assert.Equal(t, true, env.Error.Details["refundRequired"])
	assert.Equal(t, "ref-conflict", env.Error.Details["paymentRef"])
	assert.Zero(t, e.notifier.count())

	w, env = e.pay(t, token, validCard)
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "SESSION_LOCKED", env.Error.Code)
}

func TestPayUnknownOutcomeLocksSession(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	e.adapter.On("Authorize", mock.Anything, int64(3000), validCard).
		Return(payment.Authorization{}, context.DeadlineExceeded).Once()

	w, env := e.pay(t, token, validCard)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "PAYMENT_OUTCOME_UNKNOWN", env.Error.Code)
	assert.NotEmpty(t, env.Error.Details["sessionId"])

	w, env = e.pay(t, token, validCard)
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "SESSION_LOCKED", env.Error.Code)
	e.adapter.AssertNumberOfCalls(t, "Authorize", 1)
}

func TestPayRefusedWhileInFlight(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	sess, err := NewTokenCodec(testHashKey, testBlockKey, DefaultWindow).Decode(token)
	require.NoError(t, err)
	ok, err := e.ledger.Acquire(context.Background(), sess.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	w, env := e.pay(t, token, validCard)
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "SESSION_BUSY", env.Error.Code)
}

func TestCancelDestroysSession(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	w, _ := e.do(t, http.MethodDelete, "/api/v1/reservations", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := e.pay(t, token, validCard)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "SESSION_CLOSED", env.Error.Code)
}

func TestInvalidTokenIsUnauthorized(t *testing.T) {
	e := setupHandler(t)
	w, env := e.do(t, http.MethodGet, "/api/v1/reservations/current", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_RESERVATION_TOKEN", env.Error.Code)
}

func TestCountdownStreamsUntilExpired(t *testing.T) {
	e := setupHandler(t)
	token := e.open(t, optimizationSelection())

	go func() {
		time.Sleep(30 * time.Millisecond)
		e.clock.Advance(601 * time.Second)
	}()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/countdown?token="+url.QueryEscape(token), nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "event:tick")
	assert.Contains(t, body, "event:expired")
}
