package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"agentic-checkout/internal/adapter/catalog/static"
	"agentic-checkout/internal/adapter/http/handler"
	"agentic-checkout/internal/adapter/http/middleware"
	"agentic-checkout/internal/adapter/storage/memory"
	"agentic-checkout/internal/core/domain"
	"agentic-checkout/internal/core/ports"
	"agentic-checkout/internal/service"
	"agentic-checkout/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBearerToken  = "sk_test_integration"
	testInboundHMAC  = "whsec_inbound_test"
	declinedToken    = "pm_declined"
	approvedToken    = "pm_card_visa"
	shippingStandard = "standard"
	shippingExpress  = "express"
)

type testApp struct {
	server *httptest.Server
	sigSvc ports.SignatureService
	psp    *countingPSP
	sink   *recordingSink

	signatureSecret []byte
}

func newTestApp(t *testing.T, withSignature bool) *testApp {
	t.Helper()

	log := logger.New("error", false)
	kv := memory.NewKVStore()
	sessions := service.NewSessionStore(kv, time.Hour)
	guard := service.NewIdempotencyGuard(kv, time.Hour, log)
	sigSvc := service.NewHMACSignatureService(5 * time.Minute)

	catalog := static.New(map[string]static.Product{
		"item_tshirt": {Title: "T-Shirt", UnitPrice: domain.NewMoney(2000, "usd")},
		"item_mug":    {Title: "Mug", UnitPrice: domain.NewMoney(1500, "usd")},
	}, "usd", 875, []domain.FulfillmentChoice{
		{ID: shippingStandard, Label: "Standard", Price: domain.NewMoney(500, "usd")},
		{ID: shippingExpress, Label: "Express", Price: domain.NewMoney(1500, "usd")},
	})

	psp := &countingPSP{declineToken: declinedToken}
	sink := &recordingSink{}

	svc := service.NewCheckoutService(sessions, catalog, psp, sink, guard, log)

	var secret []byte
	if withSignature {
		secret = []byte(testInboundHMAC)
	}

	router := handler.SetupRouter(handler.RouterDeps{
		CheckoutSvc:     svc,
		AuthVerifier:    service.NewStaticTokenVerifier(testBearerToken),
		SigSvc:          sigSvc,
		SignatureSecret: secret,
		APIVersion:      "2026-08-25",
		Logger:          log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testApp{
		server:          srv,
		sigSvc:          sigSvc,
		psp:             psp,
		sink:            sink,
		signatureSecret: secret,
	}
}

// do sends an authenticated protocol request, signing the body when the app
// has an inbound secret configured.
func (a *testApp) do(t *testing.T, method, path, idemKey string, body []byte) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, a.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testBearerToken)
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set(middleware.HeaderIdempotencyKey, idemKey)
	}
	if len(a.signatureSecret) > 0 {
		ts := time.Now().Unix()
		req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(middleware.HeaderSignature, a.sigSvc.Sign(a.signatureSecret, ts, body))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, respBody
}

func decodeSession(t *testing.T, body []byte) domain.CheckoutSession {
	t.Helper()
	var s domain.CheckoutSession
	require.NoError(t, json.Unmarshal(body, &s))
	return s
}

func decodeError(t *testing.T, body []byte) (code, message, param string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Param   string `json:"param"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Error.Code, envelope.Error.Message, envelope.Error.Param
}

func createBody(selectedID string) []byte {
	req := map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "item_tshirt", "quantity": 2},
		},
	}
	if selectedID != "" {
		req["fulfillment"] = map[string]string{"selected_id": selectedID}
	}
	b, _ := json.Marshal(req)
	return b
}

func TestCheckoutFlow_CreateReadySession(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", createBody(shippingStandard))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	session := decodeSession(t, body)
	assert.Equal(t, domain.StatusReadyForPayment, session.Status)
	assert.Equal(t, int64(4000), session.Totals.Subtotal.Amount)
	assert.Equal(t, int64(350), session.Totals.Tax.Amount, "8.75% of 4000")
	assert.Equal(t, int64(500), session.Totals.Shipping.Amount)
	assert.Equal(t, int64(4850), session.Totals.GrandTotal.Amount)
	require.NotNil(t, session.Fulfillment)
	assert.Len(t, session.Fulfillment.Options, 2, "offered options come from the catalog")

	// Retrievable by id.
	resp, body = app.do(t, http.MethodGet, "/checkout_sessions/"+session.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.ID, decodeSession(t, body).ID)
}

func TestCheckoutFlow_FulfillmentSelectionGatesReadiness(t *testing.T) {
	app := newTestApp(t, false)

	// No selection yet: offered but unselected options hold the session back.
	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", createBody(""))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeSession(t, body)
	assert.Equal(t, domain.StatusNotReadyForPayment, session.Status)

	// Selecting an option re-prices and advances the session.
	update, _ := json.Marshal(map[string]interface{}{
		"fulfillment": map[string]string{"selected_id": shippingExpress},
	})
	resp, body = app.do(t, http.MethodPost, "/checkout_sessions/"+session.ID, "", update)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	session = decodeSession(t, body)
	assert.Equal(t, domain.StatusReadyForPayment, session.Status)
	assert.Equal(t, int64(1500), session.Totals.Shipping.Amount, "express shipping")
	assert.Equal(t, int64(5850), session.Totals.GrandTotal.Amount)
}

func TestCheckoutFlow_UnknownItemHoldsSession(t *testing.T) {
	app := newTestApp(t, false)

	reqBody, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "item_discontinued", "quantity": 1},
		},
		"fulfillment": map[string]string{"selected_id": shippingStandard},
	})
	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", reqBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	session := decodeSession(t, body)
	assert.Equal(t, domain.StatusNotReadyForPayment, session.Status)
	require.NotEmpty(t, session.Messages)
	assert.Equal(t, domain.MessageError, session.Messages[0].Type)

	// Completing a not-ready session is a state machine violation.
	complete, _ := json.Marshal(map[string]interface{}{
		"payment": map[string]string{"delegated_token": approvedToken},
	})
	resp, body = app.do(t, http.MethodPost, "/checkout_sessions/"+session.ID+"/complete", "", complete)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, _, _ := decodeError(t, body)
	assert.Equal(t, "invalid_state", code)
}

func TestCheckoutFlow_CompleteAndWebhook(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", createBody(shippingStandard))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeSession(t, body)

	complete, _ := json.Marshal(map[string]interface{}{
		"payment": map[string]string{"delegated_token": approvedToken},
	})
	resp, body = app.do(t, http.MethodPost, "/checkout_sessions/"+session.ID+"/complete", "", complete)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var completed domain.SessionWithOrder
	require.NoError(t, json.Unmarshal(body, &completed))
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	assert.Equal(t, "pi_1", completed.Order.ID)
	assert.Equal(t, domain.OrderStatusPlaced, completed.Order.Status)

	events := app.sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, ports.EventOrderCreated, events[0].Type)
	assert.Equal(t, session.ID, events[0].CheckoutSessionID)
	assert.Equal(t, "completed", events[0].Status)
}

func TestCheckoutFlow_DeclinedPaymentLeavesSessionOpen(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", createBody(shippingStandard))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeSession(t, body)

	complete, _ := json.Marshal(map[string]interface{}{
		"payment": map[string]string{"delegated_token": declinedToken},
	})
	resp, body = app.do(t, http.MethodPost, "/checkout_sessions/"+session.ID+"/complete", "", complete)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, message, _ := decodeError(t, body)
	assert.Equal(t, "payment_authorization_failed", code)
	assert.Equal(t, "Card declined", message)
	assert.Zero(t, app.psp.captureCount(), "a declined authorization must never capture")
	assert.Empty(t, app.sink.all(), "no order event on decline")

	// The session survives for another attempt with a fresh credential.
	resp, body = app.do(t, http.MethodGet, "/checkout_sessions/"+session.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusReadyForPayment, decodeSession(t, body).Status)

	retry, _ := json.Marshal(map[string]interface{}{
		"payment": map[string]string{"delegated_token": approvedToken},
	})
	resp, _ = app.do(t, http.MethodPost, "/checkout_sessions/"+session.ID+"/complete", "", retry)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckoutFlow_CancelIsTerminal(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", createBody(shippingStandard))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeSession(t, body)

	resp, body = app.do(t, http.MethodPost, "/checkout_sessions/"+session.ID+"/cancel", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, domain.StatusCanceled, decodeSession(t, body).Status)

	events := app.sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, ports.EventOrderUpdated, events[0].Type)
	assert.Equal(t, "canceled", events[0].Status)

	// Terminal sessions reject every further mutation.
	resp, body = app.do(t, http.MethodPost, "/checkout_sessions/"+session.ID, "", createBody(shippingExpress))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, _, _ := decodeError(t, body)
	assert.Equal(t, "invalid_state", code)

	resp, _ = app.do(t, http.MethodPost, "/checkout_sessions/"+session.ID+"/cancel", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutFlow_GetUnknownSession(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := app.do(t, http.MethodGet, "/checkout_sessions/cs_missing", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	code, _, _ := decodeError(t, body)
	assert.Equal(t, "session_not_found", code)
}

func TestCheckoutFlow_ValidationError(t *testing.T) {
	app := newTestApp(t, false)

	reqBody, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "item_tshirt", "quantity": 0},
		},
	})
	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", reqBody)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	code, _, param := decodeError(t, body)
	assert.Equal(t, "validation_error", code)
	assert.Equal(t, "items[0].quantity", param)
}

func TestCheckoutFlow_IdempotentCreateReplay(t *testing.T) {
	app := newTestApp(t, false)

	resp, first := app.do(t, http.MethodPost, "/checkout_sessions", "idem-create-1", createBody(shippingStandard))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, second := app.do(t, http.MethodPost, "/checkout_sessions", "idem-create-1", createBody(shippingStandard))
	require.Equal(t, http.StatusOK, resp.StatusCode, "replay returns 200, not 201")
	assert.Equal(t, first, second, "replay body must be byte-identical")
}

func TestCheckoutFlow_ConcurrentCompleteChargesOnce(t *testing.T) {
	app := newTestApp(t, false)

	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", createBody(shippingStandard))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decodeSession(t, body)

	complete, _ := json.Marshal(map[string]interface{}{
		"payment": map[string]string{"delegated_token": approvedToken},
	})

	const workers = 8
	bodies := make([][]byte, workers)
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, respBody := app.do(t, http.MethodPost,
				"/checkout_sessions/"+session.ID+"/complete", "idem-complete-1", complete)
			codes[i] = resp.StatusCode
			bodies[i] = respBody
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), app.psp.authorizeCount(), "payment must be attempted exactly once")
	assert.Equal(t, int64(1), app.psp.captureCount())
	require.Len(t, app.sink.all(), 1)

	for i := 0; i < workers; i++ {
		require.Equal(t, http.StatusOK, codes[i], "worker %d: %s", i, bodies[i])
		assert.Equal(t, bodies[0], bodies[i], "all callers see the identical response")
	}
}

func TestAuth_MissingBearerRejected(t *testing.T) {
	app := newTestApp(t, false)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/checkout_sessions/cs_1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignature_RequiredWhenConfigured(t *testing.T) {
	app := newTestApp(t, true)

	// Properly signed requests pass.
	resp, body := app.do(t, http.MethodPost, "/checkout_sessions", "", createBody(shippingStandard))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	// Unsigned requests are rejected before reaching the service.
	payload := createBody(shippingStandard)
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/checkout_sessions", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testBearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	code, _, _ := decodeError(t, raw)
	assert.Equal(t, "signature_invalid", code)
}

func TestSignature_TamperedBodyRejected(t *testing.T) {
	app := newTestApp(t, true)

	payload := createBody(shippingStandard)
	ts := time.Now().Unix()
	sig := app.sigSvc.Sign(app.signatureSecret, ts, payload)

	tampered, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": "item_tshirt", "quantity": 9999},
		},
	})
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/checkout_sessions", bytes.NewReader(tampered))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testBearerToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(middleware.HeaderSignature, sig)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtocolHeaders_Echoed(t *testing.T) {
	app := newTestApp(t, false)

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/checkout_sessions",
		bytes.NewReader(createBody(shippingStandard)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testBearerToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdempotencyKey, "idem-echo-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "idem-echo-1", resp.Header.Get(middleware.HeaderIdempotencyKey))
	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID))
	assert.Equal(t, "2026-08-25", resp.Header.Get(middleware.HeaderAPIVersion))
}
