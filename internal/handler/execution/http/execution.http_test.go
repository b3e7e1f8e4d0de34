package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/execore/internal/config"
	"github.com/meridianhq/execore/internal/engine"
	executionhttp "github.com/meridianhq/execore/internal/handler/execution/http"
	"github.com/meridianhq/execore/internal/model"
	"github.com/meridianhq/execore/internal/testkit"
)

const testAPIKey = "test-key"

type nopPublisher struct{}

func (nopPublisher) PublishPositionEvent(context.Context, model.PositionEvent) error { return nil }

func setTestConfig(t *testing.T, keys ...config.APIKeyConfig) {
	t.Helper()
	prev := config.Env
	config.Env = &config.EnvConfig{APIKeys: keys}
	t.Cleanup(func() { config.Env = prev })
}

func activeKey() config.APIKeyConfig {
	return config.APIKeyConfig{Name: "test", Key: testAPIKey, Active: true}
}

// seededEngine replays an order through accept and full fill so the
// query surface has an order, an open position, and an account state.
func seededEngine(t *testing.T) *engine.Engine {
	t.Helper()

	clock := testkit.NewManualClock(testkit.UnixEpoch)
	eng := engine.New(model.OMSTypeNetting, clock, testkit.UUIDs(), nopPublisher{})
	ctx := context.Background()

	init := testkit.MarketOrderInit(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	require.NoError(t, eng.Process(ctx, init))
	order, err := model.NewOrder(init)
	require.NoError(t, err)

	submitted := testkit.OrderSubmitted(order)
	require.NoError(t, eng.Process(ctx, submitted))
	require.NoError(t, order.Apply(submitted))

	accepted := testkit.OrderAccepted(order, "V-1")
	require.NoError(t, eng.Process(ctx, accepted))
	require.NoError(t, order.Apply(accepted))

	fill := testkit.OrderFilled(order, testkit.InstrumentAUDUSD(), testkit.FillParams{})
	require.NoError(t, eng.Process(ctx, fill))

	require.NoError(t, eng.Process(ctx, testkit.AccountState(model.AccountID{})))
	return eng
}

func serve(handler *executionhttp.Handler, r *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	handler.Register(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func authedGet(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("X-API-Key", testAPIKey)
	return r
}

func TestOrdersRequiresAPIKey(t *testing.T) {
	setTestConfig(t, activeKey())
	handler := executionhttp.NewExecutionHTTPHandler(seededEngine(t))

	w := serve(handler, httptest.NewRequest(http.MethodGet, "/execution/v1/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/execution/v1/orders", nil)
	r.Header.Set("X-API-Key", "wrong-key")
	w = serve(handler, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOrdersByClOrdID(t *testing.T) {
	setTestConfig(t, activeKey())
	handler := executionhttp.NewExecutionHTTPHandler(seededEngine(t))

	w := serve(handler, authedGet("/execution/v1/orders?cl_ord_id=O-19700101-000000-000-001-1"))
	require.Equal(t, http.StatusOK, w.Code)

	var got executionhttp.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "O-19700101-000000-000-001-1", got.ClOrdID)
	assert.Equal(t, "V-1", got.OrderID.String)
	assert.Equal(t, "SIM-000", got.AccountID.String)
	assert.Equal(t, "AUD/USD.SIM,FX,SPOT", got.Security)
	assert.Equal(t, "FILLED", got.State)
	assert.Equal(t, "100000", got.FilledQty)
	assert.Equal(t, "0", got.LeavesQty)
	require.NotNil(t, got.AvgFillPrice)
	assert.Equal(t, "1.00000", *got.AvgFillPrice)
	assert.Nil(t, got.Price)
	assert.Equal(t, "P-AUD/USD.SIM-SCALPER-001", got.PositionID.String)
}

func TestOrdersList(t *testing.T) {
	setTestConfig(t, activeKey())
	handler := executionhttp.NewExecutionHTTPHandler(seededEngine(t))

	w := serve(handler, authedGet("/execution/v1/orders"))
	require.Equal(t, http.StatusOK, w.Code)

	var got []executionhttp.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)

	// a filled order is no longer working
	w = serve(handler, authedGet("/execution/v1/orders?working=true"))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got)
}

func TestOrdersNotFound(t *testing.T) {
	setTestConfig(t, activeKey())
	handler := executionhttp.NewExecutionHTTPHandler(seededEngine(t))

	w := serve(handler, authedGet("/execution/v1/orders?cl_ord_id=O-UNKNOWN"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPositionsByID(t *testing.T) {
	setTestConfig(t, activeKey())
	handler := executionhttp.NewExecutionHTTPHandler(seededEngine(t))

	w := serve(handler, authedGet("/execution/v1/positions?position_id=P-AUD/USD.SIM-SCALPER-001"))
	require.Equal(t, http.StatusOK, w.Code)

	var got executionhttp.PositionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "P-AUD/USD.SIM-SCALPER-001", got.PositionID)
	assert.Equal(t, "SIM-000", got.AccountID)
	assert.Equal(t, "LONG", got.Side)
	assert.Equal(t, "100000", got.Quantity)
	assert.Equal(t, "1.00000", got.AvgOpenPrice)
	assert.True(t, got.IsOpen)
	assert.Nil(t, got.ClosedTime)
	assert.Equal(t, "USD", got.QuoteCurrency)
}

func TestPositionsOpenFilter(t *testing.T) {
	setTestConfig(t, activeKey())
	handler := executionhttp.NewExecutionHTTPHandler(seededEngine(t))

	w := serve(handler, authedGet("/execution/v1/positions?open=true"))
	require.Equal(t, http.StatusOK, w.Code)

	var got []executionhttp.PositionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "P-AUD/USD.SIM-SCALPER-001", got[0].PositionID)
}

func TestAccountEndpoint(t *testing.T) {
	setTestConfig(t, activeKey())
	handler := executionhttp.NewExecutionHTTPHandler(seededEngine(t))

	w := serve(handler, authedGet("/execution/v1/accounts?account_id=SIM-000"))
	require.Equal(t, http.StatusOK, w.Code)

	var got executionhttp.AccountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "SIM-000", got.AccountID)
	assert.NotEmpty(t, got.BalancesFree)

	w = serve(handler, authedGet("/execution/v1/accounts?account_id=IB-999"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(handler, authedGet("/execution/v1/accounts"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIKeyStates(t *testing.T) {
	expired := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	future := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)

	tests := []struct {
		name     string
		key      config.APIKeyConfig
		wantCode int
	}{
		{"active without expiry", config.APIKeyConfig{Key: testAPIKey, Active: true}, http.StatusOK},
		{"active with future expiry", config.APIKeyConfig{Key: testAPIKey, Active: true, ExpiredAt: future}, http.StatusOK},
		{"expired", config.APIKeyConfig{Key: testAPIKey, Active: true, ExpiredAt: expired}, http.StatusUnauthorized},
		{"inactive", config.APIKeyConfig{Key: testAPIKey, Active: false}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTestConfig(t, tt.key)
			handler := executionhttp.NewExecutionHTTPHandler(seededEngine(t))
			w := serve(handler, authedGet("/execution/v1/orders"))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
