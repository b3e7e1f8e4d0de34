package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/meridianhq/execore/internal/config"
	"github.com/meridianhq/execore/internal/engine"
	"github.com/meridianhq/execore/internal/model"
)

var (
	errAPIKeyMissing  = errors.New("api key is required")
	errAPIKeyInvalid  = errors.New("invalid api key")
	errAPIKeyInactive = errors.New("api key is inactive")
	errAPIKeyExpired  = errors.New("api key is expired")
)

type OrderResponse struct {
	ClOrdID      string      `json:"cl_ord_id"`
	OrderID      null.String `json:"order_id"`
	AccountID    null.String `json:"account_id"`
	StrategyID   string      `json:"strategy_id"`
	Security     string      `json:"security"`
	Side         string      `json:"side"`
	Type         string      `json:"type"`
	Quantity     string      `json:"quantity"`
	TimeInForce  string      `json:"time_in_force"`
	State        string      `json:"state"`
	FilledQty    string      `json:"filled_qty"`
	LeavesQty    string      `json:"leaves_qty"`
	Price        *string     `json:"price,omitempty"`
	AvgFillPrice *string     `json:"avg_fill_price,omitempty"`
	PositionID   null.String `json:"position_id"`
	EventCount   int         `json:"event_count"`
	LastEvent    string      `json:"last_event"`
	InitTime     int64       `json:"init_time"`
}

type PositionResponse struct {
	PositionID    string `json:"position_id"`
	AccountID     string `json:"account_id"`
	StrategyID    string `json:"strategy_id"`
	Security      string `json:"security"`
	Side          string `json:"side"`
	NetQty        string `json:"net_qty"`
	Quantity      string `json:"quantity"`
	PeakQty       string `json:"peak_qty"`
	AvgOpenPrice  string `json:"avg_open_price"`
	RealizedPnL   string `json:"realized_pnl"`
	Commissions   string `json:"commissions"`
	IsInverse     bool   `json:"is_inverse"`
	IsOpen        bool   `json:"is_open"`
	OpenedTime    int64  `json:"opened_time"`
	ClosedTime    *int64 `json:"closed_time,omitempty"`
	FromOrder     string `json:"from_order"`
	QuoteCurrency string `json:"quote_currency"`
}

type AccountResponse struct {
	AccountID      string            `json:"account_id"`
	Balances       []string          `json:"balances"`
	BalancesFree   []string          `json:"balances_free"`
	BalancesLocked []string          `json:"balances_locked"`
	Info           map[string]string `json:"info,omitempty"`
	EventID        string            `json:"event_id"`
	EventTimestamp int64             `json:"event_timestamp"`
}

type Handler struct {
	engine *engine.Engine
}

func NewExecutionHTTPHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/execution/v1/orders", h.Orders)
	mux.HandleFunc("/execution/v1/positions", h.Positions)
	mux.HandleFunc("/execution/v1/accounts", h.Account)
}

// Orders serves the order projection: all orders, one order by
// ?cl_ord_id=, or only working orders with ?working=true.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	if err := validateAPIKey(resolveAPIKey(r)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	if clOrdID := strings.TrimSpace(r.URL.Query().Get("cl_ord_id")); clOrdID != "" {
		order, ok := h.engine.Order(model.ClientOrderID(clOrdID))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "order not found"})
			return
		}
		writeJSON(w, http.StatusOK, mapOrderToResponse(order))
		return
	}

	var orders []*model.Order
	if strings.EqualFold(r.URL.Query().Get("working"), "true") {
		orders = h.engine.WorkingOrders()
	} else {
		orders = h.engine.Orders()
	}

	resp := make([]*OrderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, mapOrderToResponse(order))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Positions serves position snapshots: all, one by ?position_id=, or
// only open exposure with ?open=true.
func (h *Handler) Positions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	if err := validateAPIKey(resolveAPIKey(r)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	if positionID := strings.TrimSpace(r.URL.Query().Get("position_id")); positionID != "" {
		snapshot, ok := h.engine.Position(model.PositionID(positionID))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "position not found"})
			return
		}
		writeJSON(w, http.StatusOK, mapSnapshotToResponse(snapshot))
		return
	}

	var snapshots []model.PositionSnapshot
	if strings.EqualFold(r.URL.Query().Get("open"), "true") {
		snapshots = h.engine.OpenPositions()
	} else {
		snapshots = h.engine.Positions()
	}

	resp := make([]*PositionResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		resp = append(resp, mapSnapshotToResponse(snapshot))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Account serves the latest venue-stated account balances.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	if err := validateAPIKey(resolveAPIKey(r)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("account_id"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "account_id is required"})
		return
	}

	accountID, err := model.AccountIDFromString(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid account_id"})
		return
	}

	state, ok := h.engine.Account(accountID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "account not found"})
		return
	}

	writeJSON(w, http.StatusOK, mapAccountToResponse(state))
}

func mapOrderToResponse(order *model.Order) *OrderResponse {
	resp := &OrderResponse{
		ClOrdID:     string(order.ClOrdID()),
		OrderID:     null.NewString(string(order.OrderID()), !order.OrderID().IsZero()),
		StrategyID:  order.StrategyID().String(),
		Security:    order.Security().SerializableString(),
		Side:        string(order.Side()),
		Type:        string(order.Type()),
		Quantity:    order.Quantity().String(),
		TimeInForce: string(order.TimeInForce()),
		State:       string(order.State()),
		FilledQty:   order.FilledQty().String(),
		LeavesQty:   order.LeavesQty().String(),
		PositionID:  null.NewString(string(order.PositionID()), !order.PositionID().IsZero()),
		EventCount:  order.EventCount(),
		LastEvent:   model.EventTypeName(order.LastEvent()),
		InitTime:    order.InitTime().UnixMilli(),
	}

	if !order.AccountID().IsZero() {
		resp.AccountID = null.StringFrom(order.AccountID().String())
	}

	if price, ok := order.Price(); ok {
		v := price.String()
		resp.Price = &v
	}

	if !order.AvgPrice().IsZero() {
		v := order.AvgPrice().String()
		resp.AvgFillPrice = &v
	}

	return resp
}

func mapSnapshotToResponse(snapshot model.PositionSnapshot) *PositionResponse {
	resp := &PositionResponse{
		PositionID:    string(snapshot.PositionID),
		AccountID:     snapshot.AccountID.String(),
		StrategyID:    snapshot.StrategyID.String(),
		Security:      snapshot.Security.SerializableString(),
		Side:          string(snapshot.Side),
		NetQty:        snapshot.NetQty.String(),
		Quantity:      snapshot.Quantity.String(),
		PeakQty:       snapshot.PeakQty.String(),
		AvgOpenPrice:  snapshot.AvgOpenPrice.String(),
		RealizedPnL:   snapshot.RealizedPnL.String(),
		Commissions:   snapshot.Commissions.String(),
		IsInverse:     snapshot.IsInverse,
		IsOpen:        snapshot.IsOpen,
		OpenedTime:    snapshot.OpenedTime.UnixMilli(),
		FromOrder:     string(snapshot.FromOrder),
		QuoteCurrency: snapshot.QuoteCurrency.Code,
	}

	if !snapshot.ClosedTime.IsZero() {
		v := snapshot.ClosedTime.UnixMilli()
		resp.ClosedTime = &v
	}

	return resp
}

func mapAccountToResponse(state *model.AccountState) *AccountResponse {
	return &AccountResponse{
		AccountID:      state.AccountID.String(),
		Balances:       moneyStrings(state.Balances),
		BalancesFree:   moneyStrings(state.BalancesFree),
		BalancesLocked: moneyStrings(state.BalancesLocked),
		Info:           state.Info,
		EventID:        state.EventID().String(),
		EventTimestamp: state.EventTimestamp().UnixMilli(),
	}
}

func moneyStrings(balances []model.Money) []string {
	out := make([]string, 0, len(balances))
	for _, balance := range balances {
		out = append(out, balance.String())
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func resolveAPIKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func validateAPIKey(rawAPIKey string) error {
	apiKey := strings.TrimSpace(rawAPIKey)
	if apiKey == "" {
		return errAPIKeyMissing
	}

	if config.Env == nil || len(config.Env.APIKeys) == 0 {
		return errAPIKeyInvalid
	}

	now := time.Now().UTC()
	for _, candidate := range config.Env.APIKeys {
		storedKey := strings.TrimSpace(candidate.Key)
		if storedKey == "" {
			continue
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(storedKey)) != 1 {
			continue
		}

		if !candidate.Active {
			return errAPIKeyInactive
		}

		expiredAt, hasExpiry, err := parseExpiry(candidate.ExpiredAt)
		if err != nil {
			return errAPIKeyInvalid
		}
		if !hasExpiry {
			return nil
		}

		if !now.Before(expiredAt) {
			return errAPIKeyExpired
		}

		return nil
	}

	return errAPIKeyInvalid
}

func parseExpiry(value any) (time.Time, bool, error) {
	if value == nil {
		return time.Time{}, false, nil
	}

	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false, nil
		}
		return v.UTC(), true, nil
	case string:
		raw := strings.TrimSpace(v)
		if raw == "" {
			return time.Time{}, false, nil
		}

		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			return parsed.UTC(), true, nil
		}

		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, false, err
		}

		return parsed.UTC().Add(24 * time.Hour), true, nil
	default:
		return time.Time{}, false, errors.New("unsupported expiry type")
	}
}
