package bootstrap

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/execore/internal/config"
	"github.com/meridianhq/execore/internal/model"
)

func TestParseOMSType(t *testing.T) {
	tests := []struct {
		raw     string
		want    model.OMSType
		wantErr bool
	}{
		{"NETTING", model.OMSTypeNetting, false},
		{"HEDGING", model.OMSTypeHedging, false},
		{"", model.OMSTypeNetting, false},
		{"netting", "", true},
		{"FIFO", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseOMSType(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildInstrumentRegistry(t *testing.T) {
	registry, err := buildInstrumentRegistry([]config.InstrumentConfig{
		{
			Security:       "AUD/USD.SIM,FX,SPOT",
			BaseCurrency:   "AUD",
			QuoteCurrency:  "USD",
			PricePrecision: 5,
			MakerFee:       decimal.RequireFromString("0.00002"),
			TakerFee:       decimal.RequireFromString("0.00002"),
		},
		{
			Security:       "BTC/USD.BITMEX,CRYPTO,SWAP",
			BaseCurrency:   "BTC",
			QuoteCurrency:  "USD",
			PricePrecision: 1,
			SizePrecision:  8,
			MakerFee:       decimal.RequireFromString("-0.00025"),
			TakerFee:       decimal.RequireFromString("0.00075"),
			IsInverse:      true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())

	security := model.NewSecurity("AUD/USD", "SIM", model.AssetClassFX, model.AssetTypeSpot)
	inst, err := registry.Get(security)
	require.NoError(t, err)
	assert.Equal(t, model.USD, inst.QuoteCurrency())
	assert.False(t, inst.IsInverse())
}

func TestBuildInstrumentRegistryRejectsMalformedEntries(t *testing.T) {
	_, err := buildInstrumentRegistry([]config.InstrumentConfig{
		{Security: "not-a-security", BaseCurrency: "AUD", QuoteCurrency: "USD"},
	})
	assert.Error(t, err)

	_, err = buildInstrumentRegistry([]config.InstrumentConfig{
		{Security: "AUD/USD.SIM,FX,SPOT", BaseCurrency: "DOGE", QuoteCurrency: "USD"},
	})
	assert.Error(t, err)
}
