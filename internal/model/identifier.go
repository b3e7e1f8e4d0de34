package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedIdentifier = errors.New("malformed identifier")

// Simple identifiers are typed strings so they stay comparable,
// serializable and impossible to mix up at compile time.
type (
	// Symbol is a venue-native instrument ticker, e.g. "AUD/USD".
	Symbol string
	// Venue names an exchange or trading venue, e.g. "SIM", "BINANCE".
	Venue string
	// ClientOrderID identifies an order on our side, e.g. "O-2020872378423".
	ClientOrderID string
	// OrderID is the venue-assigned order identifier. Empty until the
	// first OrderAccepted.
	OrderID string
	// PositionID identifies a position aggregate.
	PositionID string
	// ExecutionID identifies a single fill at the venue.
	ExecutionID string
)

func (s Symbol) IsZero() bool        { return s == "" }
func (v Venue) IsZero() bool         { return v == "" }
func (c ClientOrderID) IsZero() bool { return c == "" }
func (o OrderID) IsZero() bool       { return o == "" }
func (p PositionID) IsZero() bool    { return p == "" }
func (e ExecutionID) IsZero() bool   { return e == "" }

// Security identifies a tradeable instrument. Two securities with the
// same serializable form are equal; pointer identity is provided by an
// ObjectCache keyed on that form.
type Security struct {
	symbol     Symbol
	venue      Venue
	assetClass AssetClass
	assetType  AssetType
}

// NewSecurity builds a security identifier from its parts.
func NewSecurity(symbol Symbol, venue Venue, class AssetClass, typ AssetType) *Security {
	return &Security{symbol: symbol, venue: venue, assetClass: class, assetType: typ}
}

func (s *Security) Symbol() Symbol         { return s.symbol }
func (s *Security) Venue() Venue           { return s.venue }
func (s *Security) AssetClass() AssetClass { return s.assetClass }
func (s *Security) AssetType() AssetType   { return s.assetType }

// String renders the display form "{symbol}.{venue}".
func (s *Security) String() string {
	return string(s.symbol) + "." + string(s.venue)
}

// SerializableString renders the canonical round-trip form
// "{symbol}.{venue},{asset_class},{asset_type}".
func (s *Security) SerializableString() string {
	return fmt.Sprintf("%s.%s,%s,%s", s.symbol, s.venue, s.assetClass, s.assetType)
}

// Equal compares by value, not identity.
func (s *Security) Equal(other *Security) bool {
	if s == nil || other == nil {
		return s == other
	}
	return *s == *other
}

// SecurityFromSerializableString parses the canonical form produced by
// SerializableString. The symbol may itself contain dots; the venue is
// everything after the last dot of the first segment.
func SecurityFromSerializableString(value string) (*Security, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: security %q", ErrMalformedIdentifier, value)
	}
	dot := strings.LastIndex(parts[0], ".")
	if dot <= 0 || dot == len(parts[0])-1 {
		return nil, fmt.Errorf("%w: security %q", ErrMalformedIdentifier, value)
	}
	return &Security{
		symbol:     Symbol(parts[0][:dot]),
		venue:      Venue(parts[0][dot+1:]),
		assetClass: AssetClass(parts[1]),
		assetType:  AssetType(parts[2]),
	}, nil
}

func (s Security) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.SerializableString() + `"`), nil
}

func (s *Security) UnmarshalJSON(data []byte) error {
	parsed, err := SecurityFromSerializableString(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// AccountID identifies a trading account as "{issuer}-{number}".
type AccountID struct {
	Issuer string
	Number string
}

func NewAccountID(issuer, number string) AccountID {
	return AccountID{Issuer: issuer, Number: number}
}

func (a AccountID) String() string { return a.Issuer + "-" + a.Number }
func (a AccountID) IsZero() bool   { return a.Issuer == "" && a.Number == "" }

// AccountIDFromString parses "{issuer}-{number}".
func AccountIDFromString(value string) (AccountID, error) {
	issuer, number, ok := strings.Cut(value, "-")
	if !ok || issuer == "" || number == "" {
		return AccountID{}, fmt.Errorf("%w: account id %q", ErrMalformedIdentifier, value)
	}
	return AccountID{Issuer: issuer, Number: number}, nil
}

func (a AccountID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *AccountID) UnmarshalJSON(data []byte) error {
	parsed, err := AccountIDFromString(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// StrategyID identifies a strategy instance as "{name}-{tag}".
type StrategyID struct {
	Name string
	Tag  string
}

func NewStrategyID(name, tag string) StrategyID {
	return StrategyID{Name: name, Tag: tag}
}

func (s StrategyID) String() string { return s.Name + "-" + s.Tag }
func (s StrategyID) IsZero() bool   { return s.Name == "" && s.Tag == "" }

// StrategyIDFromString parses "{name}-{tag}".
func StrategyIDFromString(value string) (StrategyID, error) {
	name, tag, ok := strings.Cut(value, "-")
	if !ok || name == "" || tag == "" {
		return StrategyID{}, fmt.Errorf("%w: strategy id %q", ErrMalformedIdentifier, value)
	}
	return StrategyID{Name: name, Tag: tag}, nil
}

func (s StrategyID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *StrategyID) UnmarshalJSON(data []byte) error {
	parsed, err := StrategyIDFromString(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// TraderID identifies a trader as "{name}-{tag}".
type TraderID struct {
	Name string
	Tag  string
}

func NewTraderID(name, tag string) TraderID {
	return TraderID{Name: name, Tag: tag}
}

func (t TraderID) String() string { return t.Name + "-" + t.Tag }
func (t TraderID) IsZero() bool   { return t.Name == "" && t.Tag == "" }

// TraderIDFromString parses "{name}-{tag}".
func TraderIDFromString(value string) (TraderID, error) {
	name, tag, ok := strings.Cut(value, "-")
	if !ok || name == "" || tag == "" {
		return TraderID{}, fmt.Errorf("%w: trader id %q", ErrMalformedIdentifier, value)
	}
	return TraderID{Name: name, Tag: tag}, nil
}
