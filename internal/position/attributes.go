package position

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Attribute keys written on the position asset
const (
	AttrBaseAmount       = "base_amount"
	AttrQuoteAmount      = "quote_amount"
	AttrDepositAmount    = "deposit_amount"
	AttrEntryPrice       = "entry_price"
	AttrShortPrice       = "short_price"
	AttrStartTime        = "start_time"
	AttrLiquidationPrice = "liquidation_price"
)

// ParseAttributes turns the asset's attribute list into a position.
//
// A short carries short_price and a long carries entry_price. For a short
// base_amount is the borrowed base and quote_amount the quote received; a
// long is the mirror image.
func ParseAttributes(attrs []Attribute) (LeveragedPosition, error) {
	values := make(map[string]string, len(attrs))
	for _, a := range attrs {
		key := strings.TrimSpace(a.Key)
		if key == "" {
			return LeveragedPosition{}, &AttributeError{Key: "(empty)", Reason: "empty key"}
		}
		if _, dup := values[key]; dup {
			return LeveragedPosition{}, &AttributeError{Key: key, Reason: "duplicate key"}
		}
		values[key] = strings.TrimSpace(a.Value)
	}

	_, hasShort := values[AttrShortPrice]
	_, hasEntry := values[AttrEntryPrice]

	var (
		pos      LeveragedPosition
		priceKey string
	)
	switch {
	case hasShort && hasEntry:
		return LeveragedPosition{}, &AttributeError{Key: AttrShortPrice, Reason: "both short_price and entry_price present"}
	case hasShort:
		pos.Direction = Short
		priceKey = AttrShortPrice
	case hasEntry:
		pos.Direction = Long
		priceKey = AttrEntryPrice
	default:
		return LeveragedPosition{}, &AttributeError{Key: AttrEntryPrice, Reason: "missing entry_price or short_price"}
	}

	baseAmount, err := parseAmount(values, AttrBaseAmount)
	if err != nil {
		return LeveragedPosition{}, err
	}
	quoteAmount, err := parseAmount(values, AttrQuoteAmount)
	if err != nil {
		return LeveragedPosition{}, err
	}
	if pos.DepositAmount, err = parseAmount(values, AttrDepositAmount); err != nil {
		return LeveragedPosition{}, err
	}
	if pos.OpenTimestamp, err = parseAmount(values, AttrStartTime); err != nil {
		return LeveragedPosition{}, err
	}
	if pos.EntryPrice, err = parsePrice(values, priceKey); err != nil {
		return LeveragedPosition{}, err
	}
	if pos.LiquidationPrice, err = parsePrice(values, AttrLiquidationPrice); err != nil {
		return LeveragedPosition{}, err
	}

	if pos.Direction == Short {
		pos.BorrowedAmount, pos.EntryValue = baseAmount, quoteAmount
	} else {
		pos.BorrowedAmount, pos.EntryValue = quoteAmount, baseAmount
	}
	if pos.BorrowedAmount == 0 {
		return LeveragedPosition{}, &AttributeError{Key: borrowedKey(pos.Direction), Reason: "borrowed amount is zero"}
	}

	return pos, nil
}

// Attributes renders a position back into its attribute list
func (p LeveragedPosition) Attributes() []Attribute {
	baseAmount, quoteAmount := p.BorrowedAmount, p.EntryValue
	priceKey := AttrShortPrice
	if p.Direction == Long {
		baseAmount, quoteAmount = p.EntryValue, p.BorrowedAmount
		priceKey = AttrEntryPrice
	}

	return []Attribute{
		{Key: AttrBaseAmount, Value: strconv.FormatUint(baseAmount, 10)},
		{Key: AttrQuoteAmount, Value: strconv.FormatUint(quoteAmount, 10)},
		{Key: AttrDepositAmount, Value: strconv.FormatUint(p.DepositAmount, 10)},
		{Key: priceKey, Value: decimal.NewFromFloat(p.EntryPrice).String()},
		{Key: AttrStartTime, Value: strconv.FormatUint(p.OpenTimestamp, 10)},
		{Key: AttrLiquidationPrice, Value: decimal.NewFromFloat(p.LiquidationPrice).String()},
	}
}

func borrowedKey(d Direction) string {
	if d == Long {
		return AttrQuoteAmount
	}
	return AttrBaseAmount
}

func parseAmount(values map[string]string, key string) (uint64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, &AttributeError{Key: key, Reason: "missing"}
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &AttributeError{Key: key, Reason: "not an unsigned integer"}
	}
	return n, nil
}

func parsePrice(values map[string]string, key string) (float64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, &AttributeError{Key: key, Reason: "missing"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, &AttributeError{Key: key, Reason: "not a decimal"}
	}
	if d.IsNegative() {
		return 0, &AttributeError{Key: key, Reason: "negative"}
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, &AttributeError{Key: key, Reason: "out of range"}
	}
	return f, nil
}
