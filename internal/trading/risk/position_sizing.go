package risk

import (
	"errors"
	"fmt"
)

// ErrInvalidFraction is returned when an allocation fraction is outside (0, 1].
var ErrInvalidFraction = errors.New("allocation fraction must be in (0, 1]")

// Allocation sizes partial entries and exits: each buy deploys BuyFraction
// of the available cash, each sell releases SellFraction of the holdings.
type Allocation struct {
	BuyFraction  float64 `json:"buy_fraction"`
	SellFraction float64 `json:"sell_fraction"`
}

// AllIn deploys all cash on a buy and releases everything on a sell.
var AllIn = Allocation{BuyFraction: 1, SellFraction: 1}

// Validate checks both fractions.
func (a Allocation) Validate() error {
	if a.BuyFraction <= 0 || a.BuyFraction > 1 {
		return fmt.Errorf("buy fraction %.4f: %w", a.BuyFraction, ErrInvalidFraction)
	}
	if a.SellFraction <= 0 || a.SellFraction > 1 {
		return fmt.Errorf("sell fraction %.4f: %w", a.SellFraction, ErrInvalidFraction)
	}
	return nil
}

// PositionSizingResult describes one sized fill
type PositionSizingResult struct {
	Quantity float64 `json:"quantity"`
	Cash     float64 `json:"cash"`
}

// SizeBuy returns the quantity bought and the cash spent for a buy at price.
// Nothing is bought at a non-positive price or without cash.
func (a Allocation) SizeBuy(cash, price float64) PositionSizingResult {
	if cash <= 0 || price <= 0 {
		return PositionSizingResult{}
	}

	spend := cash * a.BuyFraction
	return PositionSizingResult{
		Quantity: spend / price,
		Cash:     spend,
	}
}

// SizeSell returns the quantity sold and the cash received for a sell at price.
func (a Allocation) SizeSell(quantity, price float64) PositionSizingResult {
	if quantity <= 0 || price <= 0 {
		return PositionSizingResult{}
	}

	sold := quantity * a.SellFraction
	return PositionSizingResult{
		Quantity: sold,
		Cash:     sold * price,
	}
}
