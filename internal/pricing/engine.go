package pricing

import (
	"errors"
	"fmt"
)

// DiscountKind selects how a cart discount is interpreted.
type DiscountKind string

const (
	// DiscountNone applies no discount.
	DiscountNone DiscountKind = ""
	// DiscountPercentage interprets Value as a percentage of the subtotal.
	DiscountPercentage DiscountKind = "percentage"
	// DiscountFixed interprets Value as an absolute currency amount.
	DiscountFixed DiscountKind = "fixed"
)

// Discount describes the cart-level discount configuration.
type Discount struct {
	Kind  DiscountKind `json:"kind"`
	Value float64      `json:"value"`
}

// LineItem is one product entry in an active cart.
type LineItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category,omitempty"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// PricedLine carries enough per-line detail to reconstruct a persisted sale record.
type PricedLine struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Quantity            int     `json:"quantity"`
	UnitPrice           float64 `json:"unit_price"`
	DiscountedUnitPrice float64 `json:"discounted_unit_price"`
	Subtotal            float64 `json:"subtotal"`
	Discount            float64 `json:"discount"`
}

// Result aggregates computed cart totals.
type Result struct {
	Lines    []PricedLine `json:"lines"`
	Subtotal float64      `json:"subtotal"`
	Discount float64      `json:"discount"`
	Tax      float64      `json:"tax"`
	Total    float64      `json:"total"`
}

var (
	// ErrInvalidQuantity is returned for lines with a quantity below one.
	ErrInvalidQuantity = errors.New("pricing: quantity must be at least 1")
	// ErrNegativePrice is returned for lines with a negative unit price.
	ErrNegativePrice = errors.New("pricing: unit price must not be negative")
	// ErrNegativeDiscount is returned for discounts with a negative value.
	ErrNegativeDiscount = errors.New("pricing: discount value must not be negative")
	// ErrNegativeTaxRate is returned for a negative tax rate.
	ErrNegativeTaxRate = errors.New("pricing: tax rate must not be negative")
)

// Price computes cart totals with proportional per-line discount allocation.
//
// The discount is applied to the subtotal first (a fixed discount is clamped
// to the subtotal so the total never goes negative), then allocated to each
// line in proportion to the line's share of the subtotal, and tax is charged
// on the discounted subtotal. An empty cart prices to all zeroes regardless
// of the discount configuration.
func Price(items []LineItem, discount Discount, taxRate float64) (Result, error) {
	if taxRate < 0 {
		return Result{}, ErrNegativeTaxRate
	}
	if discount.Value < 0 {
		return Result{}, ErrNegativeDiscount
	}

	var subtotal float64
	for i, it := range items {
		if it.Quantity < 1 {
			return Result{}, fmt.Errorf("%w (line %d)", ErrInvalidQuantity, i)
		}
		if it.UnitPrice < 0 {
			return Result{}, fmt.Errorf("%w (line %d)", ErrNegativePrice, i)
		}
		subtotal += it.UnitPrice * float64(it.Quantity)
	}

	var discountAmount float64
	if subtotal > 0 {
		switch discount.Kind {
		case DiscountPercentage:
			discountAmount = subtotal * discount.Value / 100
		case DiscountFixed:
			discountAmount = discount.Value
		case DiscountNone:
		default:
			return Result{}, fmt.Errorf("pricing: unknown discount kind %q", discount.Kind)
		}
		if discountAmount > subtotal {
			discountAmount = subtotal
		}
	}

	lines := make([]PricedLine, 0, len(items))
	for _, it := range items {
		lineSubtotal := it.UnitPrice * float64(it.Quantity)
		var lineDiscount float64
		if subtotal > 0 {
			lineDiscount = discountAmount * (lineSubtotal / subtotal)
		}
		lines = append(lines, PricedLine{
			ID:                  it.ID,
			Name:                it.Name,
			Quantity:            it.Quantity,
			UnitPrice:           it.UnitPrice,
			DiscountedUnitPrice: (lineSubtotal - lineDiscount) / float64(it.Quantity),
			Subtotal:            lineSubtotal,
			Discount:            lineDiscount,
		})
	}

	taxable := subtotal - discountAmount
	tax := taxable * taxRate
	return Result{
		Lines:    lines,
		Subtotal: subtotal,
		Discount: discountAmount,
		Tax:      tax,
		Total:    taxable + tax,
	}, nil
}
