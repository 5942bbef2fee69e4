// Package pricing computes the checkout amount and the fee split for a
// registration. It is pure: callers load the rate sheet and the coupon
// discount, the engine only does arithmetic.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategorySingle   Category = "single"
	CategoryTeam     Category = "team"
	CategoryCouple   Category = "couple"
	CategoryReferrer Category = "referrer"
)

func ParseCategory(raw string) (Category, error) {
	switch Category(raw) {
	case CategorySingle, CategoryTeam, CategoryCouple, CategoryReferrer:
		return Category(raw), nil
	case "":
		return CategorySingle, nil
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// RateSheet is the per-route price table. ReferrerDiscount is a
// percentage taken off the single rate for referred registrations.
type RateSheet struct {
	Single           decimal.Decimal
	Team             decimal.Decimal
	Couple           decimal.Decimal
	ReferrerDiscount decimal.Decimal
}

type Config struct {
	MinimumAmount decimal.Decimal
	FixedFee      decimal.Decimal
	ProcessorRate decimal.Decimal
	PlatformRate  decimal.Decimal
}

// Breakdown is derived on every checkout request and never persisted
// as-is. All amounts share the route currency's major unit; the
// checkout issuer converts to minor units.
type Breakdown struct {
	// GrossAmount is what the payer is charged, coupon already applied.
	GrossAmount decimal.Decimal
	// AmountBeforeFees is the gross with processor and platform fees
	// backed out: B = (G - F0) / (1 + P1 + P2).
	AmountBeforeFees decimal.Decimal
	ProcessorFee     decimal.Decimal
	PlatformFee      decimal.Decimal
	MerchantNet      decimal.Decimal
}

var (
	ErrBelowMinimum = errors.New("amount below chargeable minimum")
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Compute selects the base amount for the category, applies the coupon
// discount and splits fees. discountPct must be in [0, 100]; pass zero
// when no coupon is in play. The minimum-amount check runs against the
// category-selected base, before any discount.
func Compute(rates RateSheet, category Category, discountPct decimal.Decimal, cfg Config) (Breakdown, error) {
	var base decimal.Decimal
	switch category {
	case CategoryTeam:
		base = rates.Team
	case CategoryCouple:
		base = rates.Couple
	case CategoryReferrer:
		base = applyDiscount(rates.Single, rates.ReferrerDiscount)
	default:
		base = rates.Single
	}

	if base.LessThan(cfg.MinimumAmount) {
		return Breakdown{}, ErrBelowMinimum
	}

	gross := applyDiscount(base, discountPct)

	rateSum := one.Add(cfg.ProcessorRate).Add(cfg.PlatformRate)
	beforeFees := gross.Sub(cfg.FixedFee).Div(rateSum)
	processorFee := beforeFees.Mul(cfg.ProcessorRate).Add(cfg.FixedFee)
	platformFee := beforeFees.Mul(cfg.PlatformRate)
	merchantNet := beforeFees.Sub(platformFee)

	return Breakdown{
		GrossAmount:      gross.Round(2),
		AmountBeforeFees: beforeFees.Round(2),
		ProcessorFee:     processorFee.Round(2),
		PlatformFee:      platformFee.Round(2),
		MerchantNet:      merchantNet.Round(2),
	}, nil
}

func applyDiscount(amount, pct decimal.Decimal) decimal.Decimal {
	if pct.IsZero() {
		return amount
	}
	return amount.Mul(one.Sub(pct.Div(hundred)))
}
