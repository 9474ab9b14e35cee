package pricing

import (
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/money"
)

// Rates carries the configured tax rates in basis points. Exempt goods are
// always taxed at zero.
type Rates struct {
	StandardBps int32
	ReducedBps  int32
}

// For returns the rate for a tax class. Unknown classes fall back to the
// standard rate rather than silently going untaxed.
func (r Rates) For(class catalog.TaxClass) int32 {
	switch class {
	case catalog.TaxExempt:
		return 0
	case catalog.TaxReduced:
		return r.ReducedBps
	default:
		return r.StandardBps
	}
}

// LineTotal is the priced form of one cart line. Discount includes the
// line's own discount plus its share of the sale discount.
type LineTotal struct {
	ProductID uuid.UUID        `json:"productId"`
	Name      string           `json:"name"`
	Qty       int32            `json:"qty"`
	UnitPrice money.Amount     `json:"unitPrice"`
	TaxClass  catalog.TaxClass `json:"taxClass"`
	Gross     money.Amount     `json:"gross"`
	Discount  money.Amount     `json:"discount"`
	Net       money.Amount     `json:"net"`
}

// TaxLine is one entry of the per-class tax breakdown.
type TaxLine struct {
	Class  catalog.TaxClass `json:"class"`
	Base   money.Amount     `json:"base"`
	Amount money.Amount     `json:"amount"`
}

// Totals is the result of pricing a cart snapshot.
type Totals struct {
	Lines        []LineTotal  `json:"lines"`
	Subtotal     money.Amount `json:"subtotal"`
	Discount     money.Amount `json:"discount"`
	TaxBreakdown []TaxLine    `json:"taxBreakdown"`
	Tax          money.Amount `json:"tax"`
	GrandTotal   money.Amount `json:"grandTotal"`
}

// taxClassOrder fixes the breakdown ordering so equal inputs always produce
// byte-equal output.
var taxClassOrder = []catalog.TaxClass{catalog.TaxStandard, catalog.TaxReduced, catalog.TaxExempt}

// Compute prices a cart snapshot. All arithmetic stays in minor units;
// rounding happens once per output figure, half to even. Line discounts
// apply first, then the sale discount is spread across the discounted line
// totals by the largest-remainder method, then tax is computed per class on
// the remaining net. The same snapshot and rates always yield the same
// totals.
func Compute(snap cart.Snapshot, rates Rates) Totals {
	totals := Totals{Lines: make([]LineTotal, 0, len(snap.Lines))}

	nets := make([]money.Amount, len(snap.Lines))
	var netSum money.Amount
	for i, ln := range snap.Lines {
		gross := ln.UnitPrice * money.Amount(ln.Qty)
		var off money.Amount
		if ln.Discount != nil {
			off = ln.Discount.AmountOff(gross)
		}
		net := gross - off
		totals.Lines = append(totals.Lines, LineTotal{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			Qty:       ln.Qty,
			UnitPrice: ln.UnitPrice,
			TaxClass:  ln.TaxClass,
			Gross:     gross,
			Discount:  off,
			Net:       net,
		})
		totals.Subtotal += gross
		totals.Discount += off
		nets[i] = net
		netSum += net
	}

	if snap.SaleDiscount != nil && netSum > 0 {
		saleOff := snap.SaleDiscount.AmountOff(netSum)
		shares := money.Allocate(saleOff, nets)
		for i, share := range shares {
			totals.Lines[i].Discount += share
			totals.Lines[i].Net -= share
		}
		totals.Discount += saleOff
	}

	baseByClass := map[catalog.TaxClass]money.Amount{}
	for _, lt := range totals.Lines {
		class := lt.TaxClass
		if !class.Valid() {
			class = catalog.TaxStandard
		}
		baseByClass[class] += lt.Net
	}
	var netTotal money.Amount
	for _, class := range taxClassOrder {
		base, ok := baseByClass[class]
		if !ok {
			continue
		}
		amount := money.ApplyBps(base, rates.For(class))
		totals.TaxBreakdown = append(totals.TaxBreakdown, TaxLine{Class: class, Base: base, Amount: amount})
		totals.Tax += amount
		netTotal += base
	}
	totals.GrandTotal = netTotal + totals.Tax
	return totals
}
