package domain

// Position is an open exposure derived from one or more filled orders on
// the same token and side. Entry price is volume-weighted across the
// constituent fills.
//
// The P&L and liquidation formulas below are the documented placeholder
// business math, not a verified risk model. They live here so a real
// model can replace them in one place.
type Position struct {
	ID               string  `json:"id"`
	TokenID          string  `json:"tokenId"`
	Pair             string  `json:"pair"`
	Side             Side    `json:"side"`
	Amount           float64 `json:"amount"`
	EntryPrice       float64 `json:"entryPrice"` // VWAP across fills
	CurrentPrice     float64 `json:"currentPrice"`
	PnL              float64 `json:"pnl"`
	PnLPercent       float64 `json:"pnlPercentage"`
	Margin           float64 `json:"margin"`
	Leverage         float64 `json:"leverage"`
	LiquidationPrice float64 `json:"liquidationPrice"`
	OpenedAt         int64   `json:"openedAt"` // Unix timestamp in milliseconds
}

// AbsorbFill merges a fill on the same token+side into the position,
// recomputing the volume-weighted entry price. The fill's notional is
// added to the position margin so the liquidation distance grows with
// the exposure.
func (p *Position) AbsorbFill(price, amount float64) {
	total := p.Amount + amount
	if total <= 0 {
		return
	}
	p.EntryPrice = (p.EntryPrice*p.Amount + price*amount) / total
	p.Amount = total
	if p.Leverage > 0 {
		p.Margin += price * amount / p.Leverage
	}
	p.Recompute()
}

// MarkPrice updates the current price and recomputes derived fields.
func (p *Position) MarkPrice(price float64) {
	p.CurrentPrice = price
	p.Recompute()
}

// Recompute refreshes P&L, P&L percentage and liquidation price from the
// position's current fields.
func (p *Position) Recompute() {
	diff := p.CurrentPrice - p.EntryPrice
	if p.Side == SideSell {
		diff = -diff
	}
	p.PnL = diff * p.Amount
	if p.EntryPrice > 0 && p.Amount > 0 {
		p.PnLPercent = p.PnL / (p.EntryPrice * p.Amount) * 100
	} else {
		p.PnLPercent = 0
	}
	p.LiquidationPrice = p.liquidation()
}

// liquidation returns the price at which 90% of the position margin is
// consumed: entry -/+ (margin/amount)*0.9 for long/short. Positions
// without a recorded margin fall back to notional/leverage.
func (p *Position) liquidation() float64 {
	if p.Amount <= 0 {
		return 0
	}
	margin := p.Margin
	if margin <= 0 {
		if p.Leverage <= 0 {
			return 0
		}
		margin = p.EntryPrice * p.Amount / p.Leverage
	}
	distance := margin / p.Amount * 0.9
	if p.Side == SideBuy {
		return p.EntryPrice - distance
	}
	return p.EntryPrice + distance
}
