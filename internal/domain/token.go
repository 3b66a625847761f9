package domain

// ChartSeriesCap is the maximum number of points retained in a token's
// chart series. Appending beyond the cap evicts the oldest point.
const ChartSeriesCap = 24

// Category classifies where a token is in its listing lifecycle.
type Category string

const (
	CategoryNew          Category = "new"
	CategoryFinalStretch Category = "final-stretch"
	CategoryMigrated     Category = "migrated"
)

// String returns the string representation of Category.
func (c Category) String() string {
	return string(c)
}

// IsValid checks if the category is one of the three listing states.
func (c Category) IsValid() bool {
	return c == CategoryNew || c == CategoryFinalStretch || c == CategoryMigrated
}

// Categories lists all valid categories in display order.
func Categories() []Category {
	return []Category{CategoryNew, CategoryFinalStretch, CategoryMigrated}
}

// Known chain identifiers.
const (
	ChainEthereum = "ethereum"
	ChainSolana   = "solana"
	ChainBase     = "base"
	ChainArbitrum = "arbitrum"
	ChainPolygon  = "polygon"
	ChainBSC      = "bsc"
)

// Chains lists the chain identifiers tokens may carry.
func Chains() []string {
	return []string{ChainEthereum, ChainSolana, ChainBase, ChainArbitrum, ChainPolygon, ChainBSC}
}

// ChartPoint is a single point in a token's sliding price series.
type ChartPoint struct {
	Time  int64   `json:"time"`  // Unix timestamp in milliseconds
	Value float64 `json:"value"` // price at Time
}

// Token is the canonical record for a tradeable token as rendered by the
// dashboard. Price and volume fields are patched by stream events between
// snapshot refreshes.
type Token struct {
	ID             string       `json:"id"`
	Pair           string       `json:"pair"` // trading pair label, e.g. "ETH/USDT"
	Name           string       `json:"name"`
	Price          float64      `json:"price"`          // must be >= 0
	PreviousPrice  float64      `json:"previousPrice"`  // prior price, for transition coloring
	Change24h      float64      `json:"change24h"`      // percent
	Volume24h      float64      `json:"volume24h"`      // quote units
	Trades24h      int64        `json:"trades24h"`      // trade count
	Liquidity      float64      `json:"liquidity"`      // quote units
	LiquidityScore float64      `json:"liquidityScore"` // normalized to [0,1]
	Age            string       `json:"age"`            // human descriptor, e.g. "3d 14h"
	Category       Category     `json:"category"`
	Chain          string       `json:"chain"`
	Tags           []string     `json:"tags"`
	IsWatched      bool         `json:"isWatched"`
	ChartData      []ChartPoint `json:"chartData"` // bounded by ChartSeriesCap
}

// HasTag reports whether the token carries the given tag.
func (t *Token) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// AppendChartPoint appends one point to the chart series, evicting the
// oldest point when the series is at ChartSeriesCap.
func (t *Token) AppendChartPoint(p ChartPoint) {
	t.ChartData = append(t.ChartData, p)
	if len(t.ChartData) > ChartSeriesCap {
		t.ChartData = t.ChartData[len(t.ChartData)-ChartSeriesCap:]
	}
}

// Clone returns a deep copy of the token so callers can hold it without
// observing later store mutations.
func (t *Token) Clone() *Token {
	cp := *t
	cp.Tags = append([]string(nil), t.Tags...)
	cp.ChartData = append([]ChartPoint(nil), t.ChartData...)
	return &cp
}
