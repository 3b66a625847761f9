// Package mock implements the upstream the dashboard consumes in demo
// mode: a generated token universe behind the snapshot REST endpoints
// and a WebSocket feed of client-generated market noise.
package mock

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"filippo.io/edwards25519"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"token-dashboard/internal/domain"
	"token-dashboard/internal/stream"
)

// UniverseSize is the number of tokens in the generated universe.
const UniverseSize = 100

var (
	baseSymbols  = []string{"ETH", "SOL", "USDC", "WBTC", "AVAX", "LINK", "UNI", "AAVE", "DOGE", "PEPE"}
	quoteSymbols = []string{"USDT", "USDC", "DAI", "BUSD"}
	tagPool      = []string{"DeFi", "NFT", "GameFi", "AI", "Meme", "RWA", "L2"}
)

// Generator owns the mock universe and evolves its prices over time.
// All methods are safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	tokens []*domain.Token
	now    func() time.Time
}

// NewGenerator builds a deterministic universe from the seed.
func NewGenerator(seed int64) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
	g.tokens = make([]*domain.Token, 0, UniverseSize)
	for i := 0; i < UniverseSize; i++ {
		g.tokens = append(g.tokens, g.makeToken(i))
	}
	return g
}

func (g *Generator) makeToken(i int) *domain.Token {
	chains := domain.Chains()
	chain := chains[i%len(chains)]
	category := domain.Categories()[i%3]
	price := 100 + g.rng.Float64()*1000
	now := g.now().UnixMilli()

	chart := make([]domain.ChartPoint, 0, domain.ChartSeriesCap)
	for p := 0; p < domain.ChartSeriesCap; p++ {
		chart = append(chart, domain.ChartPoint{
			Time:  now - int64(domain.ChartSeriesCap-1-p)*3600_000,
			Value: price * (0.9 + g.rng.Float64()*0.2),
		})
	}

	// The symbol pool is smaller than the universe; suffix repeats so
	// every token trades a distinct pair.
	base := baseSymbols[i%len(baseSymbols)]
	if n := i / len(baseSymbols); n > 0 {
		base = fmt.Sprintf("%s%d", base, n+1)
	}

	tagStart := g.rng.Intn(len(tagPool))
	tagCount := 1 + g.rng.Intn(3)
	tags := make([]string, 0, tagCount)
	for t := 0; t < tagCount; t++ {
		tags = append(tags, tagPool[(tagStart+t)%len(tagPool)])
	}

	return &domain.Token{
		ID:             g.tokenAddress(chain),
		Pair:           fmt.Sprintf("%s/%s", base, quoteSymbols[i%len(quoteSymbols)]),
		Name:           fmt.Sprintf("Token %d", i+1),
		Price:          price,
		PreviousPrice:  price,
		Change24h:      (g.rng.Float64() - 0.5) * 20,
		Volume24h:      g.rng.Float64() * 1_000_000,
		Trades24h:      int64(g.rng.Intn(10_000)),
		Liquidity:      g.rng.Float64() * 5_000_000,
		LiquidityScore: g.rng.Float64(),
		Age:            fmt.Sprintf("%dd %dh", g.rng.Intn(30), g.rng.Intn(24)),
		Category:       category,
		Chain:          chain,
		Tags:           tags,
		ChartData:      chart,
	}
}

// tokenAddress produces a chain-appropriate identifier: a base58
// on-curve ed25519 point for solana, a 0x hex address otherwise.
func (g *Generator) tokenAddress(chain string) string {
	if chain == domain.ChainSolana {
		wide := make([]byte, 64)
		g.rng.Read(wide)
		scalar, err := new(edwards25519.Scalar).SetUniformBytes(wide)
		if err == nil {
			point := new(edwards25519.Point).ScalarBaseMult(scalar)
			return base58.Encode(point.Bytes())
		}
	}
	buf := make([]byte, 20)
	g.rng.Read(buf)
	return "0x" + hex.EncodeToString(buf)
}

// Tokens returns a deep copy of the current universe.
func (g *Generator) Tokens() []*domain.Token {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*domain.Token, 0, len(g.tokens))
	for _, t := range g.tokens {
		out = append(out, t.Clone())
	}
	return out
}

// Token returns one token by id, or nil.
func (g *Generator) Token(id string) *domain.Token {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, t := range g.tokens {
		if t.ID == id {
			return t.Clone()
		}
	}
	return nil
}

// PriceUpdates advances n random tokens by up to ±5% and returns the
// corresponding stream events.
func (g *Generator) PriceUpdates(n int) []stream.PriceUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n > len(g.tokens) {
		n = len(g.tokens)
	}
	now := g.now().UnixMilli()
	updates := make([]stream.PriceUpdate, 0, n)
	for _, idx := range g.rng.Perm(len(g.tokens))[:n] {
		tok := g.tokens[idx]
		change := (g.rng.Float64() - 0.5) * 0.1
		tok.PreviousPrice = tok.Price
		tok.Price *= 1 + change
		tok.Change24h = change * 100
		tok.Volume24h += g.rng.Float64() * 10_000

		updates = append(updates, stream.PriceUpdate{
			TokenID:   tok.ID,
			Pair:      tok.Pair,
			Price:     tok.Price,
			Change24h: tok.Change24h,
			Volume24h: tok.Volume24h,
			Timestamp: now,
		})
	}
	return updates
}

// Trade fabricates one executed trade on a random pair.
func (g *Generator) Trade() stream.TradeExecution {
	g.mu.Lock()
	defer g.mu.Unlock()

	tok := g.tokens[g.rng.Intn(len(g.tokens))]
	side := domain.SideBuy
	if g.rng.Intn(2) == 1 {
		side = domain.SideSell
	}
	return stream.TradeExecution{
		TradeID:   uuid.NewString(),
		Pair:      tok.Pair,
		Side:      side,
		Price:     tok.Price * (1 + (g.rng.Float64()-0.5)*0.01),
		Amount:    g.rng.Float64() * 10,
		Timestamp: g.now().UnixMilli(),
	}
}

// Book fabricates a ten-level order book around a random token's price.
func (g *Generator) Book() stream.OrderBookUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()

	tok := g.tokens[g.rng.Intn(len(g.tokens))]
	bids := make([]domain.BookLevel, 0, 10)
	asks := make([]domain.BookLevel, 0, 10)
	for i := 0; i < 10; i++ {
		bids = append(bids, domain.BookLevel{
			Price:  tok.Price * (0.99 - float64(i)*0.001),
			Amount: g.rng.Float64() * 100,
			Total:  g.rng.Float64() * 100_000,
		})
		asks = append(asks, domain.BookLevel{
			Price:  tok.Price * (1.01 + float64(i)*0.001),
			Amount: g.rng.Float64() * 100,
			Total:  g.rng.Float64() * 100_000,
		})
	}
	return stream.OrderBookUpdate{
		Pair:      tok.Pair,
		Bids:      bids,
		Asks:      asks,
		Timestamp: g.now().UnixMilli(),
	}
}

// Stats aggregates the universe into the market summary.
func (g *Generator) Stats() domain.MarketStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	var volume, marketCap float64
	for _, t := range g.tokens {
		volume += t.Volume24h
		marketCap += t.Liquidity
	}
	return domain.MarketStats{
		TotalTokens:   int64(len(g.tokens)),
		TotalVolume:   volume,
		ActiveTraders: int64(1000 + g.rng.Intn(9000)),
		MarketCap:     marketCap,
	}
}
