// Package view derives the rendered slice of the token table: a pure
// filter → sort → paginate computation over the entity store contents.
// It is deterministic and side-effect free, safe to recompute on every
// state change.
package view

import (
	"sort"

	"token-dashboard/internal/domain"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

// DefaultPageSize matches the dashboard table default.
const DefaultPageSize = 20

// Sortable keys. Numeric keys compare numerically, string keys by
// case-sensitive ordinal order.
type SortKey string

const (
	SortByPair           SortKey = "pair"
	SortByName           SortKey = "name"
	SortByPrice          SortKey = "price"
	SortByChange24h      SortKey = "change24h"
	SortByVolume24h      SortKey = "volume24h"
	SortByTrades24h      SortKey = "trades24h"
	SortByLiquidity      SortKey = "liquidity"
	SortByLiquidityScore SortKey = "liquidityScore"
	SortByAge            SortKey = "age"
)

// State is the caller-owned filter/sort/page selection, passed by value
// so the pipeline can never mutate shared state.
type State struct {
	Category     string   // exact category, or CategoryAll / empty for all
	Chains       []string // empty = all chains
	Tags         []string // empty = no tag constraint
	MinLiquidity float64  // inclusive threshold
	SortKey      SortKey  // empty = keep baseline order
	SortDesc     bool
	Page         int // 1-indexed; the pipeline does not clamp
	PageSize     int
}

// Result is the exact slice the presentation layer renders.
type Result struct {
	Tokens     []*domain.Token
	Total      int
	Page       int
	TotalPages int
}

// Page filters, sorts and paginates the tokens. The input slice is never
// mutated; ties keep the original order (stable sort, no secondary key).
// An out-of-range page yields an empty slice, not an error.
func Page(tokens []*domain.Token, s State) Result {
	filtered := filter(tokens, s)
	sortTokens(filtered, s.SortKey, s.SortDesc)

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := s.Page
	if page <= 0 {
		page = 1
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start >= total {
		return Result{Tokens: []*domain.Token{}, Total: total, Page: page, TotalPages: totalPages}
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return Result{Tokens: filtered[start:end], Total: total, Page: page, TotalPages: totalPages}
}

// filter applies category, chain, tag and liquidity constraints in that
// order, returning a fresh slice.
func filter(tokens []*domain.Token, s State) []*domain.Token {
	out := make([]*domain.Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok == nil {
			continue
		}
		if s.Category != "" && s.Category != CategoryAll && string(tok.Category) != s.Category {
			continue
		}
		if len(s.Chains) > 0 && !contains(s.Chains, tok.Chain) {
			continue
		}
		if len(s.Tags) > 0 && !anyTag(tok, s.Tags) {
			continue
		}
		if tok.Liquidity < s.MinLiquidity {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func sortTokens(tokens []*domain.Token, key SortKey, desc bool) {
	if key == "" {
		return
	}
	numeric, str := comparators(key)
	if numeric == nil && str == nil {
		return
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		if numeric != nil {
			a, b := numeric(tokens[i]), numeric(tokens[j])
			if desc {
				return a > b
			}
			return a < b
		}
		a, b := str(tokens[i]), str(tokens[j])
		if desc {
			return a > b
		}
		return a < b
	})
}

func comparators(key SortKey) (func(*domain.Token) float64, func(*domain.Token) string) {
	switch key {
	case SortByPrice:
		return func(t *domain.Token) float64 { return t.Price }, nil
	case SortByChange24h:
		return func(t *domain.Token) float64 { return t.Change24h }, nil
	case SortByVolume24h:
		return func(t *domain.Token) float64 { return t.Volume24h }, nil
	case SortByTrades24h:
		return func(t *domain.Token) float64 { return float64(t.Trades24h) }, nil
	case SortByLiquidity:
		return func(t *domain.Token) float64 { return t.Liquidity }, nil
	case SortByLiquidityScore:
		return func(t *domain.Token) float64 { return t.LiquidityScore }, nil
	case SortByPair:
		return nil, func(t *domain.Token) string { return t.Pair }
	case SortByName:
		return nil, func(t *domain.Token) string { return t.Name }
	case SortByAge:
		return nil, func(t *domain.Token) string { return t.Age }
	}
	return nil, nil
}

func contains(have []string, want string) bool {
	for _, h := range have {
		if h == want {
			return true
		}
	}
	return false
}

func anyTag(tok *domain.Token, tags []string) bool {
	for _, tag := range tags {
		if tok.HasTag(tag) {
			return true
		}
	}
	return false
}
