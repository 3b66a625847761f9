package view

import (
	"fmt"
	"testing"

	"token-dashboard/internal/domain"
)

func universe(n int) []*domain.Token {
	out := make([]*domain.Token, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &domain.Token{
			ID:        fmt.Sprintf("tok-%02d", i),
			Pair:      fmt.Sprintf("T%02d/USDT", i),
			Name:      fmt.Sprintf("Token %02d", i),
			Price:     float64(100 + i),
			Volume24h: float64(1000 * (n - i)),
			Liquidity: float64(i * 100),
			Category:  domain.CategoryNew,
			Chain:     domain.ChainEthereum,
		})
	}
	return out
}

func TestPage_Pagination(t *testing.T) {
	tokens := universe(25)

	p1 := Page(tokens, State{Page: 1, PageSize: 20})
	if len(p1.Tokens) != 20 || p1.Total != 25 || p1.TotalPages != 2 {
		t.Errorf("Page 1: got %d tokens, total %d, pages %d", len(p1.Tokens), p1.Total, p1.TotalPages)
	}

	p2 := Page(tokens, State{Page: 2, PageSize: 20})
	if len(p2.Tokens) != 5 {
		t.Errorf("Page 2: expected 5 tokens, got %d", len(p2.Tokens))
	}

	// Out-of-range is an empty slice, not an error and not a clamp.
	p3 := Page(tokens, State{Page: 3, PageSize: 20})
	if len(p3.Tokens) != 0 || p3.Page != 3 || p3.TotalPages != 2 {
		t.Errorf("Page 3: expected empty slice at page 3, got %+v", p3)
	}
}

func TestPage_Defaults(t *testing.T) {
	tokens := universe(25)

	r := Page(tokens, State{})
	if r.Page != 1 || len(r.Tokens) != DefaultPageSize {
		t.Errorf("Expected page 1 with %d tokens, got page %d with %d", DefaultPageSize, r.Page, len(r.Tokens))
	}
	// Baseline order preserved when no sort key is set.
	if r.Tokens[0].ID != "tok-00" {
		t.Errorf("Baseline order lost: first = %s", r.Tokens[0].ID)
	}
}

func TestPage_Idempotent(t *testing.T) {
	tokens := universe(25)
	s := State{SortKey: SortByVolume24h, SortDesc: true, Page: 1, PageSize: 10}

	a := Page(tokens, s)
	b := Page(tokens, s)

	if len(a.Tokens) != len(b.Tokens) {
		t.Fatalf("Same input produced different sizes: %d vs %d", len(a.Tokens), len(b.Tokens))
	}
	for i := range a.Tokens {
		if a.Tokens[i].ID != b.Tokens[i].ID {
			t.Errorf("Index %d differs across identical recomputes: %s vs %s", i, a.Tokens[i].ID, b.Tokens[i].ID)
		}
	}
}

func TestPage_InputNotMutated(t *testing.T) {
	tokens := universe(10)
	first := tokens[0].ID

	Page(tokens, State{SortKey: SortByPrice, SortDesc: true, PageSize: 5})

	if tokens[0].ID != first {
		t.Error("Pipeline reordered the caller's slice")
	}
}

func TestFilter_Category(t *testing.T) {
	tokens := universe(6)
	tokens[1].Category = domain.CategoryMigrated
	tokens[4].Category = domain.CategoryMigrated

	r := Page(tokens, State{Category: string(domain.CategoryMigrated), PageSize: 20})
	if r.Total != 2 {
		t.Errorf("Expected 2 migrated tokens, got %d", r.Total)
	}

	all := Page(tokens, State{Category: CategoryAll, PageSize: 20})
	if all.Total != 6 {
		t.Errorf("CategoryAll must not filter, got %d", all.Total)
	}
}

func TestFilter_Chains(t *testing.T) {
	tokens := universe(6)
	tokens[2].Chain = domain.ChainSolana
	tokens[3].Chain = domain.ChainBase

	r := Page(tokens, State{Chains: []string{domain.ChainSolana, domain.ChainBase}, PageSize: 20})
	if r.Total != 2 {
		t.Errorf("Expected 2 tokens on selected chains, got %d", r.Total)
	}
}

func TestFilter_TagsAnyMatch(t *testing.T) {
	tokens := universe(5)
	tokens[0].Tags = []string{"meme"}
	tokens[1].Tags = []string{"defi", "trending"}
	tokens[2].Tags = []string{"gaming"}

	r := Page(tokens, State{Tags: []string{"meme", "trending"}, PageSize: 20})
	if r.Total != 2 {
		t.Errorf("Expected any-tag match to select 2, got %d", r.Total)
	}
}

func TestFilter_MinLiquidityInclusive(t *testing.T) {
	tokens := universe(5) // liquidity 0, 100, 200, 300, 400

	r := Page(tokens, State{MinLiquidity: 200, PageSize: 20})
	if r.Total != 3 {
		t.Errorf("Threshold must be inclusive: expected 3, got %d", r.Total)
	}
}

func TestSort_NumericDesc(t *testing.T) {
	tokens := universe(5)

	r := Page(tokens, State{SortKey: SortByPrice, SortDesc: true, PageSize: 20})
	for i := 1; i < len(r.Tokens); i++ {
		if r.Tokens[i].Price > r.Tokens[i-1].Price {
			t.Fatalf("Descending sort violated at %d", i)
		}
	}
}

func TestSort_StringAsc(t *testing.T) {
	tokens := universe(5)
	tokens[0].Name = "zzz"
	tokens[4].Name = "aaa"

	r := Page(tokens, State{SortKey: SortByName, PageSize: 20})
	if r.Tokens[0].Name != "aaa" || r.Tokens[4].Name != "zzz" {
		t.Errorf("String sort wrong: first %s, last %s", r.Tokens[0].Name, r.Tokens[4].Name)
	}
}

func TestSort_TiesKeepBaselineOrder(t *testing.T) {
	tokens := universe(6)
	for _, tok := range tokens {
		tok.Volume24h = 500
	}

	r := Page(tokens, State{SortKey: SortByVolume24h, SortDesc: true, PageSize: 20})
	for i, tok := range r.Tokens {
		if tok.ID != fmt.Sprintf("tok-%02d", i) {
			t.Fatalf("Tie broke baseline order at %d: %s", i, tok.ID)
		}
	}
}

func TestSort_UnknownKeyKeepsOrder(t *testing.T) {
	tokens := universe(4)

	r := Page(tokens, State{SortKey: SortKey("marketCap"), PageSize: 20})
	if r.Tokens[0].ID != "tok-00" {
		t.Errorf("Unknown sort key must keep baseline order, first = %s", r.Tokens[0].ID)
	}
}

func TestPage_EmptyInput(t *testing.T) {
	r := Page(nil, State{PageSize: 20})
	if r.Total != 0 || r.TotalPages != 0 || len(r.Tokens) != 0 {
		t.Errorf("Empty input should be an empty result: %+v", r)
	}
}

func TestPage_FilterThenPaginate(t *testing.T) {
	tokens := universe(30)
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			tokens[i].Category = domain.CategoryMigrated
		}
	}

	// 15 migrated tokens, page size 10: pages of 10 and 5.
	p2 := Page(tokens, State{Category: string(domain.CategoryMigrated), Page: 2, PageSize: 10})
	if p2.Total != 15 || p2.TotalPages != 2 || len(p2.Tokens) != 5 {
		t.Errorf("Filter+paginate wrong: total %d, pages %d, len %d", p2.Total, p2.TotalPages, len(p2.Tokens))
	}
}
