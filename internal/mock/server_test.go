package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"token-dashboard/internal/domain"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(NewGenerator(42), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestServer_ListTokens(t *testing.T) {
	_, ts := newTestServer(t)

	var resp struct {
		Tokens     []*domain.Token `json:"tokens"`
		Total      int             `json:"total"`
		Page       int             `json:"page"`
		TotalPages int             `json:"totalPages"`
	}
	getJSON(t, ts.URL+"/api/tokens?page=1&limit=20", &resp)

	require.Len(t, resp.Tokens, 20)
	require.Equal(t, UniverseSize, resp.Total)
	require.Equal(t, 5, resp.TotalPages)
}

func TestServer_ListTokens_SortAndFilter(t *testing.T) {
	_, ts := newTestServer(t)

	var resp struct {
		Tokens []*domain.Token `json:"tokens"`
	}
	getJSON(t, ts.URL+"/api/tokens?sortBy=price&sortOrder=desc&limit=100", &resp)
	for i := 1; i < len(resp.Tokens); i++ {
		require.LessOrEqual(t, resp.Tokens[i].Price, resp.Tokens[i-1].Price)
	}

	var filtered struct {
		Tokens []*domain.Token `json:"tokens"`
		Total  int             `json:"total"`
	}
	getJSON(t, ts.URL+"/api/tokens?chain="+domain.ChainSolana+"&limit=100", &filtered)
	require.NotZero(t, filtered.Total)
	for _, tok := range filtered.Tokens {
		require.Equal(t, domain.ChainSolana, tok.Chain)
	}
}

func TestServer_GetToken(t *testing.T) {
	srv, ts := newTestServer(t)
	id := srv.gen.Tokens()[0].ID

	var tok domain.Token
	getJSON(t, ts.URL+"/api/tokens/"+id, &tok)
	require.Equal(t, id, tok.ID)

	resp := getJSON(t, ts.URL+"/api/tokens/ghost", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Search(t *testing.T) {
	_, ts := newTestServer(t)

	var resp struct {
		Tokens []*domain.Token `json:"tokens"`
	}
	getJSON(t, ts.URL+"/api/tokens/search?q=eth", &resp)
	require.NotEmpty(t, resp.Tokens)
	for _, tok := range resp.Tokens {
		hay := strings.ToLower(tok.Name + " " + tok.Pair)
		require.Contains(t, hay, "eth")
	}

	// Empty query matches nothing.
	getJSON(t, ts.URL+"/api/tokens/search", &resp)
	require.Empty(t, resp.Tokens)
}

func TestServer_MarketStats(t *testing.T) {
	_, ts := newTestServer(t)

	var stats domain.MarketStats
	getJSON(t, ts.URL+"/api/market/stats", &stats)
	require.Equal(t, int64(UniverseSize), stats.TotalTokens)
}

func TestServer_PlaceOrder(t *testing.T) {
	_, ts := newTestServer(t)

	body := strings.NewReader(`{"tokenId":"tok-1","pair":"ETH/USDT","side":"buy","orderType":"market","amount":2}`)
	resp, err := http.Post(ts.URL+"/api/orders", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var accepted domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NotEmpty(t, accepted.ID)
	require.Equal(t, domain.OrderStatusPending, accepted.Status)

	// The order shows up in the listing.
	var list struct {
		Orders []*domain.Order `json:"orders"`
	}
	getJSON(t, ts.URL+"/api/orders", &list)
	require.Len(t, list.Orders, 1)
	require.Equal(t, accepted.ID, list.Orders[0].ID)
}

func TestServer_PlaceOrder_InvalidRejected(t *testing.T) {
	_, ts := newTestServer(t)

	body := strings.NewReader(`{"tokenId":"tok-1","side":"hold","orderType":"market","amount":2}`)
	resp, err := http.Post(ts.URL+"/api/orders", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var rejected domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rejected))
	require.Equal(t, domain.OrderStatusRejected, rejected.Status)
}

func TestServer_Portfolio(t *testing.T) {
	_, ts := newTestServer(t)

	var pf domain.Portfolio
	getJSON(t, ts.URL+"/api/portfolio", &pf)
	require.NotNil(t, pf.Positions)
	require.Empty(t, pf.Orders)
}
