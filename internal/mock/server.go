package mock

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"token-dashboard/internal/domain"
	"token-dashboard/internal/view"
)

// Server serves the snapshot REST endpoints and the WebSocket feed over
// one gin engine.
type Server struct {
	gen *Generator
	log *zap.Logger

	mu     sync.Mutex
	orders map[string]*domain.Order

	feed *Feed
}

// NewServer creates the mock upstream around a generated universe.
func NewServer(gen *Generator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		gen:    gen,
		log:    log,
		orders: make(map[string]*domain.Order),
		feed:   NewFeed(gen, log.Named("feed")),
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/tokens", s.listTokens)
		api.GET("/tokens/search", s.searchTokens)
		api.GET("/tokens/:id", s.getToken)
		api.GET("/market/stats", s.marketStats)
		api.GET("/orders", s.listOrders)
		api.POST("/orders", s.placeOrder)
		api.GET("/portfolio", s.portfolio)
	}
	r.GET("/ws", s.feed.Handle)

	return r
}

// listTokens serves the paginated, filtered, sorted token listing. It
// reuses the same derivation pipeline the dashboard renders with, so
// REST and client-side views agree on semantics.
func (s *Server) listTokens(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	category := c.DefaultQuery("category", view.CategoryAll)
	chain := c.Query("chain")
	sortBy := c.Query("sortBy")
	sortOrder := c.DefaultQuery("sortOrder", "desc")

	vs := view.State{
		Category: category,
		SortKey:  view.SortKey(sortBy),
		SortDesc: sortOrder != "asc",
		Page:     page,
		PageSize: limit,
	}
	if chain != "" {
		vs.Chains = []string{chain}
	}

	res := view.Page(s.gen.Tokens(), vs)
	c.JSON(http.StatusOK, gin.H{
		"tokens":     res.Tokens,
		"total":      res.Total,
		"page":       res.Page,
		"totalPages": res.TotalPages,
	})
}

func (s *Server) getToken(c *gin.Context) {
	tok := s.gen.Token(c.Param("id"))
	if tok == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}
	c.JSON(http.StatusOK, tok)
}

func (s *Server) searchTokens(c *gin.Context) {
	q := strings.ToLower(c.Query("q"))
	matches := make([]*domain.Token, 0)
	if q != "" {
		for _, tok := range s.gen.Tokens() {
			if strings.Contains(strings.ToLower(tok.Name), q) ||
				strings.Contains(strings.ToLower(tok.Pair), q) {
				matches = append(matches, tok)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"tokens": matches})
}

func (s *Server) marketStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.gen.Stats())
}

func (s *Server) listOrders(c *gin.Context) {
	s.mu.Lock()
	orders := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		cp := *o
		orders = append(orders, &cp)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// placeOrder accepts an order over REST. Invalid orders are rejected
// with a terminal status so the client settles them immediately.
func (s *Server) placeOrder(c *gin.Context) {
	var req domain.Order
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = time.Now().UnixMilli()
	if !req.Side.IsValid() || !req.Kind.IsValid() || req.Amount <= 0 {
		req.Status = domain.OrderStatusRejected
		c.JSON(http.StatusOK, req)
		return
	}
	req.Status = domain.OrderStatusPending

	s.mu.Lock()
	cp := req
	s.orders[req.ID] = &cp
	s.mu.Unlock()

	c.JSON(http.StatusCreated, req)
}

func (s *Server) portfolio(c *gin.Context) {
	s.mu.Lock()
	orders := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		cp := *o
		orders = append(orders, &cp)
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, domain.Portfolio{
		Orders:    orders,
		Positions: []*domain.Position{},
	})
}
