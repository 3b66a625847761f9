package mock

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"token-dashboard/internal/domain"
	"token-dashboard/internal/stream"
)

func dialFeed(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()
	srv := NewServer(NewGenerator(42), nil)
	srv.feed.TickInterval = 10 * time.Millisecond
	srv.feed.FillDelay = 20 * time.Millisecond

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, conn
}

// readUntil reads frames until one decodes to the wanted kind, failing
// on deadline. Frames of other kinds are skipped, as a real client
// does.
func readUntil(t *testing.T, conn *websocket.Conn, kind string) stream.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "feed closed before delivering %s", kind)
		ev, err := stream.Decode(raw)
		if err != nil {
			t.Fatalf("Feed emitted undecodable frame: %v\n%s", err, raw)
		}
		if ev.Kind() == kind {
			return ev
		}
	}
}

func TestFeed_EmitsDecodablePriceUpdates(t *testing.T) {
	_, conn := dialFeed(t)

	ev := readUntil(t, conn, stream.TypePriceUpdate)
	u := ev.(stream.PriceUpdate)
	require.NotEmpty(t, u.TokenID)
	require.Positive(t, u.Price)
	require.Positive(t, u.Timestamp)
}

func TestFeed_SubscribeAck(t *testing.T) {
	_, conn := dialFeed(t)

	err := conn.WriteJSON(stream.SubscribeFrame{Type: stream.TypeSubscribe, Channel: "tokens"})
	require.NoError(t, err)

	ev := readUntil(t, conn, stream.TypeSubscriptionConfirmed)
	require.Equal(t, "tokens", ev.(stream.SubscriptionConfirmed).Channel)
}

func TestFeed_OrderConfirmationThenFill(t *testing.T) {
	srv, conn := dialFeed(t)
	tok := srv.gen.Tokens()[0]

	err := conn.WriteJSON(stream.PlaceOrderFrame{
		Type:      stream.TypePlaceOrder,
		OrderID:   "client-order-1",
		TokenID:   tok.ID,
		Side:      domain.SideBuy,
		Amount:    2,
		OrderType: domain.OrderKindMarket,
	})
	require.NoError(t, err)

	conf := readUntil(t, conn, stream.TypeOrderConfirmation).(stream.OrderLifecycle)
	require.Equal(t, "client-order-1", conf.OrderID, "confirmation must echo the client order id")
	require.Equal(t, domain.OrderStatusPending, conf.Status)

	fill := readUntil(t, conn, stream.TypeOrderFilled).(stream.OrderLifecycle)
	require.Equal(t, "client-order-1", fill.OrderID)
	require.Equal(t, domain.OrderStatusFilled, fill.Status)
	require.Equal(t, float64(2), fill.FilledAmount)
	require.Positive(t, fill.FilledPrice, "market order must fill at the current price")
}

func TestFeed_MalformedControlFrameIgnored(t *testing.T) {
	_, conn := dialFeed(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// The connection stays up and keeps streaming.
	readUntil(t, conn, stream.TypePriceUpdate)
}
