package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/gavel/internal/models"
)

func dialAuction(t *testing.T, server *httptest.Server, auctionID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/auction?auction_id=" + auctionID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, cm *ConnectionManager, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if total, _ := cm.GetConnectionStats(); total == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	total, _ := cm.GetConnectionStats()
	t.Fatalf("expected %d connections, have %d", want, total)
}

func testSnapshot(auctionID uuid.UUID) *SnapshotMessage {
	return &SnapshotMessage{
		EventID:   uuid.New().String(),
		EventType: "BidPlaced",
		AuctionID: auctionID.String(),
		Timestamp: time.Now().UTC(),
		Auction: &models.Auction{
			ID:     auctionID,
			Name:   "Season Auction",
			Status: models.AuctionStatusLive,
			Current: models.CurrentAuctionState{
				CurrentBidAmount: 150,
				IsActive:         true,
			},
		},
	}
}

func TestBroadcastReachesAuctionPoolOnly(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	auctionA := uuid.New()
	auctionB := uuid.New()

	connA := dialAuction(t, server, auctionA)
	connB := dialAuction(t, server, auctionB)
	waitForConnections(t, cm, 2)

	cm.BroadcastToAuction(auctionA, testSnapshot(auctionA))

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := connA.ReadMessage()
	require.NoError(t, err)

	var msg SnapshotMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, auctionA.String(), msg.AuctionID)
	assert.Equal(t, "BidPlaced", msg.EventType)
	require.NotNil(t, msg.Auction)
	assert.Equal(t, 150, msg.Auction.Current.CurrentBidAmount)

	// The other auction's pool sees nothing
	connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err)
}

func TestSnapshotIsFullStateReplacement(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	auctionID := uuid.New()
	conn := dialAuction(t, server, auctionID)
	waitForConnections(t, cm, 1)

	// Delivering the same snapshot twice leaves the client in the same
	// state either way; consumers replace, never accumulate.
	snapshot := testSnapshot(auctionID)
	cm.BroadcastToAuction(auctionID, snapshot)
	cm.BroadcastToAuction(auctionID, snapshot)

	var first, second SnapshotMessage
	for _, dst := range []*SnapshotMessage{&first, &second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, dst))
	}
	assert.Equal(t, first.Auction, second.Auction)
}

func TestUpgradeRequiresAuctionID(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	mux := http.NewServeMux()
	NewWebSocketHandler(cm).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/auction"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
