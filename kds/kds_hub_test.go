package kds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/table-order/fakebackend"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger("error")
	os.Exit(m.Run())
}

type received struct {
	Event string          `json:"event"`
	Table int             `json:"table"`
	Data  json.RawMessage `json:"data"`
}

// hubServer registers every upgraded socket on the table named by ?table=.
func hubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		table, _ := strconv.Atoi(r.URL.Query().Get("table"))
		hub.RegisterClient(conn, table)
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					hub.UnregisterClient(conn)
					return
				}
			}
		}()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, table int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?table=" + strconv.Itoa(table)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	var msg received
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no message expected")
}

func TestHubBroadcastFiltersByTable(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)
	t2 := dial(t, srv, 2)
	t5 := dial(t, srv, 5)
	all := dial(t, srv, AllTables)
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	hub.BroadcastTableOrders(2, []models.OrderSummary{{ID: "a", Status: models.StatusPending}})

	msg := read(t, t2)
	assert.Equal(t, EventOrdersUpdate, msg.Event)
	var payload TableOrders
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, 2, payload.Table)
	require.Len(t, payload.Orders, 1)
	assert.Equal(t, "a", payload.Orders[0].ID)

	assert.Equal(t, EventOrdersUpdate, read(t, all).Event)
	expectSilence(t, t5)
}

func TestHubErrorAndMenuEvents(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)
	t3 := dial(t, srv, 3)
	t4 := dial(t, srv, 4)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.BroadcastTableError(3, "Server error: 500")
	msg := read(t, t3)
	assert.Equal(t, EventOrdersError, msg.Event)
	assert.JSONEq(t, `"Server error: 500"`, string(msg.Data))

	// table 4 never saw the error, so the menu update is its first message
	hub.BroadcastMenuUpdate()
	assert.Equal(t, EventMenuUpdate, read(t, t3).Event)
	assert.Equal(t, EventMenuUpdate, read(t, t4).Event)
}

func TestHubTablesAndSubscribe(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)
	dial(t, srv, 6)
	dial(t, srv, 6)
	dial(t, srv, AllTables)
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []int{6}, hub.Tables())

	hub.mutex.Lock()
	var conns []*websocket.Conn
	for c := range hub.clients {
		conns = append(conns, c)
	}
	hub.mutex.Unlock()
	for _, c := range conns {
		hub.Subscribe(c, 8)
	}
	assert.Equal(t, []int{8}, hub.Tables())
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub()
	srv := hubServer(t, hub)
	conn := dial(t, srv, 1)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	hub.BroadcastMenuUpdate()
}

func TestOrderFeedPushesWatchedTables(t *testing.T) {
	fb := fakebackend.NewSeeded()
	api := httptest.NewServer(fb.Handler())
	t.Cleanup(api.Close)
	client := services.NewBackendClientWithHTTP(api.URL, api.Client())
	admin := services.NewAdminService(client, nil)

	resp, err := client.CreateOrder(context.Background(), models.CreateOrderRequest{
		Table: "7",
		Items: []models.OrderLineRequest{{MenuItemID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	hub := NewHub()
	srv := hubServer(t, hub)
	t7 := dial(t, srv, 7)
	t9 := dial(t, srv, 9)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	feed := NewOrderFeed(hub, admin, time.Hour)
	require.NoError(t, feed.RefreshAll(context.Background()))

	got := map[int]TableOrders{}
	for _, conn := range []*websocket.Conn{t7, t9} {
		msg := read(t, conn)
		require.Equal(t, EventOrdersUpdate, msg.Event)
		var payload TableOrders
		require.NoError(t, json.Unmarshal(msg.Data, &payload))
		got[payload.Table] = payload
	}
	require.Len(t, got[7].Orders, 1)
	assert.Equal(t, resp.OrderID, got[7].Orders[0].ID)
	assert.Equal(t, 2, got[7].Orders[0].ItemCount)
	assert.Empty(t, got[9].Orders)

	tables := hub.Tables()
	sort.Ints(tables)
	assert.Equal(t, []int{7, 9}, tables)
}

func TestOrderFeedReportsErrors(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(api.Close)
	admin := services.NewAdminService(services.NewBackendClientWithHTTP(api.URL, api.Client()), nil)

	hub := NewHub()
	srv := hubServer(t, hub)
	conn := dial(t, srv, 4)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	err := NewOrderFeed(hub, admin, time.Hour).RefreshTable(context.Background(), 4)
	require.Error(t, err)

	msg := read(t, conn)
	assert.Equal(t, EventOrdersError, msg.Event)
	assert.JSONEq(t, `"Server error: 500"`, string(msg.Data))
}
