package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/utils"
)

type KDSController struct {
	Hub      *kds.Hub
	Feed     *kds.OrderFeed
	upgrader websocket.Upgrader
}

// NewKDSController accepts sockets from allowedOrigin, or from any origin
// when it is "*".
func NewKDSController(hub *kds.Hub, feed *kds.OrderFeed, allowedOrigin string) *KDSController {
	return &KDSController{
		Hub:  hub,
		Feed: feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// subscribeMessage is what a dashboard sends to switch tables.
type subscribeMessage struct {
	Table int `json:"table"`
}

// KDSHandler -> GET /api/admin/feed?table=<n>, websocket
func (kc *KDSController) KDSHandler(c *gin.Context) {
	table, _ := strconv.Atoi(c.DefaultQuery("table", "0"))
	if table < 0 {
		table = kds.AllTables
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed: %v", err)
		return
	}

	kc.Hub.RegisterClient(ws, table)
	kc.push(c, table)

	for {
		var msg subscribeMessage
		if err := ws.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Table >= 0 {
			kc.Hub.Subscribe(ws, msg.Table)
			kc.push(c, msg.Table)
		}
	}

	kc.Hub.UnregisterClient(ws)
}

func (kc *KDSController) push(c *gin.Context, table int) {
	if kc.Feed == nil || table == kds.AllTables {
		return
	}
	if err := kc.Feed.RefreshTable(c.Request.Context(), table); err != nil {
		utils.ErrorLogger.Printf("Initial push for table %d failed: %v", table, err)
	}
}
