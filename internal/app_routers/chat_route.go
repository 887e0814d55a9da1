package approuters

import (
	"github.com/gin-gonic/gin"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/handler"
)

// ChatRouters exposes history and shop inbox lookups over HTTP.
func ChatRouters(router *gin.Engine, chat handler.ChatHandler) {
	roomRoute := router.Group("/cf/api/rooms")
	{
		roomRoute.GET("/:roomId/messages", chat.GetRoomMessages)
	}

	shopRoute := router.Group("/cf/api/shops")
	{
		shopRoute.GET("/:slug", chat.GetShop)
		shopRoute.GET("/:slug/rooms", chat.GetShopRooms)
		shopRoute.GET("/by-owner/:userId", chat.GetShopByOwner)
	}

	router.GET("/cf/api/dm-room", chat.GetDirectRoom)
}
