package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/flightmode/competition-system/live"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Браузерные клиенты приходят с других origin'ов; авторизация для
	// этого канала не требуется: он только вещает публичные счётчики.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// Serve подключает клиента к комнате конкурса для live-обновлений счётчика
// заявок и статуса.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		notFoundResponse(w, r)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: strconv.Itoa(id),
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
