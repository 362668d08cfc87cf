package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ipv4intel/internal/domain"
)

const streamWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// streamFrame is one message sent back on /v1/stream
type streamFrame struct {
	BatchID string         `json:"batch_id"`
	Index   int            `json:"index"`
	Report  *domain.Report `json:"report,omitempty"`
	Done    bool           `json:"done,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// handleStream reads one BatchRequest from the socket, then sends a frame
// per address as soon as its report is ready, followed by a done frame.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WS upgrade failed",
			"error_detail", err.Error(),
		)
		return
	}
	defer conn.Close()

	batchID := uuid.NewString()
	l := h.logger.With("batch_id", batchID)

	var req domain.BatchRequest
	if err := conn.ReadJSON(&req); err != nil {
		l.Warn("WS request invalid",
			"error_detail", err.Error(),
		)
		h.closeStream(conn, websocket.CloseUnsupportedData, "invalid payload")
		return
	}
	if len(req.Addresses) == 0 || len(req.Addresses) > MaxBatch {
		h.closeStream(conn, websocket.ClosePolicyViolation, "address count out of range")
		return
	}

	l.Info("WS stream start",
		"address_count", len(req.Addresses),
	)

	sent := 0
	h.opts.Scheduler.Stream(r.Context(), req.Addresses, func(idx int, report domain.Report) {
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(streamFrame{BatchID: batchID, Index: idx, Report: &report}); err != nil {
			l.Warn("WS write fail",
				"index", idx,
				"error_detail", err.Error(),
			)
			return
		}
		sent++
	})

	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	conn.WriteJSON(streamFrame{BatchID: batchID, Index: len(req.Addresses), Done: true})
	h.closeStream(conn, websocket.CloseNormalClosure, "")

	l.Info("WS stream done",
		"frames_sent", sent,
	)
}

func (h *Handler) closeStream(conn *websocket.Conn, code int, text string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(5*time.Second))
}
