package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/matthewbaird/fieldops/internal/gaplog"
	"github.com/matthewbaird/fieldops/internal/logging"
	"github.com/matthewbaird/fieldops/internal/pipeline"
	"github.com/matthewbaird/fieldops/internal/viewconfig"
)

// MaxRows caps the sample rows a client may request.
const MaxRows = 50

// Handler manages preview WebSocket connections.
type Handler struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock sets the clock stamped into rendered markup.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates a preview handler.
func NewHandler(logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{logger: logging.OrNop(logger).Named("preview"), now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				h.logger.Debug("connection closed", zap.Int("status", int(status)))
			}
			return
		}

		switch msg.Type {
		case "render":
			h.handleRender(ctx, conn, msg)
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleRender(ctx context.Context, conn *websocket.Conn, msg ClientMessage) {
	var data RenderData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", "invalid render data")
		return
	}
	if len(data.Config) == 0 {
		h.sendError(ctx, conn, msg.ID, "empty_config", "render requires a view configuration")
		return
	}
	rows := min(data.Rows, MaxRows)

	gaps := gaplog.New(h.logger)
	markup, cfg, err := pipeline.Render(ctx, data.Config, pipeline.RenderOptions{
		Rows: rows,
		Now:  h.now,
		Gaps: gaps,
	})
	var cfgErr *viewconfig.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		h.send(ctx, conn, ServerMessage{
			Type:      "violations",
			RequestID: msg.ID,
			Data:      ViolationsData{Violations: cfgErr.Violations},
		})
		return
	case err != nil:
		h.sendError(ctx, conn, msg.ID, "render_error", err.Error())
		return
	}

	records := gaps.Records()
	if records == nil {
		records = []gaplog.Record{}
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "markup",
		RequestID: msg.ID,
		Data: MarkupData{
			Entity: cfg.Entity.Primary,
			Layout: string(cfg.Layout.Type),
			Markup: markup,
			Gaps:   records,
		},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug("write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      ErrorData{Code: code, Message: message},
	})
}
