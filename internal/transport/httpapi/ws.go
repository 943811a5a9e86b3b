package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const wsWriteTimeout = 5 * time.Second

// handleEmissionsFeed handles GET /v1/emissions. Upgrades to a websocket and
// streams every emission on the hub until the client disconnects.
func (s *Server) handleEmissionsFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "feed closed")

	events, cancel := s.hub.SubscribeFeed()
	defer cancel()

	ctx := r.Context()

	// Reads are discarded; the read loop only surfaces client disconnects.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case e := <-events:
			writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, e)
			writeCancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("websocket write failed", zap.Error(err))
				}
				return
			}
		case <-readDone:
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ctx.Done():
			return
		}
	}
}
