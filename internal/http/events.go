package http

import (
	"io"

	"github.com/gin-gonic/gin"
)

// GET /v1/events
// Streams loan and transfer lifecycle events to the client over SSE.
// Delivery starts at subscription time; events published earlier are not
// replayed.
func (s *Server) streamEvents(c *gin.Context) {
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
