package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

// Events streams change notifications over SSE. Subscribers get no replay;
// on receipt of files_updated they're expected to re-fetch the file list.
func (a *API) Events(c *gin.Context) {
	ch, cancel := a.Hub.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}

			c.SSEvent(ev.Name, gin.H{"message": ev.Message})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
