package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xraph/digest/stream"
)

// streamEvents serves job lifecycle events over Server-Sent Events.
// The topic query selects the subscription: "jobs" (default),
// "firehose", "job:<id>", or "provider:<id>".
func (a *API) streamEvents(c *gin.Context) {
	if a.broker == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Error: "event streaming not enabled"})
		return
	}

	topic := c.DefaultQuery("topic", stream.TopicJobs)
	if err := stream.ValidateTopic(topic); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sub := a.broker.Subscribe(uuid.New().String(), topic)
	defer a.broker.RemoveSubscriber(sub.ID())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(_ io.Writer) bool {
		select {
		case evt, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent(string(evt.Type), evt)
			sub.AddCredits(1)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
