package event

import (
	"context"

	"github.com/gin-gonic/gin"
)

const contextKey = "eventCtx"

// EventContext carries what a handler changed so the tracker can record it
// once the request succeeds.
type EventContext struct {
	Resource  string
	Operation string
	OldData   interface{}
	NewData   interface{}
}

type EventService interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type FieldExtractor interface {
	ExtractFields(obj interface{}, fields []string) map[string]interface{}
	ExtractChanges(old, new interface{}, fields []string) map[string]interface{}
}

// Record attaches the before and after state of the tracked entity to the
// request. It is a no-op on routes without a tracker.
func Record(c *gin.Context, oldData, newData interface{}) {
	v, ok := c.Get(contextKey)
	if !ok {
		return
	}
	eventCtx := v.(*EventContext)
	eventCtx.OldData = oldData
	eventCtx.NewData = newData
}
