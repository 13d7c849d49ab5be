package event

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ResourceConfig lists the fields whose changes are recorded on update
// events for one resource.
type ResourceConfig struct {
	TrackedFields []string
}

type EventTrackerMiddleware struct {
	eventService EventService
	extractor    FieldExtractor
	resources    map[string]ResourceConfig
	enabled      bool
}

func NewEventTrackerMiddleware(eventSvc EventService, enabled bool, resources map[string]ResourceConfig) *EventTrackerMiddleware {
	return &EventTrackerMiddleware{
		eventService: eventSvc,
		extractor:    &DefaultFieldExtractor{},
		resources:    resources,
		enabled:      enabled,
	}
}

// EventType builds the outbox event name, e.g. MEDICATION_CREATE.
func EventType(resource, operation string) string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(resource), strings.ToUpper(operation))
}

func (m *EventTrackerMiddleware) TrackEvent(resource, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || !m.enabled {
			c.Next()
			return
		}

		eventCtx := &EventContext{
			Resource:  resource,
			Operation: operation,
		}
		c.Set(contextKey, eventCtx)

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest || eventCtx.NewData == nil {
			return
		}

		payload := map[string]interface{}{"data": eventCtx.NewData}
		if eventCtx.OldData != nil {
			fields := m.resources[resource].TrackedFields
			payload["changes"] = m.extractor.ExtractChanges(eventCtx.OldData, eventCtx.NewData, fields)
		}

		eventType := EventType(resource, operation)
		if err := m.eventService.Emit(c.Request.Context(), eventType, payload); err != nil {
			log.Error().
				Err(err).
				Str("event_type", eventType).
				Str("request_id", c.GetString("request_id")).
				Msg("failed to record event")
		}
	}
}
