package publishers

import "context"

// Publisher sends check events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Logger is the structured logging surface publishers report delivery through.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type discardLogger struct{}

func (discardLogger) InfoObj(string, string, interface{})  {}
func (discardLogger) DebugObj(string, string, interface{}) {}
func (discardLogger) WarnObj(string, string, interface{})  {}
func (discardLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return discardLogger{}
	}
	return log
}

func logDelivery(log Logger, p Publisher, evt Event, messageID string) {
	log.DebugObj("publisher delivered event", "publisher_delivery", map[string]any{
		"publisher_id":   p.ID(),
		"publisher_type": p.Type(),
		"profile":        evt.Profile,
		"message_id":     messageID,
	})
}

func logDeliveryFailure(log Logger, p Publisher, err error) {
	log.ErrorObj("publisher delivery failed", "publisher_error", map[string]any{
		"publisher_id":   p.ID(),
		"publisher_type": p.Type(),
		"error":          err.Error(),
	})
}
