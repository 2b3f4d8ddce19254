package eventstream

import "context"

// Publisher publishes passage indexing events to an event stream backend.
type Publisher interface {
	PublishIndexed(ctx context.Context, event *PassageIndexedEvent) error
	Close() error
}
