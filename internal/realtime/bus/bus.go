package bus

import (
	"context"

	"github.com/yungbote/studyforge-backend/internal/realtime"
)

// Bus fans document events out to every API replica.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}

// Local delivers straight into the in-process hub. Used when Redis is not configured.
type Local struct {
	Hub *realtime.Hub
}

func (l Local) Publish(_ context.Context, msg realtime.Message) error {
	if l.Hub != nil {
		l.Hub.Broadcast(msg)
	}
	return nil
}

func (Local) StartForwarder(context.Context, func(realtime.Message)) error { return nil }

func (Local) Close() error { return nil }
