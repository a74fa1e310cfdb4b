package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/realtime"
	"github.com/yungbote/studyforge-backend/internal/realtime/bus"
)

// DocumentNotifier pushes document lifecycle events to the owning user.
type DocumentNotifier interface {
	StatusChanged(ctx context.Context, doc *types.Document)
	ArtifactsGenerated(ctx context.Context, userID, documentID uuid.UUID, mode types.Mode, count int, cached bool)
}

type documentNotifier struct {
	log *logger.Logger
	bus bus.Bus
}

func NewDocumentNotifier(baseLog *logger.Logger, b bus.Bus) DocumentNotifier {
	return &documentNotifier{log: baseLog.With("service", "DocumentNotifier"), bus: b}
}

func (n *documentNotifier) StatusChanged(ctx context.Context, doc *types.Document) {
	if n == nil || n.bus == nil || doc == nil || doc.UserID == uuid.Nil {
		return
	}
	n.publish(ctx, realtime.Message{
		Channel: realtime.UserChannel(doc.UserID),
		Event:   realtime.EventDocumentStatus,
		Data: realtime.DocumentEvent{
			DocumentID:  doc.ID,
			Status:      string(doc.Status),
			StatusError: doc.StatusError,
			At:          time.Now().UTC(),
		},
	})
}

func (n *documentNotifier) ArtifactsGenerated(ctx context.Context, userID, documentID uuid.UUID, mode types.Mode, count int, cached bool) {
	if n == nil || n.bus == nil || userID == uuid.Nil {
		return
	}
	status := "generated"
	if cached {
		status = "cached"
	}
	n.publish(ctx, realtime.Message{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.EventArtifactsGenerated,
		Data: realtime.DocumentEvent{
			DocumentID: documentID,
			Status:     status,
			Mode:       string(mode),
			Count:      count,
			At:         time.Now().UTC(),
		},
	})
}

func (n *documentNotifier) publish(ctx context.Context, msg realtime.Message) {
	if err := n.bus.Publish(ctx, msg); err != nil {
		n.log.Warn("event publish failed", "event", msg.Event, "error", err)
	}
}
