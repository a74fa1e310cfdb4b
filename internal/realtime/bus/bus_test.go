package bus

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/realtime"
)

func TestLocalPublishReachesHub(t *testing.T) {
	hub := realtime.NewHub(logger.Nop())
	userID := uuid.New()
	c := hub.NewClient(userID)
	hub.AddChannel(c, realtime.UserChannel(userID))

	b := Local{Hub: hub}
	if err := b.Publish(context.Background(), realtime.Message{Channel: realtime.UserChannel(userID), Event: realtime.EventDocumentStatus}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case msg := <-c.Outbound:
		if msg.Event != realtime.EventDocumentStatus {
			t.Fatalf("event: want=%s got=%s", realtime.EventDocumentStatus, msg.Event)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
	}
}
