package service

import (
	"github.com/google/uuid"

	"essay-tutor-backend/internal/model"
	"essay-tutor-backend/utilities"
)

const (
	EventEssayCreated   = "essay_created"
	EventEssayReviewed  = "essay_reviewed"
	EventEssayRevised   = "essay_revised"
	EventEssayFinalized = "essay_finalized"
)

// EssayEvent is published after a lifecycle step commits.
type EssayEvent struct {
	EssayID   uuid.UUID
	UserID    uuid.UUID
	Status    model.EssayStatus
	Iteration int
	AIRating  *int
}

// InitAuditListeners writes one audit log line per essay event.
func InitAuditListeners(bus *utilities.EventBus, log *utilities.Logger) {
	audit := log.With("component", "audit")
	for _, name := range []string{EventEssayCreated, EventEssayReviewed, EventEssayRevised, EventEssayFinalized} {
		event := name
		bus.Subscribe(event, func(data interface{}) {
			ev, ok := data.(EssayEvent)
			if !ok {
				audit.Warn("unexpected event payload", "event", event)
				return
			}
			kv := []interface{}{
				"event", event,
				"essay_id", ev.EssayID,
				"user_id", ev.UserID,
				"status", ev.Status,
				"iteration", ev.Iteration,
			}
			if ev.AIRating != nil {
				kv = append(kv, "ai_rating", *ev.AIRating)
			}
			audit.Info("essay event", kv...)
		})
	}
}
