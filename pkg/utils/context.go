package utils

import (
	"context"

	"github.com/google/uuid"

	"nurse-booking/internal/data/entity"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role entity.UserRole
}

func (a Actor) IsProvider() bool {
	return a.Role.IsProvider()
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}

// SystemActor is used by background jobs.
var SystemActor = Actor{ID: uuid.Nil, Role: entity.RoleSystem}

func SetActorContext(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func GetActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	if !ok || actor.ID == uuid.Nil {
		return Actor{}, false
	}
	return actor, true
}
