package entity

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
)

// Principal - уже проверенная слоем аутентификации личность, от имени которой выполняется действие.
type Principal struct {
	UserID    uuid.UUID
	Role      valueobject.Role
	ProfileID uuid.UUID
}

func (p Principal) IsAdmin() bool {
	return p.Role == valueobject.RoleAdmin
}

func (p Principal) IsBrand() bool {
	return p.Role == valueobject.RoleBrand
}

func (p Principal) IsCreator() bool {
	return p.Role == valueobject.RoleCreator
}
