package services

import "github.com/Pandnak/dancers-matcher/models"

// Caller — личность вызывающего, восстановленная из JWT. Вместо ветвления по
// роли в каждом сервисе авторизация сведена к предикатам возможностей.
type Caller struct {
	UserID   int
	Role     models.UserRole
	DancerID *int
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// CanActFor сообщает, может ли вызывающий действовать от имени танцора:
// администратор — всегда, танцор — только за свою привязанную анкету.
func (c Caller) CanActFor(dancerID int) bool {
	if c.IsAdmin() {
		return true
	}
	return c.DancerID != nil && *c.DancerID == dancerID
}
