package models

// StaffRole identifies a shop staff function.
type StaffRole string

const (
	StaffRoleOwner   StaffRole = "owner"
	StaffRoleCashier StaffRole = "cashier"
)

// IsValid checks if the staff role is a known value.
func (r StaffRole) IsValid() bool {
	switch r {
	case StaffRoleOwner, StaffRoleCashier:
		return true
	default:
		return false
	}
}

// StaffAssignment links a chat identity to a role within one shop. For the
// owner role ChatID is the owner's personal chat; for cashier it is the
// destination that receives order notifications.
type StaffAssignment struct {
	ID     string    `json:"id"`
	ShopID string    `json:"shop_id"`
	Role   StaffRole `json:"role"`
	ChatID int64     `json:"chat_id"`
}
