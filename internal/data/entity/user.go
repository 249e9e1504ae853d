package entity

type UserRole string

const (
	RolePatient UserRole = "patient"
	RoleNurse   UserRole = "nurse"
	RoleDoctor  UserRole = "doctor"
	RoleAdmin   UserRole = "admin"
	RoleSystem  UserRole = "system"
)

// IsProvider reports whether the role fulfils bookings.
func (r UserRole) IsProvider() bool {
	return r == RoleNurse || r == RoleDoctor
}

type User struct {
	Base
	Email    string   `db:"email"`
	FullName string   `db:"full_name"`
	Phone    *string  `db:"phone"`
	Role     UserRole `db:"role"`
	IsActive bool     `db:"is_active"`
}
