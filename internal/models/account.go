package models

// Role selects the privilege scope of a provisioned database account.
type Role string

const (
	RoleAdmin  Role = "admin"  // full privileges on the target database
	RoleReader Role = "reader" // SELECT only
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleReader
}

// DatabaseAccount is a login role the pipeline provisions on the target database.
type DatabaseAccount struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Role     Role   `json:"role"`
}
