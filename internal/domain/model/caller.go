package model

// Role is the capability a request arrives with.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDistributor Role = "distributor"
)

// Caller is the already-authenticated capability a use case is invoked with.
type Caller struct {
	Role          Role
	DistributorID string
}

func AdminCaller() Caller                { return Caller{Role: RoleAdmin} }
func DistributorCaller(id string) Caller { return Caller{Role: RoleDistributor, DistributorID: id} }
func (c Caller) IsAdmin() bool           { return c.Role == RoleAdmin }
func (c Caller) IsDistributor() bool     { return c.Role == RoleDistributor && c.DistributorID != "" }
