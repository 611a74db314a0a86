package model

type Role string

const (
	RoleNone      Role = "none"
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
)

// Principal is the resolved caller of a request. Admin membership wins over
// a clinician profile: such a caller is always treated as admin.
type Principal struct {
	UserID    int64
	Email     string
	Admin     bool
	Clinician *Clinician
	PatientID *int64
}

func (p *Principal) Role() Role {
	switch {
	case p == nil:
		return RoleNone
	case p.Admin:
		return RoleAdmin
	case p.Clinician != nil:
		return RoleClinician
	default:
		return RoleNone
	}
}

func (p *Principal) IsAdmin() bool {
	return p.Role() == RoleAdmin
}

// IsClinician is false for admins even when they own a clinician profile.
func (p *Principal) IsClinician() bool {
	return p.Role() == RoleClinician
}

// ClinicianID returns the caller's clinician id when acting as a clinician.
func (p *Principal) ClinicianID() (int64, bool) {
	if !p.IsClinician() {
		return 0, false
	}
	return p.Clinician.ID, true
}
