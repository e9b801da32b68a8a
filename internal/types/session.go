package types

// Session is the resolved identity state for an authenticated user: account,
// profile, role set and settings, loaded together after login or on demand.
type Session struct {
	User     *UserAuth     `json:"user"`
	Profile  *UserProfile  `json:"profile"`
	Roles    []UserRole    `json:"roles"`
	Settings *UserSettings `json:"settings"`
}

// HasRole reports whether the resolved role set contains the given role.
// An unresolved session (nil receiver or no user) never has a role.
func (s *Session) HasRole(role Role) bool {
	if s == nil || s.User == nil {
		return false
	}
	for _, r := range s.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}
