package models

// UserContext is what the auth layer resolves for every request.
type UserContext struct {
	UserID   string   `json:"userId"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	TenantID string   `json:"tenantId"`
	OrgID    string   `json:"orgId"`
	Roles    []string `json:"roles"`
}

func (u *UserContext) HasRole(roles ...string) bool {
	for _, have := range u.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
