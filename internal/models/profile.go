package models

import "time"

// UserProfile represents a registered learner
type UserProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Age       int       `json:"age,omitempty"`
	Grade     int       `json:"grade,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasEmail reports whether the profile can receive mail
func (p *UserProfile) HasEmail() bool {
	return p != nil && p.Email != ""
}
