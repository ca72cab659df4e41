package models

// User is the authenticated GitHub account as reported by /api/auth/me.
type User struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url"`
	Email     *string `json:"email,omitempty"`
	GitHubID  int64   `json:"github_id"`
}

// ProfileURL returns the user's GitHub profile link.
func (u *User) ProfileURL() string {
	return "https://github.com/" + u.Username
}
