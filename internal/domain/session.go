package domain

import "time"

// Session is the client-side authentication state. An empty AccessToken
// means unauthenticated.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	UserInfo     *UserRecord `json:"user_info,omitempty"`
	IsLoading    bool        `json:"is_loading"`
	ExpiresAt    time.Time   `json:"expires_at,omitempty"`
}

func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Expired reports whether the access token carries a known expiry that has
// passed. Tokens without an expiry never report expired.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
