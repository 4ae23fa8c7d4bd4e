package domain

// Session is the authentication state owned by the session store.
// Loading is transient and is never persisted.
type Session struct {
	User            *User  `json:"user"`
	Token           string `json:"token,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Loading         bool   `json:"-"`
}
