package types

// User represents an account in the contest.
// It is created once by registration and never mutated afterwards.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`

	// Name is the display name chosen at registration. It doubles as the
	// login name and must be unique within the contest.
	Name string `json:"name"`

	// IsAdmin marks the user as a contest administrator. Admins see the
	// phase controls, the criteria editor, and the title editor.
	IsAdmin bool `json:"isAdmin"`

	// Password is only populated transiently while credentials travel to
	// the persistence backend. It is never echoed in API responses.
	Password string `json:"password,omitempty"`
}

// Sanitized returns a copy of the user safe to embed in responses and tokens.
func (u User) Sanitized() User {
	u.Password = ""
	return u
}
