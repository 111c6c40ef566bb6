// Package auth resolves bearer tokens into an explicit caller Identity.
// Handlers and core calls receive the Identity as a parameter; nothing reads
// it back out of a request context.
package auth

// Identity is the resolved caller. The zero value is anonymous.
type Identity struct {
	UserID   string
	Username string
}

func Anonymous() Identity { return Identity{} }

func (id Identity) Authenticated() bool { return id.UserID != "" }
