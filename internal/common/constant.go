package common

const (
	// ExpectedVersionHeader carries the caller's base version on update and
	// delete requests. Requests without it are rejected before any version
	// comparison happens.
	ExpectedVersionHeader = "X-Expected-Version"

	// AuthorizationHeader carries the opaque identity token.
	AuthorizationHeader = "Authorization"

	// DefaultListLimit bounds list responses when the caller gives no limit.
	DefaultListLimit = 50

	// MaxListLimit is the hard ceiling for a single list page.
	MaxListLimit = 500

	// MaxNameLength bounds entity names (chars, not bytes).
	MaxNameLength = 500
)
