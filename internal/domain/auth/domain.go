package auth

import "time"

// RefreshSession is a single-use (userID, sessionID) -> secret pair.
type RefreshSession struct {
	UserID    string
	SessionID string
	Secret    string
	TTL       time.Duration
}

// Identity is attached to a request once its bearer token checks out.
type Identity struct {
	UserID string
	Token  string
}
