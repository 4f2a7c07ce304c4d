package domain

import "time"

// RefreshToken is the persisted record backing silent re-authentication.
// Field names match the refresh_tokens table shared with earlier releases.
type RefreshToken struct {
	Token    string    `json:"refresh_token" bson:"refresh_token" db:"refresh_token"`
	Username string    `json:"username" bson:"username" db:"username"`
	Valid    time.Time `json:"valid" bson:"valid" db:"valid"`
}

// ExpiredAt reports whether the token is past its validity at t.
func (r *RefreshToken) ExpiredAt(t time.Time) bool {
	return !r.Valid.After(t)
}
