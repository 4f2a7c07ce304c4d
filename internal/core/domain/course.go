package domain

import "time"

// Course is a training record owned by exactly one account.
//
// The owner credential is write-only: it is accepted at creation time to
// resolve OwnerID and has no JSON or BSON representation.
type Course struct {
	ID               string    `json:"id" bson:"_id"`
	InstitutionName  string    `json:"universityName" bson:"university_name"`
	ProgramName      string    `json:"courseName" bson:"course_name"`
	StartDate        time.Time `json:"startingYear" bson:"starting_year"`
	EndDate          time.Time `json:"endingDate" bson:"ending_date"`
	Responsibilities []string  `json:"responsibilities,omitempty" bson:"responsibilities,omitempty"`
	OwnerID          string    `json:"userId,omitempty" bson:"user_id"`
	CreatedAt        time.Time `json:"createdAt" bson:"created_at"`

	ownerCredential string
}

// AttachOwnerCredential sets the one-time value used to resolve the owner.
func (c *Course) AttachOwnerCredential(email string) {
	c.ownerCredential = email
}

// OwnerCredential returns the pending owner credential, if any.
func (c *Course) OwnerCredential() string {
	return c.ownerCredential
}

// EraseOwnerCredential discards the owner credential. It cannot be restored.
func (c *Course) EraseOwnerCredential() {
	c.ownerCredential = ""
}
