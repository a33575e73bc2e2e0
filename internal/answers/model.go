package answers

import "time"

// Answer is an organization's current response to one blank.
// At most one exists per (BlankID, OrganizationID).
type Answer struct {
	BlankID        string
	OrganizationID string
	Value          string
	IsDefault      bool
	UpdatedAt      time.Time
}

// UpsertInput carries one answer write. IsDefault promotes Value to the organization's default for the blank.
type UpsertInput struct {
	BlankID        string
	OrganizationID string
	Value          string
	IsDefault      bool
}

// sameAs reports whether writing in would leave a unchanged.
func (a Answer) sameAs(in Answer) bool {
	return a.Value == in.Value && a.IsDefault == in.IsDefault
}
