package domain

import "time"

// AccessCodeLength is the length of a conjunto access code.
const AccessCodeLength = 10

// Conjunto is a residential complex. Users and reports are scoped to
// exactly one conjunto. The access code is the shared secret residents
// use to self-associate with the conjunto; regenerating it implicitly
// invalidates the previous code.
type Conjunto struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	AccessCode string    `json:"access_code"`
	CreatedAt  time.Time `json:"created_at"`
}
