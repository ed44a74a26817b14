package types

import "time"

// IdentityStatus mirrors the roster's status column. Only Active identities
// are ever considered by the matcher.
type IdentityStatus string

const (
	StatusActive   IdentityStatus = "Active"
	StatusInactive IdentityStatus = "Inactive"
	StatusOnLeave  IdentityStatus = "OnLeave"
)

// Identity is an enrolled directory record. The roster CRUD that creates and
// removes rows lives outside this server; the only field mutated here is
// LastAccessAt, on a successful authentication.
type Identity struct {
	ID                  int64
	Name                string
	Department          string
	Role                string
	Status              IdentityStatus
	Enrolled            bool
	FaceTemplate        string // opaque template blob, may be empty
	FingerprintTemplate string // opaque template blob, may be empty
	CardID              string // may be empty
	LastAccessAt        *time.Time
}
