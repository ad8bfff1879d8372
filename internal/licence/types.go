package licence

import "time"

// DefaultUserID is used when a status query names no user.
const DefaultUserID = "default"

// Kind identifies the category of a licence grant.
type Kind string

const (
	KindNone      Kind = "none"
	KindTimed     Kind = "timed"
	KindUnlimited Kind = "unlimited"
)

// Known reports whether k is a recognised grant kind.
func (k Kind) Known() bool {
	switch k {
	case KindNone, KindTimed, KindUnlimited:
		return true
	}
	return false
}

// Grant is a single licence-activation event. Grants are append-only: a
// user's current licence is always the most recently activated row, and
// older rows are retained as history. Only the decay sweep mutates a row,
// and only its DaysRemaining/UpdatedAt fields.
type Grant struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"userId"`
	Kind          Kind      `json:"type"`
	DaysRemaining int       `json:"daysRemaining"`
	ActivatedAt   time.Time `json:"activatedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Status is the derived, point-in-time answer to "is this user licensed,
// and for how long". Unlimited licences are reported with Unbounded=true
// and Days=0; no numeric value of Days ever means "forever".
type Status struct {
	Kind      Kind `json:"licence"`
	Days      int  `json:"days"`
	Unbounded bool `json:"unbounded"`
	Active    bool `json:"active"`
	Expired   bool `json:"expired"`
}
