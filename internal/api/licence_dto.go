package api

import (
	"time"

	"github.com/licenced/internal/licence"
)

// StatusResponse is the API response for a licence status query.
type StatusResponse struct {
	Licence   string `json:"licence"`
	Days      int    `json:"days"`
	Unbounded bool   `json:"unbounded"`
	Active    bool   `json:"active"`
	Expired   bool   `json:"expired"`
}

// GrantRequest is the body of a licence grant. Days is a pointer so a
// missing field is distinguishable from an explicit zero.
type GrantRequest struct {
	UserID string       `json:"userId"`
	Type   licence.Kind `json:"type"`
	Days   *int         `json:"days"`
}

// GrantResponse echoes the persisted grant back to the operator.
type GrantResponse struct {
	ID            int64  `json:"id"`
	UserID        string `json:"userId"`
	Type          string `json:"type"`
	DaysRemaining int    `json:"daysRemaining"`
	ActivatedAt   string `json:"activatedAt"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toStatusResponse(st licence.Status) *StatusResponse {
	return &StatusResponse{
		Licence:   string(st.Kind),
		Days:      st.Days,
		Unbounded: st.Unbounded,
		Active:    st.Active,
		Expired:   st.Expired,
	}
}

func toGrantResponse(g *licence.Grant) *GrantResponse {
	return &GrantResponse{
		ID:            g.ID,
		UserID:        g.UserID,
		Type:          string(g.Kind),
		DaysRemaining: g.DaysRemaining,
		ActivatedAt:   g.ActivatedAt.UTC().Format(time.RFC3339),
	}
}

// noLicenceResponse is what unauthenticated or unknown callers see.
// It must stay byte-identical to a genuine no-licence answer.
func noLicenceResponse() *StatusResponse {
	return toStatusResponse(licence.Evaluate(nil, time.Now()))
}
