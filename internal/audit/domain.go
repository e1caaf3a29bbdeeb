// Package audit keeps the security trail: login outcomes and policy
// denials, queryable by SuperAdmin.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the trail.
const (
	ActionLoginSucceeded = "auth.login_succeeded"
	ActionLoginFailed    = "auth.login_failed"
	ActionPolicyDenied   = "policy.denied"
)

// Event is one audit trail entry. CompanyID and ActorID are zero for
// events that precede authentication, such as failed logins.
type Event struct {
	ID        int64     `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	ActorID   uuid.UUID `json:"actor_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filters narrows a trail listing.
type Filters struct {
	CompanyID uuid.UUID
	Action    string
	From      time.Time
	To        time.Time
}
