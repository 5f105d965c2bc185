package audit

import (
	"encoding/json"
	"time"
)

// Kind categorizes an audit entry.
type Kind string

const (
	KindPermissionCheck  Kind = "permission_check"
	KindPermissionUpdate Kind = "permission_update"
	KindRouteCheck       Kind = "route_check"
)

// Entry is a single append-only audit record. Entries are never mutated or
// deleted by the authorization layer; retention is handled separately.
type Entry struct {
	ID          string `json:"id"`
	ActorUserID string `json:"actor_user_id"`
	ActionKind  Kind   `json:"action_kind"`

	// Resource fields: type/action for permission events, id for the
	// concrete target (a route path, a subject user id).
	ResourceType   string `json:"resource_type,omitempty"`
	ResourceAction string `json:"resource_action,omitempty"`
	ResourceID     string `json:"resource_id,omitempty"`

	// Result of a decision, nil for events without a boolean outcome.
	Result *bool `json:"result,omitempty"`

	// Changes carries the structured before/after intent of a mutation.
	Changes map[string]interface{} `json:"changes,omitempty"`

	TenantID  string    `json:"tenant_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToJSON serializes the entry.
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an entry from JSON.
func FromJSON(data []byte) (*Entry, error) {
	var e Entry
	err := json.Unmarshal(data, &e)
	return &e, err
}
