package model

import "time"

// ===== Invites =====

// Invite is a shareable guild invite with its usage counter.
type Invite struct {
	Code        string    `json:"code"`
	Uses        int       `json:"uses"`
	InviterID   Snowflake `json:"inviter_id,omitempty"`
	InviterName string    `json:"inviter_name,omitempty"`
}

// AttributionMethod describes how an inviter was inferred.
type AttributionMethod string

const (
	AttributionExact    AttributionMethod = "exact"
	AttributionFallback AttributionMethod = "fallback"
	AttributionUnknown  AttributionMethod = "unknown"
	// AttributionRecorded is rebuilt from a stored invite history record.
	AttributionRecorded AttributionMethod = "recorded"
)

// Attribution is the result of diffing invite counters on a join.
type Attribution struct {
	Method       AttributionMethod `json:"method"`
	Code         string            `json:"code,omitempty"`
	PreviousUses int               `json:"previous_uses"`
	Uses         int               `json:"uses"`
	InviterID    Snowflake         `json:"inviter_id,omitempty"`
	InviterName  string            `json:"inviter_name,omitempty"`
}

// UnknownAttribution returns the sentinel for joins that cannot be attributed.
func UnknownAttribution() *Attribution {
	return &Attribution{Method: AttributionUnknown}
}

// IsKnown reports whether an invite was identified.
func (a *Attribution) IsKnown() bool {
	return a != nil && a.Method != AttributionUnknown && a.Code != ""
}

// InviterInfo is the inviter context handed to the biography generator.
type InviterInfo struct {
	ID                Snowflake `json:"id,omitempty"`
	Name              string    `json:"name,omitempty"`
	TopRoleName       string    `json:"top_role_name,omitempty"`
	PreviousBiography string    `json:"previous_biography,omitempty"`
	InviteCode        string    `json:"invite_code,omitempty"`
}

// UnknownInviter returns the sentinel inviter.
func UnknownInviter() InviterInfo {
	return InviterInfo{}
}

// Known reports whether the inviter could be identified.
func (i InviterInfo) Known() bool {
	return !i.ID.IsZero() && i.Name != ""
}

// ===== Invite history =====

// InviteHistoryRecord is written once per member at join time.
type InviteHistoryRecord struct {
	InviterName string    `json:"inviterName"`
	InviterID   Snowflake `json:"inviterId"`
	InviteCode  string    `json:"inviteCode"`
	JoinDate    time.Time `json:"joinDate"`
}
