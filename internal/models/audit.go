package models

import "time"

// AuditAction names a store mutation or engine run recorded in the audit
// trail.
type AuditAction string

const (
	AuditCreate      AuditAction = "CREATE"
	AuditUpdate      AuditAction = "UPDATE"
	AuditDelete      AuditAction = "DELETE"
	AuditRecalculate AuditAction = "RECALCULATE"
	AuditSimulate    AuditAction = "SIMULATE"
)

// AuditEntry is one append-only record. EntityType is a NodeType string for
// entity mutations, or "EDGE" for edge mutations.
type AuditEntry struct {
	ID         string                 `json:"id"`
	TenantID   string                 `json:"tenantId"`
	Action     AuditAction            `json:"action"`
	EntityType string                 `json:"entityType,omitempty"`
	EntityID   string                 `json:"entityId,omitempty"`
	Actor      string                 `json:"actor,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
}
