package models

import (
	"encoding/json"
	"time"
)

// TargetType names the aggregate a queue item or conflict refers to.
type TargetType string

const (
	TargetEntity   TargetType = "entity"
	TargetCuration TargetType = "curation"
)

// QueueAction is the mutation a queue item will replay against the server.
type QueueAction string

const (
	ActionCreate QueueAction = "create"
	ActionUpdate QueueAction = "update"
	ActionDelete QueueAction = "delete"
)

// QueueStatus is the per-item sync state machine:
// pending → in_flight → {done | conflict | stuck}.
type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueInFlight QueueStatus = "in_flight"
	QueueDone     QueueStatus = "done"
	QueueConflict QueueStatus = "conflict"
	QueueStuck    QueueStatus = "stuck"
)

// SyncQueueItem is a durable record of one pending local mutation. The
// payload is a snapshot taken at enqueue time so a later local edit cannot
// retroactively change what an earlier item pushes.
type SyncQueueItem struct {
	ID          string          `json:"id"`
	Type        TargetType      `json:"type"`
	Action      QueueAction     `json:"action"`
	TargetID    string          `json:"target_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	RetryCount  int             `json:"retry_count"`
	NextRetryAt time.Time       `json:"next_retry_at"`
	Status      QueueStatus     `json:"status"`
}
