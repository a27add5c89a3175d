// Package queue defines message payloads exchanged over the message broker.
package queue

// ListingDispatchedEvent is published after the scheduler accepted a task
// for a listing. It carries enough information for downstream consumers to
// build an audit trail without querying the primary database.
type ListingDispatchedEvent struct {
	ListingID    uint64 `json:"listing_id"`
	UserID       uint64 `json:"user_id"`
	ConfigID     uint64 `json:"request_config_id"`
	ConfigName   string `json:"request_config_name"`
	TaskName     string `json:"task_name"`
	Method       string `json:"method"`
	TargetURL    string `json:"target_url"`
	Batch        bool   `json:"batch"`
	DispatchedAt string `json:"dispatched_at"`
}
