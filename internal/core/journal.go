package core

import (
	"context"
	"time"
)

// BatchRecord is the journal entry written for every committed import.
type BatchRecord struct {
	ID           string     `json:"id"`
	Entity       EntityType `json:"entityType"`
	FileName     string     `json:"fileName,omitempty"`
	TotalRows    int        `json:"totalRows"`
	SuccessCount int        `json:"successCount"`
	ErrorCount   int        `json:"errorCount"`
	Inserted     int        `json:"inserted"`
	Updated      int        `json:"updated"`
	Pending      int        `json:"pending"`
	DurationMs   int64      `json:"durationMs"`
	IPAddress    string     `json:"ipAddress,omitempty"`
	UserAgent    string     `json:"userAgent,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func newBatchRecord(ctx context.Context, id, fileName string, res *ImportResult, at time.Time) BatchRecord {
	caller := CallerFromContext(ctx)
	return BatchRecord{
		ID:           id,
		Entity:       res.Entity,
		FileName:     fileName,
		TotalRows:    res.TotalRows,
		SuccessCount: res.SuccessCount,
		ErrorCount:   res.ErrorCount,
		Inserted:     res.Inserted,
		Updated:      res.Updated,
		Pending:      res.Pending,
		DurationMs:   res.ExecutionTimeMs,
		IPAddress:    caller.IPAddress,
		UserAgent:    caller.UserAgent,
		CreatedAt:    at,
	}
}
