package db

import (
	"database/sql"
	"log"
)

// Recorder writes events to the events table. Write failures are logged and
// otherwise ignored so that event recording never fails a caller.
type Recorder struct {
	DB *sql.DB
}

// Record logs an event and returns its id, or 0 if it could not be written.
func (r *Recorder) Record(parentID *int64, eventType string, payload map[string]any) int64 {
	if r == nil || r.DB == nil {
		return 0
	}
	if parentID != nil && *parentID == 0 {
		parentID = nil
	}
	id, err := LogEvent(r.DB, parentID, eventType, payload)
	if err != nil {
		log.Printf("[events] failed to record %s: %v", eventType, err)
		return 0
	}
	return id
}
