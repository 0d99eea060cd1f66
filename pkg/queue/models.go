// Package queue holds the wire types for batch simulation jobs.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job asks a worker to run a simulation headlessly.
type Job struct {
	JobID string `json:"job_id"`

	// SessionID resumes a stored session; uuid.Nil starts a new run.
	SessionID uuid.UUID `json:"session_id"`
	Seed      int64     `json:"seed"`
	Ticks     int       `json:"ticks"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Result is what a worker reports when a job is done.
type Result struct {
	JobID      string    `json:"job_id"`
	SessionID  uuid.UUID `json:"session_id"`
	WorkerID   string    `json:"worker_id"`
	Ticks      int64     `json:"ticks"`
	Encounters int       `json:"encounters"`
	Alive      bool      `json:"alive"`
	Health     float64   `json:"health"`
	Tensions   []string  `json:"tensions,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// ToJSON converts the job to JSON bytes for Redis
func (j *Job) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// JobFromJSON parses a job from JSON bytes
func JobFromJSON(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}
