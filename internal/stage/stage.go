// Package stage runs the fixed set of simulated post-generation stages concurrently
// and collects each outcome independently.
package stage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyStageName = errors.New("stage name is empty")
	ErrNilStageFunc   = errors.New("stage func is nil")
	ErrDuplicateStage = errors.New("stage already registered")
	ErrNegativeDelay  = errors.New("stage delay is negative")
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Input is shared read-only by every stage of one run.
type Input struct {
	Code   string
	Prompt string
}

// Func produces a stage payload after the simulated wait has elapsed.
type Func func(ctx context.Context, in Input) (map[string]any, error)

// Stage is one named unit of simulated work.
type Stage struct {
	Name  string
	Delay time.Duration
	Run   Func
}

// Result is the outcome of one stage.
type Result struct {
	Stage      string         `json:"stage"`
	Status     Status         `json:"status"`
	Payload    map[string]any `json:"payload,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs float64        `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
}

func validate(stages []Stage) error {
	seen := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		if s.Name == "" {
			return ErrEmptyStageName
		}
		if s.Run == nil {
			return fmt.Errorf("%w: %s", ErrNilStageFunc, s.Name)
		}
		if s.Delay < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeDelay, s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateStage, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
