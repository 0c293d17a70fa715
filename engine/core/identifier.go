package core

import (
	"sync"

	"github.com/google/uuid"
)

var (
	onceRunID sync.Once
	runID     string
)

// RunID returns the identifier of this process run. It is attached to every
// log record so that output from concurrent runs can be told apart.
func RunID() string {
	onceRunID.Do(func() {
		runID = uuid.NewString()
	})
	return runID
}
