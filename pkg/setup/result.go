package setup

import (
	"time"

	"github.com/repowizard/repowizard/pkg/deps"
)

// StageTimings records wall-clock time spent per stage.
type StageTimings struct {
	Validate time.Duration `json:"validate"`
	Acquire  time.Duration `json:"acquire"`
	Install  time.Duration `json:"install"`
}

// Result is the outcome of one successful setup run. Install failures and
// skipped managers appear in Installs; they do not make the run an error.
type Result struct {
	// RunID identifies the run in history and logs.
	RunID string `json:"run_id"`
	// FinalPath is the resolved target directory holding the repository.
	FinalPath string `json:"final_path"`
	// FilesProcessed is the recursive file count of FinalPath.
	FilesProcessed int `json:"files_processed"`
	// Installs lists dependency-install attempts in execution order.
	Installs []deps.Record `json:"installs,omitempty"`
	// Duration is total wall-clock time for the run.
	Duration time.Duration `json:"duration"`
	// Stages breaks the duration down per stage.
	Stages StageTimings `json:"stages"`
	// LogPath is the per-run log file, when one was recorded.
	LogPath string `json:"log_path,omitempty"`
}

// Warnings counts install attempts that did not succeed.
func (r *Result) Warnings() int {
	n := 0
	for _, rec := range r.Installs {
		if !rec.Success {
			n++
		}
	}
	return n
}
