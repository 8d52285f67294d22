package ingestion

import "github.com/poiesic/catalogsync/core"

// Result reports a transform-and-load run. Rejected records are listed in
// Rejections and do not make the run unsuccessful; extraction and load
// failures go to the run's error list and do.
type Result struct {
	core.RunInfo
	Extracted  int            `json:"extracted"`
	Validated  int            `json:"validated"`
	Rejected   int            `json:"rejected"`
	Cleaned    int            `json:"cleaned"`
	Normalized int            `json:"normalized"`
	Inserted   int            `json:"inserted"`
	Updated    int            `json:"updated"`
	Rejections core.ErrorList `json:"rejections"`
	Warnings   []string       `json:"warnings,omitempty"`

	// SKUs lists the products handed to the store, in load order.
	SKUs []string `json:"-"`
}

func newResult() *Result {
	return &Result{RunInfo: core.NewRunInfo()}
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
