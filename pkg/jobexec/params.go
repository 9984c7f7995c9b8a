package jobexec

import (
	"github.com/docugen/docugen/pkg/engine"
	"github.com/docugen/docugen/pkg/render"
)

// Params defines the input required to create a generation job.
type Params struct {
	Name     string
	Items    []engine.ItemSpec
	Settings engine.Settings
}

// ArtifactResult pairs a completed item with its artifact reference.
type ArtifactResult struct {
	ItemID         string             `json:"item_id"`
	DocumentNumber string             `json:"document_number"`
	Artifact       render.ArtifactRef `json:"artifact"`
}

// FailedItem pairs a failed item with its classified error.
type FailedItem struct {
	ItemID         string           `json:"item_id"`
	DocumentNumber string           `json:"document_number"`
	Error          engine.ItemError `json:"error"`
}

// Results is the outcome view of a job: every completed artifact and every
// failure recorded so far. Final indicates the job has reached a terminal
// state and the result set will not change again.
type Results struct {
	JobID              string           `json:"job_id"`
	State              engine.JobState  `json:"-"`
	StateLabel         string           `json:"state"`
	Final              bool             `json:"final"`
	CompletedArtifacts []ArtifactResult `json:"completed_artifacts"`
	FailedItems        []FailedItem     `json:"failed_items"`
}
