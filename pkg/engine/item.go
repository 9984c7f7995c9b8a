// pkg/engine/item.go
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/docugen/docugen/pkg/render"
)

// DocumentType identifies the kind of business document an item renders.
type DocumentType string

// Supported document types.
const (
	DocInvoice   DocumentType = "invoice"
	DocQuote     DocumentType = "quote"
	DocReceipt   DocumentType = "receipt"
	DocStatement DocumentType = "statement"
)

// IsValid checks if the DocumentType is one of the supported kinds.
func (d DocumentType) IsValid() bool {
	switch d {
	case DocInvoice, DocQuote, DocReceipt, DocStatement:
		return true
	default:
		return false
	}
}

// String returns the string representation of DocumentType.
func (d DocumentType) String() string {
	return string(d)
}

// ParseDocumentType converts a manifest/API string into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	d := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return d, nil
}

// Priority is an advisory dispatch ordering hint. Higher priority items are
// offered to free workers first; priority never preempts an in-flight render.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// String returns the string representation of the Priority value.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	default:
		return "normal"
	}
}

// ParsePriority converts a manifest/API string into a Priority. The empty
// string maps to PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority %q", s)
	}
}

// ItemState tracks one item through its lifecycle.
//
// Transitions:
//
//	Pending    -> Generating  (worker picks up)
//	Generating -> Completed   (render succeeds)
//	Generating -> Failed      (render fails)
//	Pending    -> Skipped     (job cancelled before pickup)
//	Generating -> Skipped     (job cancelled mid-render; result discarded)
//
// Completed, Failed, and Skipped are terminal.
type ItemState int

const (
	ItemPending ItemState = iota
	ItemGenerating
	ItemCompleted
	ItemFailed
	ItemSkipped
)

// String returns the string representation of the ItemState value.
func (s ItemState) String() string {
	return [...]string{"pending", "generating", "completed", "failed", "skipped"}[s]
}

// IsTerminal returns true if the state has no outgoing transitions.
func (s ItemState) IsTerminal() bool {
	return s == ItemCompleted || s == ItemFailed || s == ItemSkipped
}

// ItemError records why an item failed. Populated only on items in the
// Failed state.
type ItemError struct {
	Kind    render.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ItemSpec describes one document to generate, as supplied at job creation.
// ID may be left empty; the engine assigns one.
type ItemSpec struct {
	ID             string
	DocumentType   DocumentType
	DocumentNumber string
	Amount         float64
	Currency       string
	Priority       Priority
}

// Item is one unit of work inside a job. Identity fields are fixed at job
// creation; lifecycle fields are mutated only under the owning job's lock.
type Item struct {
	id             string
	documentType   DocumentType
	documentNumber string
	amount         float64
	currency       string
	priority       Priority

	state       ItemState
	err         *ItemError
	artifact    *render.ArtifactRef
	startedAt   time.Time // entry into Generating
	generatedAt time.Time // entry into Completed/Failed
}

// ItemSnapshot is an immutable copy of an item's observable state, safe to
// hand out while the job keeps running.
type ItemSnapshot struct {
	ID             string              `json:"id"`
	DocumentType   DocumentType        `json:"document_type"`
	DocumentNumber string              `json:"document_number"`
	Amount         float64             `json:"amount"`
	Currency       string              `json:"currency"`
	Priority       string              `json:"priority"`
	State          string              `json:"state"`
	Error          *ItemError          `json:"error,omitempty"`
	Artifact       *render.ArtifactRef `json:"artifact,omitempty"`
	GeneratedAt    time.Time           `json:"generated_at,omitzero"`
	Duration       time.Duration       `json:"duration,omitempty"`
}

// snapshot copies the item under the caller-held job lock.
func (it *Item) snapshot() ItemSnapshot {
	snap := ItemSnapshot{
		ID:             it.id,
		DocumentType:   it.documentType,
		DocumentNumber: it.documentNumber,
		Amount:         it.amount,
		Currency:       it.currency,
		Priority:       it.priority.String(),
		State:          it.state.String(),
		GeneratedAt:    it.generatedAt,
	}
	if d, ok := it.duration(); ok {
		snap.Duration = d
	}
	if it.err != nil {
		errCopy := *it.err
		snap.Error = &errCopy
	}
	if it.artifact != nil {
		artCopy := *it.artifact
		snap.Artifact = &artCopy
	}
	return snap
}

// duration reports the measured render duration for items that reached
// Completed or Failed, and false otherwise.
func (it *Item) duration() (time.Duration, bool) {
	if it.state != ItemCompleted && it.state != ItemFailed {
		return 0, false
	}
	if it.startedAt.IsZero() || it.generatedAt.IsZero() {
		return 0, false
	}
	return it.generatedAt.Sub(it.startedAt), true
}
