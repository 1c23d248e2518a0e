// Package layout holds the comparison domain: one rendered layout per
// environment, the side-by-side result, and the JSON normalization applied
// before the two documents are shown next to each other.
package layout

import "fmt"

// Environment identifies which rendering of a page a document came from
type Environment string

const (
	// EnvironmentPreview is the authoring rendering, not yet published
	EnvironmentPreview Environment = "preview"
	// EnvironmentPublished is the live rendering served after publish
	EnvironmentPublished Environment = "published"
)

const (
	// MessageNotFetched marks a branch that has not settled yet
	MessageNotFetched = "Not fetched"
	// MessageComparisonFailed is used on both sides when orchestration itself fails
	MessageComparisonFailed = "Comparison failed"
	// DefaultLanguage is used when a request does not name one
	DefaultLanguage = "en"
)

// Label returns the capitalised name used in user-facing messages
func (e Environment) Label() string {
	switch e {
	case EnvironmentPreview:
		return "Preview"
	case EnvironmentPublished:
		return "Published"
	default:
		return string(e)
	}
}

// Valid reports whether e is one of the known environments
func (e Environment) Valid() bool {
	return e == EnvironmentPreview || e == EnvironmentPublished
}

// LayoutDocument is one environment's rendered layout or the reason it is missing
type LayoutDocument struct {
	Rendered string `json:"rendered,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Ok reports whether the document carries a rendering and no error
func (d LayoutDocument) Ok() bool {
	return d.Rendered != "" && d.Error == ""
}

// Failed reports whether the document carries an error
func (d LayoutDocument) Failed() bool {
	return d.Error != ""
}

// Rendered builds a successful document
func Rendered(rendered string) LayoutDocument {
	return LayoutDocument{Rendered: rendered}
}

// Failure builds a failed document with the given message
func Failure(message string) LayoutDocument {
	return LayoutDocument{Error: message}
}

// FailedBranch builds the branch error attached by the orchestrator. The
// message names the environment so a reader can tell which side broke.
func FailedBranch(env Environment, message string) LayoutDocument {
	return LayoutDocument{Error: fmt.Sprintf("%s fetch failed: %s", env.Label(), message)}
}

// ItemInfo is display metadata for the compared item
type ItemInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Path        string `json:"path"`
}

// ComparisonResult pairs the preview and published documents of one page
type ComparisonResult struct {
	Preview   LayoutDocument `json:"preview"`
	Published LayoutDocument `json:"published"`
	ItemInfo  *ItemInfo      `json:"itemInfo,omitempty"`
}

// Status summarises how much of a comparison is available
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

// NewPendingResult returns a result whose branches have not settled
func NewPendingResult() ComparisonResult {
	return ComparisonResult{
		Preview:   Failure(MessageNotFetched),
		Published: Failure(MessageNotFetched),
	}
}

// ComparisonFailed returns the result used when orchestration breaks outside
// the per-branch isolation
func ComparisonFailed() ComparisonResult {
	return ComparisonResult{
		Preview:   Failure(MessageComparisonFailed),
		Published: Failure(MessageComparisonFailed),
	}
}

// Branch returns the document for env
func (r ComparisonResult) Branch(env Environment) LayoutDocument {
	if env == EnvironmentPublished {
		return r.Published
	}
	return r.Preview
}

// Status reports whether both, one, or neither side rendered
func (r ComparisonResult) Status() Status {
	switch {
	case r.Preview.Ok() && r.Published.Ok():
		return StatusComplete
	case r.Preview.Ok() || r.Published.Ok():
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Identical reports whether both sides rendered to the same normalized text
func (r ComparisonResult) Identical() bool {
	if !r.Preview.Ok() || !r.Published.Ok() {
		return false
	}
	return Normalize(r.Preview.Rendered) == Normalize(r.Published.Rendered)
}
