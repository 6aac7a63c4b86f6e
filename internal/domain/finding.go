// Package domain holds the core value types shared across the analysis
// pipeline, session state machine, persistence layer, and discussion engine.
package domain

import "time"

// Severity is the normalized severity tier of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Lens identifies one of the six analytical perspectives.
type Lens string

const (
	LensProse      Lens = "prose"
	LensStructure  Lens = "structure"
	LensLogic      Lens = "logic"
	LensClarity    Lens = "clarity"
	LensContinuity Lens = "continuity"
	LensDialogue   Lens = "dialogue"
)

// AllLenses lists the six lenses in a fixed dispatch order.
var AllLenses = []Lens{LensProse, LensStructure, LensLogic, LensClarity, LensContinuity, LensDialogue}

// AmbiguityType classifies a finding flagged as ambiguous.
type AmbiguityType string

const (
	AmbiguityUnclear             AmbiguityType = "unclear"
	AmbiguityPossiblyIntentional AmbiguityType = "ambiguous_possibly_intentional"
	AmbiguityNone                AmbiguityType = ""

	// AmbiguityAnswerIntentional and AmbiguityAnswerAccidental classify the
	// author's discussion-tag answer to an ambiguity finding; a distinct
	// vocabulary from the finding-level AmbiguityType values above.
	AmbiguityAnswerIntentional AmbiguityType = "intentional"
	AmbiguityAnswerAccidental  AmbiguityType = "accidental"
)

// FindingStatus is the lifecycle state of a single finding.
type FindingStatus string

const (
	StatusPending   FindingStatus = "pending"
	StatusAccepted  FindingStatus = "accepted"
	StatusRejected  FindingStatus = "rejected"
	StatusRevised   FindingStatus = "revised"
	StatusWithdrawn FindingStatus = "withdrawn"
	StatusEscalated FindingStatus = "escalated"
)

// TerminalStatuses holds the statuses from which a finding no longer blocks
// session completion.
var TerminalStatuses = map[FindingStatus]bool{
	StatusAccepted:  true,
	StatusRejected:  true,
	StatusWithdrawn: true,
}

// IsTerminal reports whether status is a terminal finding status.
func IsTerminal(status FindingStatus) bool {
	return TerminalStatuses[status]
}

// DiscussionRole distinguishes the two sides of a discussion turn.
type DiscussionRole string

const (
	RoleUser      DiscussionRole = "user"
	RoleAssistant DiscussionRole = "assistant"
)

// DiscussionTurn is one message exchanged while discussing a finding.
type DiscussionTurn struct {
	Role    DiscussionRole `json:"role"`
	Content string         `json:"content"`
}

// SessionDiscussionEntry is one exchange recorded at the session level,
// indexed by the finding it concerned. Kept alongside Finding.DiscussionTurns
// for a flat chronological history across all findings in a session.
type SessionDiscussionEntry struct {
	FindingNumber int    `json:"finding_number"`
	User          string `json:"user"`
	Assistant     string `json:"assistant"`
}

// RevisionSnapshot captures the mutable fields of a finding immediately
// before a discussion-driven revision overwrites them.
type RevisionSnapshot struct {
	Severity Severity `json:"severity"`
	Evidence string   `json:"evidence"`
	Impact   string   `json:"impact"`
	Options  []string `json:"options"`
}

// Finding is one editorial observation surfaced by the analysis pipeline
// and tracked through the interactive review loop.
type Finding struct {
	Number    int      `json:"number"`
	Severity  Severity `json:"severity"`
	Lens      Lens     `json:"lens"`
	Location  string   `json:"location"`
	LineStart *int     `json:"line_start"`
	LineEnd   *int     `json:"line_end"`
	ScenePath string   `json:"scene_path,omitempty"`
	Evidence  string   `json:"evidence"`
	Impact    string   `json:"impact"`
	Options   []string `json:"options"`

	FlaggedBy     []Lens        `json:"flagged_by"`
	AmbiguityType AmbiguityType `json:"ambiguity_type,omitempty"`
	Stale         bool          `json:"stale"`

	Status         FindingStatus      `json:"status"`
	AuthorResponse string             `json:"author_response,omitempty"`
	DiscussionTurns []DiscussionTurn  `json:"discussion_turns"`
	RevisionHistory []RevisionSnapshot `json:"revision_history"`
	OutcomeReason   string             `json:"outcome_reason,omitempty"`
}

// Snapshot captures the fields a revision pushes onto RevisionHistory.
func (f *Finding) Snapshot() RevisionSnapshot {
	opts := make([]string, len(f.Options))
	copy(opts, f.Options)
	return RevisionSnapshot{
		Severity: f.Severity,
		Evidence: f.Evidence,
		Impact:   f.Impact,
		Options:  opts,
	}
}

// HasLineRange reports whether both line endpoints are set.
func (f *Finding) HasLineRange() bool {
	return f.LineStart != nil && f.LineEnd != nil
}

// SessionStatus is the lifecycle state of a review session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// LensPreferences is a resolved weighting scheme: a preset name plus the
// effective per-lens weight map (preset defaults merged with overrides).
type LensPreferences struct {
	Preset  string           `json:"preset"`
	Weights map[Lens]float64 `json:"weights"`
}

// SessionCounters tracks terminal-status tallies for quick reporting.
type SessionCounters struct {
	Total     int `json:"total"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Withdrawn int `json:"withdrawn"`
}

// Session owns an ordered sequence of findings plus review progress for one
// scene (or multi-scene) review pass.
type Session struct {
	ID               string    `json:"session_id"`
	ScenePaths       []string  `json:"scene_paths"`
	SceneHash        string    `json:"scene_hash"`
	Model            string    `json:"model"`
	DiscussionModel  string    `json:"discussion_model,omitempty"`
	Findings         []*Finding `json:"findings"`
	CurrentIndex     int       `json:"current_index"`
	Status           SessionStatus `json:"status"`
	GlossaryIssues   []string  `json:"glossary_issues"`
	DiscussionHistory []SessionDiscussionEntry `json:"discussion_history"`
	LensPreferences  LensPreferences `json:"lens_preferences"`

	IndexContextHash    string   `json:"index_context_hash"`
	IndexContextStale   bool     `json:"index_context_stale"`
	IndexRerunPrompted  bool     `json:"index_rerun_prompted"`
	IndexChangedFiles   []string `json:"index_changed_files"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Counters    SessionCounters `json:"counters"`

	LearningSession LearningWorkingLists `json:"learning_session"`
}

// FindingByNumber returns the finding with the given number, or nil.
func (s *Session) FindingByNumber(number int) *Finding {
	for _, f := range s.Findings {
		if f.Number == number {
			return f
		}
	}
	return nil
}

// RecomputeCounters recalculates Counters from the current finding set.
func (s *Session) RecomputeCounters() {
	c := SessionCounters{Total: len(s.Findings)}
	for _, f := range s.Findings {
		switch f.Status {
		case StatusAccepted:
			c.Accepted++
		case StatusRejected:
			c.Rejected++
		case StatusWithdrawn:
			c.Withdrawn++
		}
	}
	s.Counters = c
}
