package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TagSeparator joins tags on the wire
const TagSeparator = ";"

// ID is an opaque record identifier. It remembers whether it arrived as a
// JSON number or a JSON string and is encoded back the same way.
type ID struct {
	value   string
	numeric bool
}

// NewID returns an identifier that encodes as a JSON string
func NewID(s string) ID {
	return ID{value: s}
}

// NumericID returns an identifier that encodes as a JSON number
func NumericID(s string) ID {
	return ID{value: s, numeric: true}
}

// UnmarshalJSON accepts both numeric and string identifiers
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = NewID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = NumericID(n.String())
	return nil
}

// MarshalJSON emits the identifier in the JSON type it was decoded from
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id ID) String() string {
	return id.value
}

// Equal reports whether both identifiers carry the same value and wire type
func (id ID) Equal(other ID) bool {
	return id == other
}

// IsZero reports whether the identifier is unset
func (id ID) IsZero() bool {
	return id.value == ""
}

// Tags is an ordered list of short labels, serialized as one ';'-joined string
type Tags []string

// ParseTags splits a delimited tag string, trimming each tag and dropping empties
func ParseTags(s string) Tags {
	tags := Tags{}
	for _, part := range strings.Split(s, TagSeparator) {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// String joins the tags with the wire separator
func (t Tags) String() string {
	return strings.Join(t, TagSeparator)
}

// Has reports whether tag is present, ignoring case
func (t Tags) Has(tag string) bool {
	for _, existing := range t {
		if strings.EqualFold(existing, strings.TrimSpace(tag)) {
			return true
		}
	}
	return false
}

func (t Tags) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the delimited string form and, leniently, a JSON array
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = Tags{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
		*t = ParseTags(strings.Join(list, TagSeparator))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	*t = ParseTags(s)
	return nil
}

// AssignedTest is a test assigned to a candidate
type AssignedTest struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Candidate represents a roster entry owned by the remote API
type Candidate struct {
	ID        ID             `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Tags      Tags           `json:"tags"`
	Tests     []AssignedTest `json:"tests"`
	Completed bool           `json:"completed"`
}

// NewRow is an incoming import row
type NewRow struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Tags  Tags   `json:"tags"`
}

// DuplicateCandidate pairs an incoming row with the existing records it matches
type DuplicateCandidate struct {
	New      NewRow      `json:"new"`
	Existing []Candidate `json:"existing"`
}

// UploadResult is the outcome of a bulk import attempt
type UploadResult struct {
	Success    []Candidate          `json:"success"`
	Errors     []json.RawMessage    `json:"errors"`
	Duplicates []DuplicateCandidate `json:"duplicates,omitempty"`
}

// HasDuplicates reports whether the server left rows awaiting a decision
func (r *UploadResult) HasDuplicates() bool {
	return r != nil && len(r.Duplicates) > 0
}

// Action is a duplicate resolution choice
type Action string

const (
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// ParseAction validates a user-supplied action
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionUpdate:
		return ActionUpdate, nil
	case ActionSkip:
		return ActionSkip, nil
	}
	return "", fmt.Errorf("invalid action %q: must be update or skip", s)
}

// Decision is the explicit resolution submitted for one duplicate row
type Decision struct {
	New        NewRow `json:"new"`
	Action     Action `json:"action"`
	ExistingID *ID    `json:"existing_id,omitempty"`
}

// ResolveResult is the outcome of a resolution batch
type ResolveResult struct {
	Success []json.RawMessage `json:"success"`
	Errors  []json.RawMessage `json:"errors"`
}

// ImportRecord is one upload attempt in the local history
type ImportRecord struct {
	ID             int       `json:"id"`
	FileName       string    `json:"file_name"`
	Outcome        string    `json:"outcome"` // imported, needs_review, failed, rejected
	CreatedCount   int       `json:"created_count"`
	ErrorCount     int       `json:"error_count"`
	DuplicateCount int       `json:"duplicate_count"`
	Message        string    `json:"message"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// ResolutionRecord is one submitted resolution batch in the local history
type ResolutionRecord struct {
	ID           int       `json:"id"`
	ImportID     *int      `json:"import_id"`
	Updated      int       `json:"updated"`
	Skipped      int       `json:"skipped"`
	SuccessCount int       `json:"success_count"`
	ErrorCount   int       `json:"error_count"`
	Outcome      string    `json:"outcome"` // resolved, failed
	Message      string    `json:"message"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

const (
	OutcomeImported    = "imported"
	OutcomeNeedsReview = "needs_review"
	OutcomeFailed      = "failed"
	OutcomeRejected    = "rejected"
	OutcomeResolved    = "resolved"
)
