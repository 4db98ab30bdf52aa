// Package plan reads and mutates the milestone checklist.
//
// A plan is plain text. Lines whose trimmed form starts with "- [ ]" are
// pending milestones and lines starting with "- [x]" are done. Everything
// else is ignored. Line order is significant: the first pending line is the
// next milestone.
//
// Marking a milestone replaces its text everywhere in the plan, not just on
// its own line. Duplicate milestone lines are all checked off, and so is any
// pending line that merely starts with the same text ("- [ ] Build header"
// also flips "- [ ] Build header bar"). Milestone text is expected to be
// unique within a plan.
package plan

import (
	"strings"
)

const (
	// PendingToken prefixes an unfinished milestone.
	PendingToken = "- [ ]"

	// DoneToken prefixes a completed milestone.
	DoneToken = "- [x]"
)

// Milestone is the trimmed text of one pending plan line, token included.
type Milestone string

// String returns the milestone line.
func (m Milestone) String() string {
	return string(m)
}

// Description returns the milestone text without its checkbox token.
func (m Milestone) Description() string {
	return strings.TrimSpace(strings.TrimPrefix(string(m), PendingToken))
}

// Progress counts the milestones in a plan.
type Progress struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Pending int `json:"pending"`
}

// Complete reports whether no pending milestones remain.
func (p Progress) Complete() bool {
	return p.Pending == 0
}

// SelectNext returns the first pending milestone, scanning top to bottom.
// The boolean is false when every milestone is done.
func SelectNext(text string) (Milestone, bool) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, PendingToken) {
			return Milestone(trimmed), true
		}
	}
	return "", false
}

// Summarize counts pending and done milestones in text.
func Summarize(text string) Progress {
	var p Progress
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, PendingToken):
			p.Pending++
		case strings.HasPrefix(trimmed, DoneToken):
			p.Done++
		default:
			continue
		}
		p.Total++
	}
	return p
}

// Complete returns the line m becomes once marked done: the first pending
// token is replaced with the done token and the rest is kept verbatim.
func Complete(m Milestone) string {
	return strings.Replace(string(m), PendingToken, DoneToken, 1)
}

// apply rewrites content by replacing every occurrence of original.
// Duplicate milestone lines are all marked.
func apply(content, original, updated string) string {
	return strings.ReplaceAll(content, original, updated)
}
