package qpipe

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

// problemChildNumber extracts the best-effort child ordinal from a trailing
// /<digits>/ in a problem URI.
var problemChildNumber = regexp.MustCompile(`/(\d{1,2})/?$`)

// Problem is the payload of a problem hierarchy node: the owning resource id.
type Problem struct {
	ResourceID string
}

// NewProblemPayload returns an empty Problem payload.
func NewProblemPayload() *Problem {
	return &Problem{}
}

// Merge fills the resource id from other when this node has none.
func (p *Problem) Merge(other *Problem) {
	if other.ResourceID != "" && p.ResourceID == "" {
		p.ResourceID = other.ResourceID
	}
}

// SubmissionManager derives submission and assessment rows from
// problem-interaction events and maintains the problem hierarchy.
type SubmissionManager struct {
	problems    *Hierarchy[*Problem]
	writer      moocdb.Writer
	submissions moocdb.Writer
	assessments moocdb.Writer
}

// NewSubmissionManager creates a manager writing into db. The problem
// hierarchy is rooted at the module URI scheme prefix.
func NewSubmissionManager(db *moocdb.MOOCdb) *SubmissionManager {
	return &SubmissionManager{
		problems:    NewHierarchy("i4x://", NewProblemPayload),
		writer:      db.Writer("problems"),
		submissions: db.Writer("submissions"),
		assessments: db.Writer("assessments"),
	}
}

// Update processes one classified event. Only the submission-bearing
// variants (problem interaction, open response assessment) contribute;
// everything else is ignored. A module-bearing event resolves its problem id
// through the hierarchy first, so the submission row can reference it.
func (m *SubmissionManager) Update(event Event) error {
	submission, ok := event.(Submission)
	if !ok {
		return nil
	}

	raw := event.Raw()
	if raw.Module != nil {
		payload := &Problem{ResourceID: event.Get("resource_id")}
		id := m.problems.Insert(raw.Module.URI(), payload)
		if id > 0 {
			raw.Set("problem_id", strconv.Itoa(id))
		}
	}

	// A recognized submission status yields a submission row; a recognized
	// correctness yields an assessment row. Neither gate implies the other.
	if submission.SubmissionStatus() != -1 {
		if err := m.submissions.Store(submission.SubmissionRow()); err != nil {
			return err
		}
	}
	if _, graded := submission.Grade(); graded {
		if err := m.assessments.Store(submission.AssessmentRow()); err != nil {
			return err
		}
	}
	return nil
}

// Hierarchy exposes the underlying problem hierarchy.
func (m *SubmissionManager) Hierarchy() *Hierarchy[*Problem] { return m.problems }

// Serialize writes the problems table in pre-order. When prettyPrintTo is
// non-empty the hierarchy is also rendered there as an indented tree.
func (m *SubmissionManager) Serialize(prettyPrintTo string) error {
	var storeErr error
	m.problems.Walk(func(n *HierarchyNode[*Problem]) {
		if storeErr != nil {
			return
		}
		storeErr = m.writer.Store(problemRow(n))
	})
	if storeErr != nil {
		return storeErr
	}

	if prettyPrintTo != "" {
		rendered := " Problem Hierarchy : \n" + m.problems.String()
		if err := os.WriteFile(prettyPrintTo, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write problem hierarchy: %w", err)
		}
	}
	return nil
}

func problemRow(n *HierarchyNode[*Problem]) moocdb.Row {
	parentID := ""
	if n.ParentID >= 0 {
		parentID = strconv.Itoa(n.ParentID)
	}
	childNumber := ""
	if match := problemChildNumber.FindStringSubmatch(n.URI); match != nil {
		childNumber = match[1]
	}
	return moocdb.Row{
		"problem_id":           strconv.Itoa(n.ID),
		"problem_name":         n.URI,
		"problem_parent_id":    parentID,
		"problem_child_number": childNumber,
		"resource_id":          n.Payload.ResourceID,
	}
}
