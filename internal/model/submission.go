package model

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a submission.
type Status string

const (
	StatusGenerated  Status = "generated"
	StatusDownloaded Status = "downloaded"
	StatusEmailed    Status = "emailed"
)

func (s Status) rank() int {
	switch s {
	case StatusGenerated:
		return 1
	case StatusDownloaded:
		return 2
	case StatusEmailed:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() > 0
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
// Statuses never move backwards, so an emailed submission stays emailed
// after a later download.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.Valid() && next.rank() > s.rank()
}

// ParseStatus validates a stored status value.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Submission is one rendered daily work summary.
type Submission struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	UserEmail        string    `json:"userEmail"`
	UserName         string    `json:"userName"`
	InternName       string    `json:"internName"`
	Date             string    `json:"date"`
	TaskTitle        string    `json:"taskTitle"`
	CompanyName      string    `json:"companyName"`
	Introduction     string    `json:"introduction"`
	TopicsCovered    []string  `json:"topicsCovered"`
	PracticeExamples string    `json:"practiceExamples"`
	Screenshot       string    `json:"screenshot,omitempty"`
	DocumentPath     string    `json:"documentPath"`
	Status           Status    `json:"status"`
	Owner            *Owner    `json:"owner,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Owner is the joined identity of a submission's author, included in admin
// listings.
type Owner struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
