package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/workdoc/workdoc/internal/model"
)

// strict removes all markup. Policies are safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// Topics is the ordered list of covered topics. In JSON it may be either an
// array of strings or one newline-delimited string.
type Topics []string

// UnmarshalJSON accepts a string or an array of strings.
func (t *Topics) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("topicsCovered must be a string or an array of strings")
	}
	*t = Topics{s}
	return nil
}

// SplitTopics splits every item on newlines, trims each line, and drops blank
// ones. Applying it to its own output returns the same list.
func SplitTopics(items ...string) []string {
	var out []string
	for _, item := range items {
		for _, line := range strings.Split(item, "\n") {
			line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// Form is one daily work-summary submission as entered by the intern.
type Form struct {
	InternName       string `json:"internName"`
	Date             string `json:"date"`
	TaskTitle        string `json:"taskTitle"`
	CompanyName      string `json:"companyName"`
	Introduction     string `json:"introduction"`
	TopicsCovered    Topics `json:"topicsCovered"`
	PracticeExamples string `json:"practiceExamples"`
}

func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Normalize strips markup, trims every field, and splits topics. It fails
// with model.ErrValidation naming the first blank field.
func (f Form) Normalize() (Form, error) {
	out := Form{
		InternName:       clean(f.InternName),
		Date:             clean(f.Date),
		TaskTitle:        clean(f.TaskTitle),
		CompanyName:      clean(f.CompanyName),
		Introduction:     clean(f.Introduction),
		PracticeExamples: clean(f.PracticeExamples),
	}
	var topics []string
	for _, t := range SplitTopics(f.TopicsCovered...) {
		if t = clean(t); t != "" {
			topics = append(topics, t)
		}
	}
	out.TopicsCovered = topics

	for _, field := range []struct {
		name, value string
	}{
		{"internName", out.InternName},
		{"date", out.Date},
		{"taskTitle", out.TaskTitle},
		{"companyName", out.CompanyName},
		{"introduction", out.Introduction},
		{"practiceExamples", out.PracticeExamples},
	} {
		if field.value == "" {
			return Form{}, fmt.Errorf("%s is required: %w", field.name, model.ErrValidation)
		}
	}
	if len(out.TopicsCovered) == 0 {
		return Form{}, fmt.Errorf("topicsCovered must contain at least one topic: %w", model.ErrValidation)
	}
	return out, nil
}
