package render

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Fixed report text.
const (
	ReportTitle  = "DAILY WORK SUMMARY REPORT"
	SummaryText  = "This daily summary report was generated using the Document Generator System. The intern demonstrated progress in the mentioned areas and actively participated in the learning process."
	SystemName   = "Document Generator System"
	InvalidDate  = "Invalid Date"
	longDate     = "January 2, 2006"
	generatedFmt = "January 2, 2006 3:04:05 PM MST"
)

// Section headings in report order.
const (
	HeadingIntern       = "1. INTERN INFORMATION"
	HeadingIntroduction = "2. INTRODUCTION"
	HeadingTopics       = "3. TOPICS COVERED"
	HeadingPractice     = "4. PRACTICE & EXAMPLES"
	HeadingSummary      = "5. SUMMARY"
)

// SectionKind selects how a section body is drawn.
type SectionKind int

const (
	KindFields    SectionKind = iota // "Label: value" lines
	KindParagraph                    // one justified paragraph
	KindBullets                      // bulleted list
)

// Section is one numbered block of the report.
type Section struct {
	Heading string
	Kind    SectionKind
	Lines   []string
}

// Report is the layout model the PDF is drawn from.
type Report struct {
	Company     string
	Title       string
	Sections    []Section
	GeneratedOn string
	Copyright   string
}

// Headings returns the section headings in order.
func (r *Report) Headings() []string {
	out := make([]string, len(r.Sections))
	for i, s := range r.Sections {
		out[i] = s.Heading
	}
	return out
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// FormatDate renders an ISO date in long form, or InvalidDate when the input
// does not parse.
func FormatDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(longDate)
		}
	}
	return InvalidDate
}

var unsafeName = regexp.MustCompile(`[\s/\\]+`)

// Filename returns the artifact name for internName rendered at now, e.g.
// work_summary_1704877200000_Ann_Lee.pdf.
func Filename(internName string, now time.Time) string {
	name := unsafeName.ReplaceAllString(strings.TrimSpace(internName), "_")
	name = strings.ReplaceAll(name, "..", "_")
	return fmt.Sprintf("work_summary_%d_%s.pdf", now.UnixMilli(), name)
}

// BuildReport lays out a normalized form.
func BuildReport(f Form, now time.Time) *Report {
	return &Report{
		Company: f.CompanyName,
		Title:   ReportTitle,
		Sections: []Section{
			{
				Heading: HeadingIntern,
				Kind:    KindFields,
				Lines: []string{
					"Name: " + f.InternName,
					"Date: " + FormatDate(f.Date),
					"Task Title: " + f.TaskTitle,
				},
			},
			{Heading: HeadingIntroduction, Kind: KindParagraph, Lines: []string{f.Introduction}},
			{Heading: HeadingTopics, Kind: KindBullets, Lines: append([]string(nil), f.TopicsCovered...)},
			{Heading: HeadingPractice, Kind: KindParagraph, Lines: []string{f.PracticeExamples}},
			{Heading: HeadingSummary, Kind: KindParagraph, Lines: []string{SummaryText}},
		},
		GeneratedOn: "Generated on: " + now.Format(generatedFmt),
		Copyright:   fmt.Sprintf("%s © %d", SystemName, now.Year()),
	}
}
