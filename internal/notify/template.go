package notify

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/render"
)

var bodyTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background: #2563eb; color: white; padding: 20px; text-align: center; }
  .content { padding: 20px; background: #f9f9f9; }
  .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
  .info-item { margin: 10px 0; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Daily Work Summary Report</h1>
    <p>{{.CompanyName}}</p>
  </div>
  <div class="content">
    <h2>New Submission from Intern</h2>
    <div class="info-item"><strong>Intern Name:</strong> {{.InternName}}</div>
    <div class="info-item"><strong>Date:</strong> {{.Date}}</div>
    <div class="info-item"><strong>Task Title:</strong> {{.TaskTitle}}</div>
    <div class="info-item"><strong>Introduction:</strong><br>{{.Introduction}}</div>
    <div class="info-item"><strong>Topics Covered:</strong>
      <ul>{{range .Topics}}
        <li>{{.}}</li>{{end}}
      </ul>
    </div>
    <p>The complete document is attached to this email.</p>
    <p style="margin-top: 30px;">
      <a href="{{.DashboardURL}}" style="background: #2563eb; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">View in Dashboard</a>
    </p>
  </div>
  <div class="footer">
    <p>This email was sent automatically from the Document Generator System.</p>
    <p>&copy; {{.Year}} {{.CompanyName}}. All rights reserved.</p>
  </div>
</div>
</body>
</html>
`))

type bodyData struct {
	CompanyName  string
	InternName   string
	Date         string
	TaskTitle    string
	Introduction string
	Topics       []string
	DashboardURL string
	Year         int
}

func renderBody(sub *model.Submission, appURL string, year int) (string, error) {
	data := bodyData{
		CompanyName:  sub.CompanyName,
		InternName:   sub.InternName,
		Date:         render.FormatDate(sub.Date),
		TaskTitle:    sub.TaskTitle,
		Introduction: sub.Introduction,
		Topics:       sub.TopicsCovered,
		DashboardURL: strings.TrimRight(appURL, "/") + "/dashboard",
		Year:         year,
	}
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Subject returns the subject line for sub.
func Subject(sub *model.Submission) string {
	return "Daily Work Summary – " + sub.InternName + " - " + sub.Date
}
