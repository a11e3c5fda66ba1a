package openapi

import "github.com/getkin/kin-openapi/openapi3"

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func str() *openapi3.Schema { return openapi3.NewStringSchema() }

func arrayOf(item *openapi3.SchemaRef) *openapi3.Schema {
	s := openapi3.NewArraySchema()
	s.Items = item
	return s
}

func described(s *openapi3.Schema, text string) *openapi3.Schema {
	s.Description = text
	return s
}

// componentSchemas describes every JSON body the API reads or writes.
func componentSchemas() openapi3.Schemas {
	errorDetail := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewInt32Schema()).
		WithProperty("message", str()).
		WithProperty("context", openapi3.NewObjectSchema())

	user := openapi3.NewObjectSchema().
		WithProperty("id", str().WithFormat("uuid")).
		WithProperty("email", str().WithFormat("email")).
		WithProperty("role", str().WithEnum("intern", "admin")).
		WithProperty("firstName", str()).
		WithProperty("lastName", str()).
		WithProperty("fullName", str()).
		WithProperty("isActive", openapi3.NewBoolSchema()).
		WithProperty("lastLogin", openapi3.NewDateTimeSchema()).
		WithProperty("createdAt", openapi3.NewDateTimeSchema())

	owner := openapi3.NewObjectSchema().
		WithProperty("id", str()).
		WithProperty("email", str()).
		WithProperty("firstName", str()).
		WithProperty("lastName", str())

	topics := &openapi3.Schema{
		OneOf: openapi3.SchemaRefs{
			{Value: arrayOf(&openapi3.SchemaRef{Value: str()})},
			{Value: described(str(), "Newline-delimited topics.")},
		},
	}

	form := openapi3.NewObjectSchema().
		WithProperty("internName", str()).
		WithProperty("date", described(str(), "YYYY-MM-DD")).
		WithProperty("taskTitle", str()).
		WithProperty("companyName", str()).
		WithProperty("introduction", str()).
		WithProperty("topicsCovered", topics).
		WithProperty("practiceExamples", str()).
		WithRequired([]string{"internName", "date", "taskTitle", "companyName", "introduction", "topicsCovered", "practiceExamples"})

	multipartForm := openapi3.NewObjectSchema().
		WithProperty("internName", str()).
		WithProperty("date", str()).
		WithProperty("taskTitle", str()).
		WithProperty("companyName", str()).
		WithProperty("introduction", str()).
		WithProperty("topicsCovered", arrayOf(&openapi3.SchemaRef{Value: str()})).
		WithProperty("practiceExamples", str()).
		WithProperty("screenshot", described(str().WithFormat("binary"), "Image, at most 5 MB."))

	submission := openapi3.NewObjectSchema().
		WithProperty("id", str()).
		WithProperty("userId", str()).
		WithProperty("userEmail", str()).
		WithProperty("userName", str()).
		WithProperty("internName", str()).
		WithProperty("date", str()).
		WithProperty("taskTitle", str()).
		WithProperty("companyName", str()).
		WithProperty("introduction", str()).
		WithProperty("topicsCovered", arrayOf(&openapi3.SchemaRef{Value: str()})).
		WithProperty("practiceExamples", str()).
		WithProperty("screenshot", str()).
		WithProperty("documentPath", str()).
		WithProperty("status", str().WithEnum("generated", "downloaded", "emailed")).
		WithPropertyRef("owner", ref("Owner")).
		WithProperty("createdAt", openapi3.NewDateTimeSchema()).
		WithProperty("updatedAt", openapi3.NewDateTimeSchema())

	event := openapi3.NewObjectSchema().
		WithProperty("type", str().WithEnum("submission.created", "submission.deleted", "submission.emailed")).
		WithProperty("submissionId", str()).
		WithProperty("userId", str()).
		WithProperty("internName", str()).
		WithProperty("at", openapi3.NewDateTimeSchema())

	return openapi3.Schemas{
		"ErrorResponse": {Value: openapi3.NewObjectSchema().WithProperty("error", errorDetail)},
		"User":          {Value: user},
		"Owner":         {Value: owner},
		"RegisterRequest": {Value: openapi3.NewObjectSchema().
			WithProperty("email", str().WithFormat("email")).
			WithProperty("password", str().WithMinLength(6)).
			WithProperty("firstName", str()).
			WithProperty("lastName", str()).
			WithRequired([]string{"email", "password", "firstName", "lastName"})},
		"LoginRequest": {Value: openapi3.NewObjectSchema().
			WithProperty("email", str()).
			WithProperty("password", str()).
			WithRequired([]string{"email", "password"})},
		"AuthResponse": {Value: openapi3.NewObjectSchema().
			WithPropertyRef("user", ref("User")).
			WithProperty("token", str())},
		"SubmissionForm":          {Value: form},
		"SubmissionMultipartForm": {Value: multipartForm},
		"Submission":              {Value: submission},
		"SubmitResponse": {Value: openapi3.NewObjectSchema().
			WithProperty("success", openapi3.NewBoolSchema()).
			WithProperty("message", str()).
			WithProperty("documentUrl", str()).
			WithProperty("submissionId", str())},
		"SendEmailRequest": {Value: openapi3.NewObjectSchema().
			WithProperty("submissionId", str()).
			WithProperty("managerEmail", str().WithFormat("email")).
			WithRequired([]string{"submissionId"})},
		"EmailResponse": {Value: openapi3.NewObjectSchema().
			WithProperty("success", openapi3.NewBoolSchema()).
			WithProperty("message", str()).
			WithProperty("emailId", str())},
		"MessageResponse": {Value: openapi3.NewObjectSchema().
			WithProperty("success", openapi3.NewBoolSchema()).
			WithProperty("message", str())},
		"Event": {Value: event},
		"EventsResponse": {Value: openapi3.NewObjectSchema().
			WithProperty("clientId", str()).
			WithProperty("events", arrayOf(ref("Event")))},
		"ClientResponse": {Value: openapi3.NewObjectSchema().
			WithProperty("success", openapi3.NewBoolSchema()).
			WithProperty("message", str()).
			WithProperty("clientId", str())},
		"EmailRequest": {Value: openapi3.NewObjectSchema().
			WithProperty("email", str().WithFormat("email")).
			WithRequired([]string{"email"})},
		"Stats": {Value: openapi3.NewObjectSchema().
			WithProperty("users", openapi3.NewIntegerSchema()).
			WithProperty("submissions", openapi3.NewIntegerSchema()).
			WithProperty("byStatus", openapi3.NewObjectSchema())},
	}
}
