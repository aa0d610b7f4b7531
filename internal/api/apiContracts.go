package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id" example:"chat_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Intent   string   `json:"intent,omitempty"`
}

type Result struct {
	Status              string       `json:"status"`
	RAGExternalResponse *RAGResponse `json:"rag_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ChatId    string `json:"chat_id,omitempty"`
	StatusURL string `json:"status_url"`
}

type ClarifyResponse struct {
	ChatId              string `json:"chat_id,omitempty"`
	ClarificationNeeded bool   `json:"clarification_needed"`
	Clarification       string `json:"clarification,omitempty" example:"Which grade is the exam for?"`
}

type SuggestResponse struct {
	ChatId     string `json:"chat_id"`
	Suggestion string `json:"suggestion" example:"Would you like a second exam on the same chapter?"`
}

// requests---------------------

type ChatRequest struct {
	Message string `json:"message" validate:"required" example:"Physics exam for grade 12 on mechanics"`
	ChatID  string `json:"chatID,omitempty" validate:"omitempty,uuid"`
}

// RouteRequest carries either a free text message or a structured request.
type RouteRequest struct {
	Message string             `json:"message,omitempty" validate:"required_without=Request"`
	Request *StructuredRequest `json:"request,omitempty" validate:"required_without=Message"`
	ChatID  string             `json:"chatID,omitempty" validate:"omitempty,uuid"`
}

type StructuredRequest struct {
	Intent       string `json:"intent,omitempty" example:"generate_questions"`
	Query        string `json:"query,omitempty"`
	Subject      string `json:"subject,omitempty" example:"biology"`
	Grade        string `json:"grade,omitempty" example:"grade_10"`
	Topic        string `json:"topic,omitempty" example:"photosynthesis"`
	Question     string `json:"question,omitempty"`
	ExamType     string `json:"exam_type,omitempty" example:"final"`
	QuestionType string `json:"question_type,omitempty" example:"mixed"`
	NumQuestions int    `json:"num_questions,omitempty" validate:"omitempty,min=1,max=50"`
}

type ClarifyRequest struct {
	Message string `json:"message" validate:"required"`
	ChatID  string `json:"chatID,omitempty" validate:"omitempty,uuid"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

// IngestDocumentRequest holds the form fields of an upload; grade and subject name the
// directories the file is stored under.
type IngestDocumentRequest struct {
	Grade   string `json:"grade" validate:"required,excludesall=/\\,ne=.,ne=.."`
	Subject string `json:"subject" validate:"required,excludesall=/\\,ne=.,ne=.."`
}
