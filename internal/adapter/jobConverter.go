package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/ExamAPI/internal/api"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
)

func ToInitJobResponse(id string, chatId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		ChatId:    chatId,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	question := ragData.Question
	if question == "" && ragData.Route != nil {
		question = ragData.Route.Query
	}
	return &api.RAGResponse{
		Question: question,
		Answer:   ragData.Answer,
		Sources:  ragData.Sources,
		Intent:   ragData.Intent,
	}
}

// ToRoutePayload returns nil for a free text request.
func ToRoutePayload(req api.RouteRequest) *jobModel.RoutePayload {
	if req.Request == nil {
		return nil
	}
	s := req.Request
	return &jobModel.RoutePayload{
		Intent:       s.Intent,
		Query:        s.Query,
		Subject:      s.Subject,
		Grade:        s.Grade,
		Topic:        s.Topic,
		Question:     s.Question,
		ExamType:     s.ExamType,
		QuestionType: s.QuestionType,
		NumQuestions: s.NumQuestions,
	}
}

func ToClarifyResponse(chatId string, c examModel.Clarification) api.ClarifyResponse {
	return api.ClarifyResponse{
		ChatId:              chatId,
		ClarificationNeeded: c.Needed,
		Clarification:       c.Text,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		ChatId:    "",
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status:              string(api.JobStatusError),
			RAGExternalResponse: ToRAGExternalStatus(jobModel.JobPayload{}),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
