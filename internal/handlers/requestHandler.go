package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/ExamAPI/internal/adapter"
	"github.com/akolanti/ExamAPI/internal/adapter/utils"
	"github.com/akolanti/ExamAPI/internal/api"
	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/internal/rag/ingest"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

var logRH *logger_i.Logger

// everything CreateNewJob needs, independent of the HTTP request
type newJobData struct {
	id             string
	chatId         string
	message        string
	isNewChat      bool
	traceId        string
	jobType        jobModel.JobType
	route          *jobModel.RoutePayload
	documentName   string
	documentSource string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Start an exam generation job
// @Description  Accepts an exam request, queues the plan/fill/compile pipeline, and returns a job ID to track status.
// @Tags         Exams
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Exam request and optional Chat ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request", "remote", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	if err := decodeAndValidate(request, &requestData); err != nil || !ValidateChatId(request.Context(), requestData.ChatID) {
		logRH.Warn("Bad Chat Request", "error", err, "chatId", requestData.ChatID)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, validationMessage(err))
		return
	}

	chatId, isNew := newChatId(requestData.ChatID)
	queueJob(w, request, newJobData{
		chatId:    chatId,
		isNewChat: isNew,
		message:   requestData.Message,
		jobType:   jobModel.JobTypeExam,
	})
}

// RouteHandler godoc
// @Summary      Route a request to a specialised agent
// @Description  Free text is classified into an intent; a structured request may name the intent directly. The agent reply is delivered through the job status.
// @Tags         Exams
// @Accept       json
// @Produce      json
// @Param        request  body      api.RouteRequest     true  "Free text message or structured request"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Router       /route [post]
func RouteHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request", "remote", request.RemoteAddr)
		return
	}

	var requestData api.RouteRequest
	if err := decodeAndValidate(request, &requestData); err != nil || !ValidateChatId(request.Context(), requestData.ChatID) {
		logRH.Warn("Bad Route Request", "error", err, "chatId", requestData.ChatID)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, validationMessage(err))
		return
	}

	// router jobs only join a conversation the caller already has
	queueJob(w, request, newJobData{
		chatId:  requestData.ChatID,
		message: requestData.Message,
		route:   adapter.ToRoutePayload(requestData),
		jobType: jobModel.JobTypeRoute,
	})
}

// ClarifyHandler godoc
// @Summary      Check whether an exam request is ambiguous
// @Description  Answers synchronously with a clarifying question, or clarification_needed=false when the request is clear.
// @Tags         Exams
// @Accept       json
// @Produce      json
// @Param        request  body      api.ClarifyRequest   true  "Exam request and optional Chat ID"
// @Success      200      {object}  api.ClarifyResponse
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Failure      502      {object}  api.JobResponse      "Model call failed"
// @Router       /clarify [post]
func ClarifyHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request", "remote", request.RemoteAddr)
		return
	}

	var requestData api.ClarifyRequest
	if err := decodeAndValidate(request, &requestData); err != nil || !ValidateChatId(request.Context(), requestData.ChatID) {
		logRH.Warn("Bad Clarify Request", "error", err, "chatId", requestData.ChatID)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, validationMessage(err))
		return
	}

	ctx, cancel := context.WithTimeout(request.Context(), config.SyncRequestTimeout)
	defer cancel()
	clarification, err := handlerInstance.ragService.Clarify(ctx, requestData.Message)
	if err != nil {
		logRH.FromContext(ctx).Error("Clarification failed", "error", err)
		WriteErrorResponse(w, http.StatusBadGateway, requestData.ChatID, "Clarification failed")
		return
	}

	turn := []examModel.Message{examModel.UserMessage(requestData.Message)}
	if clarification.Needed {
		turn = append(turn, examModel.AssistantMessage(clarification.Text))
	}
	appendToChat(ctx, requestData.ChatID, turn...)
	writeJsonResponse(w, http.StatusOK, adapter.ToClarifyResponse(requestData.ChatID, clarification))
}

// SuggestHandler godoc
// @Summary      Suggest a follow-up question
// @Description  Reads the last turns of a chat and proposes one follow-up question.
// @Tags         Exams
// @Produce      json
// @Param        chatId  path      string  true  "Chat ID"
// @Success      200     {object}  api.SuggestResponse
// @Failure      404     {object}  api.JobResponse  "Chat not found"
// @Failure      502     {object}  api.JobResponse  "Model call failed"
// @Router       /suggest/{chatId} [get]
func SuggestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}

	chatId := utils.GetChiURLParam(r, "chatId")
	if chatId == "" || !ValidateChatId(r.Context(), chatId) {
		WriteErrorResponse(w, http.StatusNotFound, chatId, "Chat not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.SyncRequestTimeout)
	defer cancel()
	log := logRH.FromContext(ctx).With("chatId", chatId)

	history, err := chatHistory(ctx, chatId)
	if err != nil {
		log.Error("Failed to read chat history", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, chatId, "History unavailable")
		return
	}
	suggestion, err := handlerInstance.ragService.SuggestFollowUp(ctx, history)
	if err != nil {
		log.Error("Follow-up suggestion failed", "error", err)
		WriteErrorResponse(w, http.StatusBadGateway, chatId, "Suggestion failed")
		return
	}
	if suggestion != "" {
		appendToChat(ctx, chatId, examModel.AssistantMessage(suggestion))
	}
	writeJsonResponse(w, http.StatusOK, api.SuggestResponse{ChatId: chatId, Suggestion: suggestion})
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	logRH.Debug("Get Status Request", "URL path", r.URL.Path)

	result, isFound := validateId(idString, traceId(r.Context()))
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostIngestHandler stores an exam file under the exams directory and queues an indexing pass.
// @Summary      Upload an exam for indexing
// @Description  Receives a PDF or text exam via multipart/form-data, stores it under exams/<grade>/<subject>, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        grade     formData  string  true  "Grade directory, e.g. Grade 12"
// @Param        subject   formData  string  true  "Subject directory, e.g. Physics"
// @Param        document  formData  file    true  "The PDF or text exam to upload"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job id"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields, unsupported type or file too large"
// @Failure      409  {object}  api.JobResponse "Conflict - The file name is already used for another grade or subject"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	form := api.IngestDocumentRequest{Grade: r.FormValue("grade"), Subject: r.FormValue("subject")}
	if err := validate.Struct(form); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", validationMessage(err))
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	docName := filepath.Base(fileMetadata.Filename)
	if !ingest.Supported(docName) {
		WriteErrorResponse(w, http.StatusBadRequest, docName, "Unsupported file type")
		return
	}

	targetDir, err := uploadDirectory(form.Grade, form.Subject)
	if err != nil {
		logRH.Error("Couldn't create upload directory", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
		return
	}

	destination := filepath.Join(targetDir, docName)
	owner, err := nameTakenElsewhere(docName, destination)
	if err != nil {
		logRH.Error("Couldn't scan exams directory", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
		return
	}
	if owner != "" {
		logRH.Warn("Upload name already in use", "file", docName, "existing", owner)
		WriteErrorResponse(w, http.StatusConflict, docName, "A document with this name already exists for another grade or subject")
		return
	}

	// write beside the target and rename so the pipeline never sees half a file
	temp := filepath.Join(targetDir, fmt.Sprintf(".%d-%s.upload", time.Now().UnixNano(), docName))
	if err := saveUpload(fileReader, temp, destination); err != nil {
		logRH.Error("Couldn't store upload", "error", err, "path", destination)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Write error")
		return
	}

	queueJob(w, r, newJobData{
		jobType:        jobModel.JobTypeIngest,
		documentName:   docName,
		documentSource: destination,
	})
}

func saveUpload(src io.Reader, temp string, destination string) error {
	out, err := os.Create(temp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(temp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(temp)
		return err
	}
	return os.Rename(temp, destination)
}
