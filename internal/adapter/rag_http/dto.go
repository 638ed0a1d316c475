package rag_http

import (
	"time"

	"rubric-orchestrator/internal/domain"
	"rubric-orchestrator/internal/usecase"
)

// RequestContext carries per-request knobs. Any auth_claims sent by the
// client are ignored; claims always come from the bearer token.
type RequestContext struct {
	Overrides domain.RetrievalOverrides `json:"overrides"`
}

type ChatRequest struct {
	Messages     []domain.Message `json:"messages"`
	Context      RequestContext   `json:"context"`
	SessionState interface{}      `json:"session_state,omitempty"`
}

type RubricEvaluationRequest struct {
	RubricCriteria []string         `json:"rubric_criteria"`
	Messages       []domain.Message `json:"messages"`
	Context        RequestContext   `json:"context"`
}

type RubricEvaluationResponse struct {
	RubricAnswers []string                   `json:"rubric_answers"`
	Failures      []usecase.CriterionFailure `json:"failures,omitempty"`
}

type ChoiceContext struct {
	DataPoints []string `json:"data_points"`
	Thoughts   string   `json:"thoughts"`
}

type Choice struct {
	Index        int            `json:"index"`
	Message      domain.Message `json:"message"`
	Context      ChoiceContext  `json:"context"`
	SessionState interface{}    `json:"session_state"`
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

// ConfigResponse lists the client features this deployment supports.
type ConfigResponse struct {
	ShowGPT4VOptions         bool `json:"showGPT4VOptions"`
	ShowSemanticRankerOption bool `json:"showSemanticRankerOption"`
	ShowVectorOption         bool `json:"showVectorOption"`
	ShowUploadOption         bool `json:"showUploadOption"`
}

type UploadResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type UploadStatusResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Filename  string    `json:"filename,omitempty"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toChatResponse(out *usecase.ApproachOutput, sessionState interface{}) ChatResponse {
	dataPoints := out.DataPoints
	if dataPoints == nil {
		dataPoints = []string{}
	}
	return ChatResponse{Choices: []Choice{{
		Index:        0,
		Message:      domain.Message{Role: domain.RoleAssistant, Content: out.Answer},
		Context:      ChoiceContext{DataPoints: dataPoints, Thoughts: out.Thoughts},
		SessionState: sessionState,
	}}}
}

func toUploadStatusResponse(job *domain.IngestionJob) UploadStatusResponse {
	filename, _ := job.Payload["filename"].(string)
	return UploadStatusResponse{
		JobID:     job.ID.String(),
		Status:    job.Status,
		Filename:  filename,
		Error:     job.ErrorMessage,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}
