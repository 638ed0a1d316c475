package rag_http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"

	"rubric-orchestrator/internal/domain"
	"rubric-orchestrator/internal/infra/logger"
	"rubric-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ClaimsResolver turns request headers into auth claims.
type ClaimsResolver interface {
	ClaimsIfEnabled(ctx context.Context, headers http.Header) (domain.AuthClaims, error)
}

// Features are the client options reported by GET /config.
type Features struct {
	ShowGPT4VOptions    bool
	ShowSemanticOptions bool
	ShowVectorOption    bool
}

// HandlerDeps wires the handler. Upload and UploadStatus may be nil when no
// job queue is configured; Ready may be nil when there is nothing to ping.
type HandlerDeps struct {
	Chat           usecase.ChatUsecase
	Ask            usecase.AskUsecase
	Rubric         usecase.RubricEvaluationUsecase
	Upload         usecase.UploadDocumentUsecase
	UploadStatus   usecase.UploadStatusUsecase
	Content        usecase.CitationContentUsecase
	Claims         ClaimsResolver
	AuthSetup      usecase.AuthSetupProvider
	Features       Features
	MaxUploadBytes int64
	Ready          func(ctx context.Context) error
	Logger         *slog.Logger
}

type Handler struct {
	deps HandlerDeps
}

func NewHandler(deps HandlerDeps) *Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 20 << 20
	}
	return &Handler{deps: deps}
}

// Answer the latest turn of a conversation
// (POST /chat)
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	ctx := c.Request().Context()

	claims, err := h.deps.Claims.ClaimsIfEnabled(ctx, c.Request().Header)
	if err != nil {
		return mapDomainError(err)
	}

	out, err := h.deps.Chat.Execute(ctx, usecase.ApproachInput{
		Messages:  req.Messages,
		Overrides: req.Context.Overrides,
		Claims:    claims,
	})
	if err != nil {
		h.logFailure(ctx, "chat_failed", err)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, toChatResponse(out, req.SessionState))
}

// Answer a single question from retrieved sources
// (POST /ask)
func (h *Handler) Ask(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	ctx := c.Request().Context()

	claims, err := h.deps.Claims.ClaimsIfEnabled(ctx, c.Request().Header)
	if err != nil {
		return mapDomainError(err)
	}

	out, err := h.deps.Ask.Execute(ctx, usecase.ApproachInput{
		Messages:  req.Messages,
		Overrides: req.Context.Overrides,
		Claims:    claims,
	})
	if err != nil {
		h.logFailure(ctx, "ask_failed", err)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, toChatResponse(out, req.SessionState))
}

// Answer every rubric criterion
// (POST /rubric-evaluation, POST /api/rubric-evaluation)
func (h *Handler) RubricEvaluation(c echo.Context) error {
	var req RubricEvaluationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	ctx := c.Request().Context()

	claims, err := h.deps.Claims.ClaimsIfEnabled(ctx, c.Request().Header)
	if err != nil {
		return mapDomainError(err)
	}

	out, err := h.deps.Rubric.Execute(ctx, usecase.RubricEvaluationInput{
		Criteria:  req.RubricCriteria,
		Messages:  req.Messages,
		Overrides: req.Context.Overrides,
		Claims:    claims,
	})
	if err != nil {
		h.logFailure(ctx, "rubric_evaluation_failed", err)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusOK, RubricEvaluationResponse{
		RubricAnswers: out.Answers,
		Failures:      out.Failures,
	})
}

// (GET /config)
func (h *Handler) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, ConfigResponse{
		ShowGPT4VOptions:         h.deps.Features.ShowGPT4VOptions,
		ShowSemanticRankerOption: h.deps.Features.ShowSemanticOptions,
		ShowVectorOption:         h.deps.Features.ShowVectorOption,
		ShowUploadOption:         h.deps.Upload != nil,
	})
}

// (GET /auth_setup)
func (h *Handler) AuthSetup(c echo.Context) error {
	return c.JSON(http.StatusOK, h.deps.AuthSetup.ForClient())
}

// Store a document and queue it for ingestion
// (POST /upload)
func (h *Handler) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.deps.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	claims, err := h.deps.Claims.ClaimsIfEnabled(ctx, c.Request().Header)
	if err != nil {
		return mapDomainError(err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer func() { _ = file.Close() }()

	out, err := h.deps.Upload.Execute(ctx, usecase.UploadDocumentInput{
		Filename: fileHeader.Filename,
		Content:  file,
		Category: c.FormValue("category"),
		Claims:   claims,
	})
	if err != nil {
		h.logFailure(ctx, "upload_failed", err)
		return mapDomainError(err)
	}

	return c.JSON(http.StatusAccepted, UploadResponse{JobID: out.JobID.String(), Status: out.Status})
}

// (GET /upload/:id)
func (h *Handler) UploadStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	job, err := h.deps.UploadStatus.Execute(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, toUploadStatusResponse(job))
}

// Serve the source file behind a citation
// (GET /content/:path)
func (h *Handler) Content(c echo.Context) error {
	citation, err := url.PathUnescape(c.Param("path"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid path")
	}
	ctx := c.Request().Context()

	out, err := h.deps.Content.Execute(ctx, citation)
	if err != nil {
		if !errors.Is(err, domain.ErrContentNotFound) && !errors.Is(err, domain.ErrInvalidRequest) {
			h.logFailure(ctx, "content_failed", err)
		}
		return mapDomainError(err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(out.Name))
	if contentType == "" {
		contentType = http.DetectContentType(out.Data)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", out.Name))
	return c.Blob(http.StatusOK, contentType, out.Data)
}

// (GET /healthz)
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// (GET /readyz)
func (h *Handler) Readyz(c echo.Context) error {
	if h.deps.Ready != nil {
		if err := h.deps.Ready(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) logFailure(ctx context.Context, event string, err error) {
	if h.deps.Logger == nil {
		return
	}
	h.deps.Logger.ErrorContext(ctx, event, slog.String("error", err.Error()))
}

// RequestIDContext copies the echo request id onto the request context so it
// reaches every log record.
func RequestIDContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(logger.WithRequestID(req.Context(), id)))
			}
			return next(c)
		}
	}
}

// RegisterRoutes mounts every endpoint on e. limited wraps the endpoints that
// call upstream services; it may be nil.
func RegisterRoutes(e *echo.Echo, h *Handler, limited echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if limited != nil {
		mw = append(mw, limited)
	}

	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
	e.GET("/config", h.Config)
	e.GET("/auth_setup", h.AuthSetup)

	e.POST("/chat", h.Chat, mw...)
	e.POST("/ask", h.Ask, mw...)
	e.POST("/rubric-evaluation", h.RubricEvaluation, mw...)
	e.POST("/api/rubric-evaluation", h.RubricEvaluation, mw...)

	if h.deps.Content != nil {
		e.GET("/content/:path", h.Content)
	}

	if h.deps.Upload != nil && h.deps.UploadStatus != nil {
		e.POST("/upload", h.Upload, mw...)
		e.GET("/upload/:id", h.UploadStatus)
	}
}
