package domain

import "errors"

// Authentication errors.
var (
	ErrAuthFailed = errors.New("authentication failed")
)

// Request validation errors.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrEmptyMessages        = errors.New("messages must not be empty")
	ErrInvalidRetrievalMode = errors.New("unknown retrieval_mode")
)

// Upstream service errors.
var (
	ErrUpstream        = errors.New("upstream service failed")
	ErrEmptyCompletion = errors.New("completion returned no choices")
	ErrEmptyEmbedding  = errors.New("embedding returned no vectors")
)

// Configuration errors.
var (
	ErrUnknownModel = errors.New("unknown chat model")
)

// Ingestion errors.
var (
	ErrJobNotFound = errors.New("ingestion job not found")
)

// Document errors.
var (
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrEmptyDocument       = errors.New("document contains no text")
	ErrContentNotFound     = errors.New("content not found")
)
