package usecase

import (
	"fmt"
	"time"
)

// ApproachConfig holds the model budgets shared by the chat, ask and rubric approaches.
type ApproachConfig struct {
	// TokenLimit is the context window of the chat model.
	TokenLimit int
	// ResponseTokenLimit caps every completion and is reserved out of TokenLimit for chat history.
	ResponseTokenLimit int
	// RubricConcurrency bounds how many criteria are evaluated at once.
	RubricConcurrency int
	// CallTimeout bounds each completion, embedding and search call.
	CallTimeout time.Duration
	// ChatTemperature applies to /chat answers when the request leaves temperature unset.
	ChatTemperature float64
}

// DefaultApproachConfig returns the settings for a 4k-context chat model.
func DefaultApproachConfig() ApproachConfig {
	return ApproachConfig{
		TokenLimit:         4000,
		ResponseTokenLimit: 1024,
		RubricConcurrency:  4,
		CallTimeout:        60 * time.Second,
		ChatTemperature:    0.7,
	}
}

// Validate checks that the budgets leave room for a prompt.
func (c ApproachConfig) Validate() error {
	if c.ResponseTokenLimit <= 0 {
		return fmt.Errorf("response token limit must be positive, got %d", c.ResponseTokenLimit)
	}
	if c.TokenLimit <= c.ResponseTokenLimit {
		return fmt.Errorf("token limit %d must exceed response token limit %d", c.TokenLimit, c.ResponseTokenLimit)
	}
	if c.RubricConcurrency < 1 {
		return fmt.Errorf("rubric concurrency must be >= 1, got %d", c.RubricConcurrency)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("call timeout must not be negative, got %v", c.CallTimeout)
	}
	return nil
}

// QueryGeneratorConfig derives the query generation settings.
func (c ApproachConfig) QueryGeneratorConfig() QueryGeneratorConfig {
	return QueryGeneratorConfig{
		TokenLimit:  c.TokenLimit,
		MaxTokens:   c.ResponseTokenLimit,
		CallTimeout: c.CallTimeout,
	}
}

// AnswerGeneratorConfig derives the answer generation settings.
func (c ApproachConfig) AnswerGeneratorConfig() AnswerGeneratorConfig {
	return AnswerGeneratorConfig{
		MaxTokens:   c.ResponseTokenLimit,
		CallTimeout: c.CallTimeout,
	}
}
