package tokenizer

import (
	"fmt"
	"sync"

	"rubric-orchestrator/internal/domain"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const fallbackEncoding = "cl100k_base"

// Azure deployments use model names without the dot.
var azureModelAliases = map[string]string{
	"gpt-35-turbo":     "gpt-3.5-turbo",
	"gpt-35-turbo-16k": "gpt-3.5-turbo-16k",
}

var tokenLimits = map[string]int{
	"gpt-35-turbo":      4000,
	"gpt-3.5-turbo":     4000,
	"gpt-35-turbo-16k":  16000,
	"gpt-3.5-turbo-16k": 16000,
	"gpt-4":             8100,
	"gpt-4-32k":         32000,
	"gpt-4v":            128000,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
}

// TokenLimit returns the context window of a chat model.
func TokenLimit(model string) (int, error) {
	limit, ok := tokenLimits[model]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownModel, model)
	}
	return limit, nil
}

var loaderOnce sync.Once

// TiktokenCounter counts tokens with the BPE encoding of a chat model.
// The encodings are embedded, so no network access is needed.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter picks the encoding for model, falling back to cl100k_base.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	if alias, ok := azureModelAliases[model]; ok {
		model = alias
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s encoding: %w", fallbackEncoding, err)
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

var _ domain.TokenCounter = (*TiktokenCounter)(nil)
