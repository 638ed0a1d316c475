package usecase

import (
	"rubric-orchestrator/internal/domain"
)

// MessageBuilder assembles a prompt behind a fixed system message.
type MessageBuilder struct {
	messages []domain.Message
	counter  domain.TokenCounter
}

func NewMessageBuilder(systemContent string, counter domain.TokenCounter) *MessageBuilder {
	return &MessageBuilder{
		messages: []domain.Message{{Role: domain.RoleSystem, Content: systemContent}},
		counter:  counter,
	}
}

// InsertMessage places a message at index, clamped to the current bounds.
func (b *MessageBuilder) InsertMessage(role domain.Role, content string, index int) {
	if index < 0 {
		index = 0
	}
	if index > len(b.messages) {
		index = len(b.messages)
	}
	b.messages = append(b.messages, domain.Message{})
	copy(b.messages[index+1:], b.messages[index:])
	b.messages[index] = domain.Message{Role: role, Content: content}
}

func (b *MessageBuilder) AppendMessage(role domain.Role, content string) {
	b.messages = append(b.messages, domain.Message{Role: role, Content: content})
}

// CountTokens counts the role, the content and 2 tokens of framing.
func (b *MessageBuilder) CountTokens(m domain.Message) int {
	return 2 + b.counter.CountTokens(string(m.Role)) + b.counter.CountTokens(m.Content)
}

func (b *MessageBuilder) Messages() []domain.Message {
	out := make([]domain.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// HistoryPrompt describes a system + few-shot + history + user-turn prompt.
type HistoryPrompt struct {
	SystemPrompt string
	FewShots     []domain.Message
	// History is the conversation; its last message is replaced by UserContent.
	History     []domain.Message
	UserContent string
	// MaxTokens bounds the user turn plus the kept history.
	MaxTokens int
}

// BuildHistoryMessages keeps as much history as fits, newest first.
// The result is always in chronological order.
func BuildHistoryMessages(p HistoryPrompt, counter domain.TokenCounter) []domain.Message {
	b := NewMessageBuilder(p.SystemPrompt, counter)
	for _, shot := range p.FewShots {
		b.AppendMessage(shot.Role, shot.Content)
	}

	appendIndex := len(p.FewShots) + 1
	b.AppendMessage(domain.RoleUser, p.UserContent)
	total := b.CountTokens(domain.Message{Role: domain.RoleUser, Content: p.UserContent})

	if len(p.History) == 0 {
		return b.Messages()
	}
	prior := p.History[:len(p.History)-1]
	for i := len(prior) - 1; i >= 0; i-- {
		cost := b.CountTokens(prior[i])
		if total+cost > p.MaxTokens {
			break
		}
		b.InsertMessage(prior[i].Role, prior[i].Content, appendIndex)
		total += cost
	}
	return b.Messages()
}
