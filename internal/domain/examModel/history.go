package examModel

import "sync"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func UserMessage(content string) Message      { return Message{Role: RoleUser, Content: content} }
func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// History keeps the system message at index 0 and at most bound turns after it.
// It is trimmed on every append and safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	messages []Message
	bound    int
}

func NewHistory(system Message, bound int) *History {
	if bound < 0 {
		bound = 0
	}
	return &History{
		messages: []Message{system},
		bound:    bound,
	}
}

func (h *History) Append(msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range msgs {
		h.messages = append(h.messages, m)
		if len(h.messages) > h.bound+1 {
			trimmed := make([]Message, 0, h.bound+1)
			trimmed = append(trimmed, h.messages[0])
			trimmed = append(trimmed, h.messages[len(h.messages)-h.bound:]...)
			h.messages = trimmed
		}
	}
}

func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Turns returns everything but the pinned system message.
func (h *History) Turns() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages)-1)
	copy(out, h.messages[1:])
	return out
}

// RecentTurns returns at most n of the latest non-system messages, oldest first.
func (h *History) RecentTurns(n int) []Message {
	turns := h.Turns()
	if n < len(turns) {
		turns = turns[len(turns)-n:]
	}
	return turns
}
