package exam

import (
	"context"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
)

// Session records every exchange with the agent in a bounded history.
// The generation pipeline never reads the history; only SuggestFollowUp does.
type Session struct {
	agent   *Agent
	history *examModel.History
}

func (a *Agent) NewSession() *Session {
	return &Session{agent: a, history: a.NewHistory()}
}

// ResumeSession continues a conversation from stored turns, system messages excluded.
func (a *Agent) ResumeSession(turns []examModel.Message) *Session {
	s := a.NewSession()
	for _, m := range turns {
		if m.Role == examModel.RoleSystem {
			continue
		}
		s.history.Append(m)
	}
	return s
}

func (s *Session) History() *examModel.History {
	return s.history
}

func (s *Session) SendMessage(ctx context.Context, message string) (string, error) {
	doc, err := s.agent.SendMessage(ctx, message)
	if err != nil {
		return "", err
	}
	s.history.Append(examModel.UserMessage(message), examModel.AssistantMessage(doc))
	return doc, nil
}

func (s *Session) AskForClarification(ctx context.Context, message string) (examModel.Clarification, error) {
	c, err := s.agent.AskForClarification(ctx, message)
	if err != nil {
		return c, err
	}
	s.history.Append(examModel.UserMessage(message))
	if c.Needed {
		s.history.Append(examModel.AssistantMessage(c.Text))
	}
	return c, nil
}

func (s *Session) SuggestFollowUp(ctx context.Context) (string, error) {
	q, err := s.agent.SuggestFollowUp(ctx, s.history)
	if err != nil || q == "" {
		return q, err
	}
	s.history.Append(examModel.AssistantMessage(q))
	return q, nil
}
