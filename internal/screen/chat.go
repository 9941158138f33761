package screen

import (
	"context"
	"strings"

	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
)

// Message is one chat bubble.
type Message struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// AIChatbot is the AI assistant conversation.
type AIChatbot struct {
	lifecycle
	deps     Deps
	messages []Message
	sending  bool
}

// NewAIChatbot creates an empty conversation.
func NewAIChatbot(d Deps) *AIChatbot {
	s := &AIChatbot{deps: d}
	s.init()
	return s
}

func (s *AIChatbot) Mount(context.Context) { s.mountReady() }

func (s *AIChatbot) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.base("AI Assistant")
	v.Actions = []ActionSpec{{Name: "send", Args: []string{"prompt"}, Description: "Ask the assistant"}}
	if len(s.messages) == 0 {
		v.Lines = []string{"Ask anything about your project."}
	}
	for _, m := range s.messages {
		v.Lines = append(v.Lines, m.Sender+": "+m.Text)
	}
	if s.sending {
		v.Lines = append(v.Lines, "ai: ...")
	}
	v.Data = append([]Message(nil), s.messages...)
	return v
}

func (s *AIChatbot) Action(ctx context.Context, name string, args map[string]string) (Result, error) {
	if name != "send" {
		return Result{}, unknownAction(name)
	}
	prompt, err := arg(args, "prompt")
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return Result{}, nil
	}

	busy := false
	idx := -1
	s.settle(func() {
		if s.sending {
			busy = true
			return
		}
		s.sending = true
		s.messages = append(s.messages, Message{Sender: "user", Text: prompt})
		idx = len(s.messages) - 1
	})
	if busy || idx < 0 {
		return Result{}, nil
	}

	reply, err := s.deps.API.Chat(ctx, prompt)
	if err != nil {
		// The unanswered prompt is dropped.
		s.settle(func() {
			s.sending = false
			if idx < len(s.messages) {
				s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
			}
		})
		if sessionGone(err) {
			return Result{Redirect: navigation.PathLogin}, nil
		}
		s.deps.logger().Warn("chat failed", "error", err)
		s.deps.toast(notify.LevelError, "AI Connection Failed", "Could not get a response from the server.")
		return Result{}, nil
	}

	s.settle(func() {
		s.sending = false
		s.messages = append(s.messages, Message{Sender: "ai", Text: reply})
	})
	return Result{}, nil
}
