package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/llm"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/models"
)

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"

	historyLimit  = 30
	maxSpeechText = 4096
)

type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

type Reply struct {
	Response string `json:"response"`
	Source   string `json:"source"`
}

type Service struct {
	llm             Completer
	tts             Speaker
	defaultLanguage string
}

func NewService(completer Completer, speaker Speaker, defaultLanguage string) *Service {
	return &Service{llm: completer, tts: speaker, defaultLanguage: defaultLanguage}
}

// Respond produces the guide's next turn. Upstream failures are answered
// with a keyword-matched canned reply, never an error.
func (s *Service) Respond(ctx context.Context, userMessage string, history []models.Message, language string) (Reply, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return Reply{}, apperr.Invalid("userMessage is required")
	}
	if language == "" {
		language = s.defaultLanguage
	}

	if s.llm != nil {
		content, err := s.llm.Complete(ctx, llm.Request{
			System:      systemPrompt(language),
			Messages:    conversation(userMessage, history),
			Temperature: 0.85,
			MaxTokens:   600,
		})
		if err == nil {
			return Reply{Response: content, Source: SourceLLM}, nil
		}
		if !errors.Is(err, llm.ErrNoProvider) {
			slog.WarnContext(ctx, "chat reply fell back", "error", err)
		}
	}
	return Reply{Response: fallbackReply(userMessage), Source: SourceFallback}, nil
}

// Speak returns synthesized audio for text.
func (s *Service) Speak(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Invalid("Text is required")
	}
	if utf8.RuneCountInString(text) > maxSpeechText {
		return nil, apperr.Newf(apperr.InvalidArgument, "Text must be at most %d characters", maxSpeechText)
	}
	if s.tts == nil {
		return nil, apperr.New(apperr.Unavailable, "Speech synthesis is not configured")
	}

	audio, err := s.tts.Speak(ctx, text)
	if errors.Is(err, llm.ErrTTSUnavailable) {
		return nil, apperr.New(apperr.Unavailable, "Speech synthesis is not configured")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "Speech synthesis failed", err)
	}
	return audio, nil
}

// conversation turns the stored history plus the new user turn into the
// completion messages. A trailing copy of the current message in history is
// dropped, and only the most recent turns are kept.
func conversation(userMessage string, history []models.Message) []llm.Message {
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == models.RoleUserMessage && strings.TrimSpace(last.Content) == userMessage {
			history = history[:n-1]
		}
	}
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	out := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role != models.RoleUserMessage && m.Role != models.RoleAssistantMessage {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(out, llm.Message{Role: models.RoleUserMessage, Content: userMessage})
}
