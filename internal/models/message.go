package models

import "strings"

const (
	RoleUserMessage      = "user"
	RoleAssistantMessage = "assistant"
)

// Message is one turn of a confession conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidMessages reports whether msgs is non-empty and every entry has a
// known role and non-blank content.
func ValidMessages(msgs []Message) bool {
	if len(msgs) == 0 {
		return false
	}
	for _, m := range msgs {
		if m.Role != RoleUserMessage && m.Role != RoleAssistantMessage {
			return false
		}
		if strings.TrimSpace(m.Content) == "" {
			return false
		}
	}
	return true
}

// Transcript renders msgs as "role: content" lines.
func Transcript(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
