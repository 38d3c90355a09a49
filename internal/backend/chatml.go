package backend

import (
	"strings"

	"chatd/pkg/types"
)

// RenderChatML renders msgs in ChatML form. Image parts are replaced with imageMarker.
func RenderChatML(msgs []Message, addGenerationPrompt bool, imageMarker string) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString("<|im_start|>")
		b.WriteString(m.Role)
		b.WriteByte('\n')
		for _, p := range m.Parts {
			switch p.Kind {
			case ImageContent:
				b.WriteString(imageMarker)
			case TextContent:
				b.WriteString(p.Text)
			}
		}
		b.WriteString("<|im_end|>\n")
	}
	if addGenerationPrompt {
		b.WriteString("<|im_start|>assistant\n")
	}
	return b.String()
}

// HistoryMessages expands completed turns into alternating user/assistant messages.
func HistoryMessages(h types.History) []Message {
	out := make([]Message, 0, 2*len(h))
	for _, t := range h {
		out = append(out, TextMessage("user", t.Query), TextMessage("assistant", t.Response))
	}
	return out
}
