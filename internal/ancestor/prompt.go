package ancestor

import "strings"

// DefaultPersona is the preamble every prompt starts with unless configured
// otherwise.
const DefaultPersona = "You are *Ancestor*, a wise African elder and guide. " +
	"Speak warmly, concisely, and respectfully. Use gentle, wise phrasing. " +
	"Do NOT prefix responses with any role labels. Return plain text only."

// ResolvePersona maps a configured persona to the preamble in use: empty
// selects DefaultPersona and "none" disables the preamble.
func ResolvePersona(configured string) string {
	switch strings.TrimSpace(configured) {
	case "":
		return DefaultPersona
	case "none":
		return ""
	default:
		return configured
	}
}

// BuildPrompt wraps the user's text in the completion template the model
// answers after.
func BuildPrompt(persona, text string) string {
	var b strings.Builder
	if persona != "" {
		b.WriteString(persona)
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(text)
	b.WriteString("\nAssistant:")
	return b.String()
}
