package template

import (
	"math/rand"
	"strings"
)

// Render substitutes {name} tokens in content with the given variables.
// Replacement is literal, case-sensitive and non-recursive: a value that
// itself contains {other} is not expanded again. Tokens without a
// matching variable render as empty strings.
func Render(content string, vars map[string]string) string {
	if len(vars) == 0 && !strings.Contains(content, "{") {
		return content
	}

	var b strings.Builder
	b.Grow(len(content))
	for {
		open := strings.IndexByte(content, '{')
		if open < 0 {
			b.WriteString(content)
			break
		}
		close := strings.IndexByte(content[open:], '}')
		if close < 0 {
			b.WriteString(content)
			break
		}
		close += open

		b.WriteString(content[:open])
		name := content[open+1 : close]
		b.WriteString(vars[name])
		content = content[close+1:]
	}
	return b.String()
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// AntiSpamSuffix returns a fresh 5-char base-36 token. It is appended to
// every outgoing message, retries included, so no two payloads are
// byte-identical and the provider's duplicate-content filter stays quiet.
func AntiSpamSuffix() string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return "\n\n#" + string(b)
}

// StripSuffix removes a trailing anti-spam token so a retried message
// can carry a fresh one instead of stacking them up.
func StripSuffix(s string) string {
	const marker = "\n\n#"
	idx := strings.LastIndex(s, marker)
	if idx < 0 || len(s)-idx != len(marker)+5 {
		return s
	}
	for _, r := range s[idx+len(marker):] {
		if !strings.ContainsRune(suffixAlphabet, r) {
			return s
		}
	}
	return s[:idx]
}
