package logger

import (
	"regexp"
	"strconv"
	"strings"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var secretKeyHints = []string{"authorization", "bearer", "token", "secret", "api_key", "apikey", "password"}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, hint := range secretKeyHints {
		if strings.Contains(key, hint) {
			return true
		}
	}
	return false
}

// RedactSecret keeps only the length of a credential.
// "sk-abc123" → "[redacted:9]"
func RedactSecret(val string) string {
	if val == "" {
		return ""
	}
	return "[redacted:" + strconv.Itoa(len(val)) + "]"
}

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

func redactPIIValue(key, val string) string {
	if strings.Contains(strings.ToLower(key), "email") {
		return RedactEmail(val)
	}
	// Page titles and scraped text can carry contact addresses.
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
