// Package prompt holds the fixed prompts the bot starts from.
package prompt

import (
	_ "embed"
	"log/slog"
	"os"
	"strings"
)

//go:embed default_prompt.txt
var embeddedDefault string

// DefaultEvaluator asks the model for a closed yes/no answer about engaging.
const DefaultEvaluator = "Decide if you want to reply to this conversation. Answer only with a Yes or a No."

// Embedded returns the compiled-in default system prompt.
func Embedded() string { return strings.TrimSpace(embeddedDefault) }

// Load reads the system prompt at path, falling back to the embedded one
// when the path is empty, unreadable or blank.
func Load(path string, logger *slog.Logger) string {
	if path == "" {
		return Embedded()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("system prompt file unreadable, using embedded default", "path", path, "err", err)
		return Embedded()
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		logger.Warn("system prompt file is empty, using embedded default", "path", path)
		return Embedded()
	}
	return s
}
