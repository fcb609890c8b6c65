package oracle

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed system_context.txt
var defaultSystemPrompt string

// DefaultSystemPrompt returns the built-in scoring instructions.
func DefaultSystemPrompt() string { return defaultSystemPrompt }

// LoadSystemPrompt reads the system prompt from path. An empty path or a
// missing file falls back to the built-in prompt.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return defaultSystemPrompt, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("system prompt file not found, using built-in prompt", zap.String("path", path))
		return defaultSystemPrompt, nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "oracle: read system prompt %s", path)
	}
	prompt := strings.TrimSpace(string(b))
	if prompt == "" {
		zap.L().Warn("system prompt file is empty, using built-in prompt", zap.String("path", path))
		return defaultSystemPrompt, nil
	}
	return prompt, nil
}
