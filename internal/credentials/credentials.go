// Package credentials resolves the OAuth bearer token used for the usage
// endpoint. Resolution failures are reported as ordinary errors; the caller
// funnels them into the degraded-record path like any other fetch failure.
package credentials

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// TokenEnvVar overrides the credentials file when set.
const TokenEnvVar = "CLAUDE_OAUTH_TOKEN"

// TokenSource yields a bearer token for the usage endpoint.
type TokenSource interface {
	Token() (string, error)
}

// FileSource reads the token from the CLAUDE_OAUTH_TOKEN env var, falling
// back to the shared Claude credentials JSON file.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by the given credentials file.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Token resolves the bearer token.
func (s *FileSource) Token() (string, error) {
	if v := strings.TrimSpace(os.Getenv(TokenEnvVar)); v != "" {
		return v, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read credentials file %s: %w", s.path, err)
	}

	token := strings.TrimSpace(gjson.GetBytes(data, "claudeAiOauth.accessToken").String())
	if token == "" {
		return "", fmt.Errorf("no OAuth access token in %s", s.path)
	}

	return token, nil
}
