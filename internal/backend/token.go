package backend

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// StaticToken is a TokenProvider returning a fixed credential.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("%w: empty token", ErrAuthentication)
	}
	return string(t), nil
}

// FileToken reads the credential from a file on every request, so an
// external refresher can rotate it without restarting the client.
type FileToken struct {
	Path string
}

// Token implements TokenProvider.
func (t FileToken) Token(context.Context) (string, error) {
	raw, err := os.ReadFile(t.Path)
	if err != nil {
		return "", fmt.Errorf("%w: reading token file: %w", ErrAuthentication, err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("%w: token file %s is empty", ErrAuthentication, t.Path)
	}
	return token, nil
}
