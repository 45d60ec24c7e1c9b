package host

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// StaticUsername answers with a fixed name; empty means "no user".
type StaticUsername string

// Username implements session.UsernameSource.
func (s StaticUsername) Username(context.Context) (string, bool, error) {
	name := strings.TrimSpace(string(s))
	return name, name != "", nil
}

// FileUsername reads the active username from a file the page bridge
// rewrites whenever the signed-in user changes. A missing or blank file
// means "no user".
type FileUsername struct {
	Path string
}

// Username implements session.UsernameSource.
func (f FileUsername) Username(context.Context) (string, bool, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read username file: %w", err)
	}
	name := strings.TrimSpace(string(data))
	return name, name != "", nil
}
