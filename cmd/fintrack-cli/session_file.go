package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

func (a *app) restoreToken() {
	b, err := os.ReadFile(a.sessionPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn("Cannot read session file", "path", a.sessionPath, "error", err)
		}
		return
	}
	if token := strings.TrimSpace(string(b)); token != "" {
		a.api.SetToken(token)
	}
}

func (a *app) saveToken() {
	token := a.api.Token()
	if token == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(a.sessionPath), 0o700); err != nil {
		a.logger.Warn("Cannot create session directory", "path", a.sessionPath, "error", err)
		return
	}
	if err := os.WriteFile(a.sessionPath, []byte(token+"\n"), 0o600); err != nil {
		a.logger.Warn("Cannot save session", "path", a.sessionPath, "error", err)
	}
}

func (a *app) forgetToken() {
	if err := os.Remove(a.sessionPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn("Cannot remove session file", "path", a.sessionPath, "error", err)
	}
}
