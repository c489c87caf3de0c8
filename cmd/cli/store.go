package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	CustomerID  string    `json:"customer_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

var errNoToken = errors.New("no valid session (login required)")

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "grocer")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "grocer")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

// loadToken returns the stored token while it has not expired.
func loadToken(now time.Time) (tokenFile, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tokenFile{}, errNoToken
		}
		return tokenFile{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || !now.Before(tf.ExpiresAt) {
		return tokenFile{}, errNoToken
	}
	return tf, nil
}

func clearToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
