package gateway

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soyeahso/sidekick/internal/config"
)

// Auth modes.
const (
	AuthModeToken    = "token"
	AuthModePassword = "password"
)

// Environment fallbacks for the gateway secret.
const (
	EnvGatewayToken    = "SIDEKICK_GATEWAY_TOKEN"
	EnvGatewayPassword = "SIDEKICK_GATEWAY_PASSWORD"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Credentials is the secret a shell must present in its connect request.
type Credentials struct {
	Mode     string
	Token    string
	Password string
}

// LoadCredentials resolves the gateway secret. The token comes from the
// config, then $SIDEKICK_GATEWAY_TOKEN, then tokenFile. With no explicit
// mode, a configured password selects password mode.
func LoadCredentials(cfg config.GatewayAuth, tokenFile string) Credentials {
	c := Credentials{
		Mode:     cfg.Mode,
		Token:    firstNonEmpty(cfg.Token, os.Getenv(EnvGatewayToken)),
		Password: firstNonEmpty(cfg.Password, os.Getenv(EnvGatewayPassword)),
	}
	if c.Token == "" && tokenFile != "" {
		c.Token, _ = ReadToken(tokenFile)
	}
	if c.Mode == "" {
		c.Mode = AuthModeToken
		if c.Password != "" {
			c.Mode = AuthModePassword
		}
	}
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Configured reports whether any client could authenticate.
func (c Credentials) Configured() bool {
	switch c.Mode {
	case AuthModeToken:
		return c.Token != ""
	case AuthModePassword:
		return c.Password != ""
	}
	return false
}

// Verify checks what a shell presented.
func (c Credentials) Verify(presented *ConnectAuth) AuthResult {
	if presented == nil {
		return AuthResult{Reason: "no credentials provided"}
	}

	var want, got string
	switch c.Mode {
	case AuthModeToken:
		want, got = c.Token, presented.Token
	case AuthModePassword:
		want, got = c.Password, presented.Password
	default:
		return AuthResult{Reason: "unknown auth mode: " + c.Mode}
	}

	switch {
	case want == "":
		return AuthResult{Reason: "server " + c.Mode + " not configured"}
	case got == "":
		return AuthResult{Reason: c.Mode + " required"}
	case !secretsEqual(got, want):
		return AuthResult{Reason: c.Mode + "_mismatch"}
	}
	return AuthResult{OK: true, Method: c.Mode}
}

// secretsEqual compares fixed-size digests so timing reveals neither the
// contents nor the length of the secret.
func secretsEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

// ReadToken returns the trimmed contents of a token file.
func ReadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// EnsureToken returns the token stored at path. A missing or empty file is
// replaced with a fresh 128-bit hex token, written 0600.
func EnsureToken(path string) (string, error) {
	tok, err := ReadToken(path)
	switch {
	case err == nil && tok != "":
		return tok, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("reading gateway token: %w", err)
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating gateway token: %w", err)
	}
	tok = hex.EncodeToString(buf)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating credentials dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(tok+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing gateway token: %w", err)
	}
	return tok, nil
}
