package config

import (
	"os"
	"strings"

	"github.com/lukaszraczylo/uplink/pkg/errors"
)

// DefaultTokenEnv is the environment variable consulted when auth is
// configured without an explicit token or env var name.
const DefaultTokenEnv = "NPM_TOKEN" // #nosec G101 -- Env var name, not a credential

// TokenSource identifies where an uplink token comes from
type TokenSource int

const (
	// TokenLiteral uses the token string from the config file
	TokenLiteral TokenSource = iota
	// TokenEnvVar reads the token from a named environment variable
	TokenEnvVar
	// TokenDefaultEnv reads the token from DefaultTokenEnv
	TokenDefaultEnv
)

// ParsedAuth is the tagged form of the polymorphic auth config. The header
// builder operates only on this type.
type ParsedAuth struct {
	Type    string // "Basic" or "Bearer"
	Source  TokenSource
	Token   string // literal token, when Source == TokenLiteral
	EnvName string // env var name, when Source == TokenEnvVar
}

// ParseAuth validates the raw auth config and resolves it into a tagged
// variant. Returns nil when auth is not configured.
func ParseAuth(raw *Auth) (*ParsedAuth, error) {
	if raw == nil {
		return nil, nil
	}

	var authType string
	switch strings.ToLower(raw.Type) {
	case "basic":
		authType = "Basic"
	case "bearer":
		authType = "Bearer"
	default:
		return nil, errors.AuthInvalid(raw.Type)
	}

	parsed := &ParsedAuth{Type: authType}

	switch {
	case raw.Token != "":
		parsed.Source = TokenLiteral
		parsed.Token = raw.Token
	case raw.TokenEnv != nil:
		switch v := raw.TokenEnv.(type) {
		case string:
			if v == "" {
				return nil, errors.AuthInvalid(raw.Type)
			}
			parsed.Source = TokenEnvVar
			parsed.EnvName = v
		case bool:
			if !v {
				return nil, errors.AuthInvalid(raw.Type)
			}
			parsed.Source = TokenDefaultEnv
		default:
			return nil, errors.AuthInvalid(raw.Type)
		}
	default:
		// No token and no env var named: fall back to NPM_TOKEN
		parsed.Source = TokenDefaultEnv
	}

	return parsed, nil
}

// Resolve returns the token value for this auth source. Environment
// variables are read at call time so rotated tokens are picked up.
func (a *ParsedAuth) Resolve(uplinkName string) (string, error) {
	var token string
	switch a.Source {
	case TokenLiteral:
		token = a.Token
	case TokenEnvVar:
		token = os.Getenv(a.EnvName)
	case TokenDefaultEnv:
		token = os.Getenv(DefaultTokenEnv)
	}

	if token == "" {
		return "", errors.TokenRequired(uplinkName)
	}
	return a.Type + " " + token, nil
}
