package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Credential keys, looked up with the same name in every source.
const (
	KeyGoogleAPIKey      = "GOOGLE_API_KEY"
	KeySheetsCredentials = "GOOGLE_SHEETS_CREDENTIALS"
)

// ErrMissingSecret means no source holds a valid value for a credential key.
var ErrMissingSecret = errors.New("missing secret")

// SecretSource is one strategy in the credential lookup chain.
type SecretSource interface {
	Name() string
	Lookup(key string) (any, bool)
}

// EnvSource reads secrets from environment variables.
type EnvSource struct {
	Getenv func(string) string
}

func (s EnvSource) Name() string { return "environment" }

func (s EnvSource) Lookup(key string) (any, bool) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	v := getenv(key)
	return v, v != ""
}

// TOMLSource reads secrets from a local TOML file. Top-level keys map to
// credential keys; a table value is treated as a structured JSON object.
type TOMLSource struct {
	path   string
	values map[string]any
}

// NewTOMLSource parses path. A missing file yields an empty source.
func NewTOMLSource(path string) (*TOMLSource, error) {
	s := &TOMLSource{path: path, values: map[string]any{}}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("NewTOMLSource: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("NewTOMLSource: parse %s: %w", path, err)
	}
	return s, nil
}

func (s *TOMLSource) Name() string { return "secrets file " + s.path }

func (s *TOMLSource) Lookup(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Credentials are the two secrets the service needs.
type Credentials struct {
	GoogleAPIKey string
	// SheetsCredentialsJSON is the service-account key as JSON.
	SheetsCredentialsJSON []byte
	// ClientEmail is the service account the worksheet must be shared with.
	ClientEmail string
	// Sources names the source each key was resolved from.
	Sources map[string]string
}

// LoadCredentials resolves every credential through sources in order. The
// first source holding a valid value wins; invalid values are skipped and
// reported if no later source has a valid one.
func LoadCredentials(sources ...SecretSource) (*Credentials, error) {
	creds := &Credentials{Sources: map[string]string{}}

	src, err := resolve(sources, KeyGoogleAPIKey, func(v any) error {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return errors.New("must be a non-empty string")
		}
		creds.GoogleAPIKey = strings.TrimSpace(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	creds.Sources[KeyGoogleAPIKey] = src

	src, err = resolve(sources, KeySheetsCredentials, func(v any) error {
		raw, email, err := serviceAccountJSON(v)
		if err != nil {
			return err
		}
		creds.SheetsCredentialsJSON = raw
		creds.ClientEmail = email
		return nil
	})
	if err != nil {
		return nil, err
	}
	creds.Sources[KeySheetsCredentials] = src

	return creds, nil
}

// resolve returns the name of the source that satisfied key.
func resolve(sources []SecretSource, key string, accept func(any) error) (string, error) {
	var problems []string
	for _, src := range sources {
		v, ok := src.Lookup(key)
		if !ok {
			continue
		}
		if err := accept(v); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", src.Name(), err))
			continue
		}
		return src.Name(), nil
	}
	if len(problems) > 0 {
		return "", fmt.Errorf("%w: %s (%s)", ErrMissingSecret, key, strings.Join(problems, "; "))
	}
	return "", fmt.Errorf("%w: %s", ErrMissingSecret, key)
}

// serviceAccountJSON accepts a JSON string or a structured table and returns
// the JSON encoding plus the client_email it contains.
func serviceAccountJSON(v any) ([]byte, string, error) {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(strings.TrimSpace(t))
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, "", fmt.Errorf("encode table: %w", err)
		}
		raw = b
	default:
		return nil, "", fmt.Errorf("unsupported value type %T", v)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, "", fmt.Errorf("not a JSON object: %w", err)
	}
	email, _ := obj["client_email"].(string)
	if strings.TrimSpace(email) == "" {
		return nil, "", errors.New("client_email is missing")
	}
	return raw, email, nil
}
