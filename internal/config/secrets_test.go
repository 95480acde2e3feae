package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const serviceAccount = `{"type": "service_account", "client_email": "bot@project.iam.gserviceaccount.com"}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadCredentials_FileWinsOverEnv(t *testing.T) {
	path := writeFile(t, "secrets.toml", `
GOOGLE_API_KEY = "from-file"

[GOOGLE_SHEETS_CREDENTIALS]
type = "service_account"
client_email = "file@project.iam.gserviceaccount.com"
`)
	file, err := NewTOMLSource(path)
	if err != nil {
		t.Fatalf("NewTOMLSource: %v", err)
	}
	env := EnvSource{Getenv: envMap(map[string]string{
		KeyGoogleAPIKey:      "from-env",
		KeySheetsCredentials: serviceAccount,
	})}

	creds, err := LoadCredentials(file, env)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.GoogleAPIKey != "from-file" {
		t.Errorf("GoogleAPIKey = %q, want from-file", creds.GoogleAPIKey)
	}
	if creds.ClientEmail != "file@project.iam.gserviceaccount.com" {
		t.Errorf("ClientEmail = %q", creds.ClientEmail)
	}
	if !strings.Contains(string(creds.SheetsCredentialsJSON), `"client_email"`) {
		t.Errorf("table must be re-encoded as JSON, got %s", creds.SheetsCredentialsJSON)
	}
	if !strings.HasPrefix(creds.Sources[KeyGoogleAPIKey], "secrets file") {
		t.Errorf("source = %q", creds.Sources[KeyGoogleAPIKey])
	}
}

func TestLoadCredentials_FallsBackToEnv(t *testing.T) {
	file, err := NewTOMLSource(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	env := EnvSource{Getenv: envMap(map[string]string{
		KeyGoogleAPIKey:      "env-key",
		KeySheetsCredentials: serviceAccount,
	})}

	creds, err := LoadCredentials(file, env)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.GoogleAPIKey != "env-key" || creds.Sources[KeySheetsCredentials] != "environment" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestLoadCredentials_InvalidValueFallsThrough(t *testing.T) {
	path := writeFile(t, "secrets.toml", `
GOOGLE_API_KEY = "k"
GOOGLE_SHEETS_CREDENTIALS = '{"type": "service_account"}'
`)
	file, _ := NewTOMLSource(path)
	env := EnvSource{Getenv: envMap(map[string]string{KeySheetsCredentials: serviceAccount})}

	creds, err := LoadCredentials(file, env)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.Sources[KeySheetsCredentials] != "environment" {
		t.Errorf("credentials without client_email must be skipped, source = %q", creds.Sources[KeySheetsCredentials])
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantKey string
		wantMsg string
	}{
		{
			name:    "no api key",
			env:     map[string]string{KeySheetsCredentials: serviceAccount},
			wantKey: KeyGoogleAPIKey,
		},
		{
			name:    "credentials not json",
			env:     map[string]string{KeyGoogleAPIKey: "k", KeySheetsCredentials: "not json"},
			wantKey: KeySheetsCredentials,
			wantMsg: "not a JSON object",
		},
		{
			name:    "credentials without client_email",
			env:     map[string]string{KeyGoogleAPIKey: "k", KeySheetsCredentials: `{"type": "service_account"}`},
			wantKey: KeySheetsCredentials,
			wantMsg: "client_email is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCredentials(EnvSource{Getenv: envMap(tt.env)})
			if !errors.Is(err, ErrMissingSecret) {
				t.Fatalf("err = %v, want ErrMissingSecret", err)
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("error %q does not name %s", err, tt.wantKey)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestNewTOMLSource_ParseError(t *testing.T) {
	path := writeFile(t, "broken.toml", "GOOGLE_API_KEY = ")
	if _, err := NewTOMLSource(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadBudgets(t *testing.T) {
	path := writeFile(t, "budgets.toml", `
[budgets]
"Lebensmittel: Backwaren" = 40.0
"Getränke: Wasser" = 12.5
`)
	budgets, err := LoadBudgets(path)
	if err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	if budgets["Lebensmittel: Backwaren"] != 40 || budgets["Getränke: Wasser"] != 12.5 {
		t.Errorf("budgets = %v", budgets)
	}

	empty, err := LoadBudgets("")
	if err != nil || len(empty) != 0 {
		t.Errorf("LoadBudgets(\"\") = %v, %v", empty, err)
	}

	negative := writeFile(t, "neg.toml", "[budgets]\n\"Geschenke\" = -1.0\n")
	if _, err := LoadBudgets(negative); err == nil {
		t.Error("expected error for negative budget")
	}
}
