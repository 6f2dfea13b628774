// Package preflight validates the external artifacts a worker needs before
// the supervisor spawns it: a dotenv file carrying the LLM credential and a
// service-account document for the speech backend. Only presence and shape
// are checked here; the worker owns actually authenticating with them.
package preflight

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lingostream/lingostream/internal/dotenv"
	"github.com/lingostream/lingostream/pkg/control/apierror"
)

// Credentials is the minimum shape required of the speech backend's
// service-account document.
type Credentials struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
}

// CheckEnvArtifact verifies the dotenv file exists and carries a usable value
// for the named key.
func CheckEnvArtifact(path, key string) *apierror.Error {
	if _, err := os.Stat(path); err != nil {
		return apierror.NewMissingArtifact(path, fmt.Sprintf("env file not found; create it with your %s", key))
	}

	val, ok, err := dotenv.Lookup(path, key)
	if err != nil {
		return apierror.NewMissingArtifact(path, err.Error())
	}
	if !ok || strings.TrimSpace(val) == "" {
		return apierror.NewMissingArtifact(path, fmt.Sprintf("%s not set in env file", key))
	}
	if isPlaceholder(val) {
		return apierror.NewMissingArtifact(path, fmt.Sprintf("%s is set to a placeholder value", key))
	}
	return nil
}

// CheckCredentials verifies the service-account document exists, parses as
// JSON, and carries non-placeholder values for every required field.
func CheckCredentials(path string) *apierror.Error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apierror.NewMissingArtifact(path, "credentials file not found; create it with your speech backend service account")
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return apierror.NewMissingArtifact(path, "credentials file is not valid JSON")
	}

	var missing []string
	for field, val := range map[string]string{
		"type":         creds.Type,
		"project_id":   creds.ProjectID,
		"private_key":  creds.PrivateKey,
		"client_email": creds.ClientEmail,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return apierror.NewMissingArtifact(path, fmt.Sprintf("credentials file missing fields: %s", joinSorted(missing)))
	}

	if isPlaceholder(creds.ProjectID) {
		return apierror.NewMissingArtifact(path, "project_id is set to a placeholder value")
	}
	if strings.Contains(creds.ClientEmail, "your-service-account") {
		return apierror.NewMissingArtifact(path, "client_email is set to a placeholder value")
	}
	return nil
}

func isPlaceholder(val string) bool {
	v := strings.ToLower(strings.TrimSpace(val))
	return strings.HasPrefix(v, "your-") || strings.HasPrefix(v, "your_")
}

func joinSorted(fields []string) string {
	// map iteration order is random; keep the message stable
	order := []string{"type", "project_id", "private_key", "client_email"}
	var out []string
	for _, f := range order {
		for _, m := range fields {
			if m == f {
				out = append(out, f)
			}
		}
	}
	return strings.Join(out, ", ")
}
