package plugin

import (
	"encoding/json"

	averrors "github.com/systmms/agevault/internal/errors"
	"github.com/xeipuuv/gojsonschema"
)

// secretsSchema constrains the decrypted secrets document: a JSON
// object mapping plugin names to credential objects. Credential values
// are free-form (strings, nested objects for OAuth token bundles), but
// the top two levels must be objects so sections can be routed to
// plugins.
const secretsSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object"
	}
}`

// ParseSecrets validates and decodes a decrypted secrets document.
// Validation happens before any plugin sees the data, so a malformed
// document fails once with a shape error instead of failing obscurely
// inside whichever plugin touches it first.
func ParseSecrets(data []byte) (map[string]map[string]interface{}, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(secretsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, averrors.UserError{
			Message:    "Secrets file is not valid JSON",
			Details:    err.Error(),
			Suggestion: "Decrypt it and check the syntax",
			Err:        err,
		}
	}
	if !result.Valid() {
		details := ""
		for _, e := range result.Errors() {
			if details != "" {
				details += "; "
			}
			details += e.String()
		}
		return nil, averrors.UserError{
			Message:    "Secrets file has the wrong shape",
			Details:    details,
			Suggestion: "The document must map plugin names to credential objects",
		}
	}

	var secrets map[string]map[string]interface{}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, averrors.UserError{
			Message: "Failed to decode secrets file",
			Details: err.Error(),
			Err:     err,
		}
	}
	return secrets, nil
}
