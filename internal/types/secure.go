package types

import "log/slog"

// redactedPlaceholder is the string used to replace secret values in logs
// and serialization.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a sensitive configuration value (database URL with
// credentials, broker password) and redacts itself everywhere except an
// explicit Unmask call: fmt via Stringer, JSON marshalling, and structured
// slog output via LogValuer.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// LogValue redacts the secret in slog output, so passing a SecretString as
// a log attribute value is safe.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// Unmask returns the raw plaintext value. Limit usage to the points where
// the real value is required (connection strings, auth headers).
func (s SecretString) Unmask() string {
	return string(s)
}
