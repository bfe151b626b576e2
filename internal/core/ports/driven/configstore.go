package driven

// ConfigStore holds flat settings addressed by dot keys such as
// "llm.model". Typed getters return the zero value when a key is missing
// or holds another type.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string

	// GetInt accepts any integer type, and floats with no fraction as
	// decoded from JSON.
	GetInt(key string) int

	// GetFloat also accepts integers.
	GetFloat(key string) float64

	// Set stores value. Persistent stores write through before returning
	// and leave the previous value in place when the write fails.
	Set(key string, value any) error

	// Path names where values are stored.
	Path() string
}
