package driven

// ConfigStore is a typed key/value view over the settings file. Keys are
// dotted paths such as "retrieval.top_k".
type ConfigStore interface {
	// Get returns the raw value stored under key.
	Get(key string) (any, bool)

	// Typed getters return the zero value for a missing key or a value of
	// another type. GetFloat also accepts integers.
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores value under key and writes the file.
	Set(key string, value any) error

	// Save writes the current values to Path.
	Save() error

	// Load replaces the current values with the contents of Path.
	Load() error

	// Path is the backing file.
	Path() string
}
