package driven

// ConfigStore holds configuration under dotted keys such as "index.name".
// The typed getters report false for a missing key and for a value that
// does not convert.
type ConfigStore interface {
	Lookup(key string) (any, bool)
	String(key string) (string, bool)
	Int(key string) (int, bool)
	Bool(key string) (bool, bool)

	// Set stores one value and persists it.
	Set(key string, value any) error

	// Update stores every value and persists them with a single write.
	Update(values map[string]any) error

	// Path is the file the store persists to.
	Path() string
}
