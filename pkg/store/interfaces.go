package store

// Manager persists chats in a single directory, one record per chat name.
type Manager interface {
	// Dir returns the directory the manager stores chats in.
	Dir() string

	// Save writes the record under rec.Metadata.Name, replacing any
	// previous version.
	Save(rec Record) error

	// Load reads the record stored under name.
	// Returns ErrNotFound, ErrCorruptFormat or ErrCorruptMetadata.
	Load(name string) (Record, error)

	// Exists reports whether a record is stored under name.
	Exists(name string) bool

	// List returns every chat whose metadata can be read.
	// Unreadable files are skipped, never reported.
	List() ([]ChatInfo, error)

	// Filter returns the chats whose name or role contains query,
	// ignoring case. An empty query returns List().
	Filter(query string) ([]ChatInfo, error)

	// Delete removes the chat stored under name and returns a confirmation.
	Delete(name string) (string, error)
}
