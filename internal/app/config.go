package app

// Config holds runtime configuration for one invocation.
type Config struct {
	// Import sources
	HTMLPath    string
	TakeoutPath string

	// Backup / restore
	ExportPath string
	ImportPath string
	ImportMode string // "merge" or "replace"

	// Output
	ReportPath string

	// View
	SortKey  string
	SortDir  string
	Filter   string
	Language string

	// Named selections
	ListSave   string
	ListDelete string
	ListUse    string

	// Storage
	DBPath   string
	ClearAll bool

	// Behavior
	Verbose      bool
	DebugExtract bool

	// Takeout key-candidate overrides (usually set via the config file)
	TakeoutASINKeys  []string
	TakeoutTitleKeys []string
	TakeoutPriceKeys []string
}
