package cache

// Keyer generates cache keys for each kind of cached value.
type Keyer interface {
	// MigrationKey identifies the migration of a document.
	MigrationKey(docHash string, opts MigrationKeyOpts) string

	// ReportKey identifies a validation report of a document against a
	// catalog.
	ReportKey(docHash, catalogFingerprint string) string
}

// MigrationKeyOpts holds the migrator settings that change its output.
type MigrationKeyOpts struct {
	Author   string  `json:"author"`
	StartX   float32 `json:"start_x"`
	StartY   float32 `json:"start_y"`
	HSpacing float32 `json:"h_spacing"`
	VSpacing float32 `json:"v_spacing"`
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// MigrationKey returns "migrate:<hash>".
func (DefaultKeyer) MigrationKey(docHash string, opts MigrationKeyOpts) string {
	return hashKey("migrate", docHash, opts)
}

// ReportKey returns "report:<hash>".
func (DefaultKeyer) ReportKey(docHash, catalogFingerprint string) string {
	return hashKey("report", docHash, catalogFingerprint)
}
