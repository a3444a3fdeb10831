package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several deployments share one Redis instance.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "btgraph:staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// MigrationKey generates a prefixed key for migrated documents.
func (k *ScopedKeyer) MigrationKey(docHash string, opts MigrationKeyOpts) string {
	return k.prefix + k.inner.MigrationKey(docHash, opts)
}

// ReportKey generates a prefixed key for validation reports.
func (k *ScopedKeyer) ReportKey(docHash, catalogFingerprint string) string {
	return k.prefix + k.inner.ReportKey(docHash, catalogFingerprint)
}
