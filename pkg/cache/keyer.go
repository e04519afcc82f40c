package cache

import "strings"

// Keyer builds cache keys. Keeping key construction in one place lets the
// CLI and the server share entries.
type Keyer interface {
	// HTTPKey keys a raw HTTP response body for a namespace such as "npm:".
	HTTPKey(namespace, key string) string

	// PackageKey keys resolved package metadata for a registry.
	PackageKey(registry, name, version string) string

	// FilesKey keys the file listing of one published package version.
	FilesKey(name, version string) string

	// ArtifactKey keys a rendered graph artifact by format and source hash.
	ArtifactKey(format, sourceHash string) string
}

// DefaultKeyer produces human-readable keys for short inputs and hashed
// keys where option sets are involved.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) PackageKey(registry, name, version string) string {
	if version == "" {
		version = "latest"
	}
	return "pkg:" + registry + ":" + strings.ToLower(name) + "@" + version
}

func (DefaultKeyer) FilesKey(name, version string) string {
	return hashKey("files", strings.ToLower(name), version)
}

func (DefaultKeyer) ArtifactKey(format, sourceHash string) string {
	return "artifact:" + format + ":" + sourceHash
}

// ScopedKeyer prefixes every key of an inner Keyer, giving separate
// namespaces to processes sharing one Redis.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner uses
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

func (k *ScopedKeyer) PackageKey(registry, name, version string) string {
	return k.prefix + k.inner.PackageKey(registry, name, version)
}

func (k *ScopedKeyer) FilesKey(name, version string) string {
	return k.prefix + k.inner.FilesKey(name, version)
}

func (k *ScopedKeyer) ArtifactKey(format, sourceHash string) string {
	return k.prefix + k.inner.ArtifactKey(format, sourceHash)
}
