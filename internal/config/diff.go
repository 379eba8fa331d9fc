package config

// ConfigDiff describes what changed between two configs, grouped by how the
// change applies: live (log level), by rebuilding the matcher, or only with
// a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// MatcherChanged is true when the matcher section differs. The service
	// reacts by building a fresh matcher and swapping it in.
	MatcherChanged bool

	// CatalogChanged and ServerChanged flag sections that only take effect
	// after a restart; the watcher callback logs them and keeps running on
	// the old values.
	CatalogChanged bool
	ServerChanged  bool
}

// Changed reports whether the diff carries any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.MatcherChanged || d.CatalogChanged || d.ServerChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Matcher != new.Matcher {
		d.MatcherChanged = true
	}
	if old.Catalog != new.Catalog {
		d.CatalogChanged = true
	}
	if serverChanged(old.Server, new.Server) {
		d.ServerChanged = true
	}
	return d
}

// serverChanged compares server sections minus the log level, which
// hot-reloads and is tracked separately.
func serverChanged(old, new ServerConfig) bool {
	if old.ListenAddr != new.ListenAddr {
		return true
	}
	switch {
	case old.TLS == nil && new.TLS == nil:
		return false
	case old.TLS == nil || new.TLS == nil:
		return true
	default:
		return *old.TLS != *new.TLS
	}
}
