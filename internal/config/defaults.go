package config

const (
	// DedupObserve marks duplicates in results without skipping them.
	DedupObserve = "observe"
	// DedupSkip refuses to re-extract content already seen.
	DedupSkip = "skip"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./extracted_content"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "full"
	}
	if cfg.Extract.DedupMode == "" {
		cfg.Extract.DedupMode = DedupObserve
	}
	if cfg.Batch.MaxWorkers == 0 {
		cfg.Batch.MaxWorkers = 4
	}
	if cfg.Catalog.DatabasePath == "" {
		cfg.Catalog.DatabasePath = "/usr/local/var/toridasu/data/db/catalog.db"
	}
	if cfg.Keyword.IndexPath == "" {
		cfg.Keyword.IndexPath = "/usr/local/var/toridasu/data/indices/bleve"
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
