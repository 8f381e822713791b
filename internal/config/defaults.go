package config

// Default creates a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8845
	}
	if c.Database.Path == "" {
		c.Database.Path = "./docsync.db"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "repositories"
	}
	if c.Sync.CloneTimeout == "" {
		c.Sync.CloneTimeout = "2m"
	}
	if c.Sync.MkDocsBinary == "" {
		c.Sync.MkDocsBinary = "mkdocs"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "docsync.jobs"
	}
	if c.Scheduler.Interval == "" {
		c.Scheduler.Interval = "1h"
	}
	for i := range c.Scheduler.Repositories {
		if c.Scheduler.Repositories[i].Branch == "" {
			c.Scheduler.Repositories[i].Branch = "main"
		}
	}
}
