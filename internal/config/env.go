package config

import "os"

// applyEnvOverrides lets deployment environments inject credentials without
// writing them into the config file. Process environment wins over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCSYNC_STORAGE_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv("DOCSYNC_STORAGE_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("DOCSYNC_STORAGE_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
	if v := os.Getenv("DOCSYNC_STORAGE_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("DOCSYNC_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("DOCSYNC_NATS_URL"); v != "" {
		c.Events.NATSURL = v
	}
}
