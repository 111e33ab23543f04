package config

import "strings"

// normalize expands user paths and canonicalizes free-form string fields so
// the rest of the daemon never has to reason about "~" or case variance.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Database.RecordsPath, err = expandPath(c.Database.RecordsPath); err != nil {
		return err
	}
	if c.Database.QueuePath, err = expandPath(c.Database.QueuePath); err != nil {
		return err
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)

	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.ResultsPrefix = strings.TrimSpace(c.Storage.ResultsPrefix)
	if c.Storage.ResultsPrefix != "" && !strings.HasSuffix(c.Storage.ResultsPrefix, "/") {
		c.Storage.ResultsPrefix += "/"
	}

	types := make([]string, 0, len(c.Intake.AllowedTypes))
	for _, t := range c.Intake.AllowedTypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			types = append(types, t)
		}
	}
	c.Intake.AllowedTypes = types
	c.Intake.ForceTier = strings.ToLower(strings.TrimSpace(c.Intake.ForceTier))

	c.Extraction.FastEndpoint = strings.TrimSpace(c.Extraction.FastEndpoint)
	c.Extraction.BatchEndpoint = strings.TrimSpace(c.Extraction.BatchEndpoint)
	langs := make([]string, 0, len(c.Extraction.Languages))
	for _, l := range c.Extraction.Languages {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			langs = append(langs, l)
		}
	}
	c.Extraction.Languages = langs

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}
