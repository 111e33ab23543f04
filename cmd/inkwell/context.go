package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"inkwell/internal/apiclient"
	"inkwell/internal/config"
	"inkwell/internal/recordaccess"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// daemonAddr resolves the API address: the --addr flag wins over config.
func (c *commandContext) daemonAddr() string {
	if c.addrFlag != nil {
		if addr := strings.TrimSpace(*c.addrFlag); addr != "" {
			return addr
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Paths.APIBind
	}
	return ""
}

func (c *commandContext) apiClient() *apiclient.Client {
	token := ""
	if cfg := c.configValue(); cfg != nil {
		token = cfg.Paths.APIToken
	}
	return apiclient.New(c.daemonAddr(), token)
}

// withAccess runs fn against the daemon API when it answers, or against the
// stores directly otherwise. An explicit --addr disables the fallback so a
// typo'd address fails loudly instead of silently going offline.
func (c *commandContext) withAccess(ctx context.Context, fn func(recordaccess.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	var access recordaccess.Access
	if c.addrFlag != nil && strings.TrimSpace(*c.addrFlag) != "" {
		access = recordaccess.NewHTTPAccess(c.apiClient())
	} else {
		access, err = recordaccess.Connect(ctx, cfg)
		if err != nil {
			return err
		}
	}
	defer access.Close()
	return fn(access)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
