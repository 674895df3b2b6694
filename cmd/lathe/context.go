package main

import (
	"strings"
	"sync"

	"lathe/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(serverFlag, configFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
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
		c.config = cfg
	})
	return c.config, c.configErr
}

// serverURL resolves the daemon base URL: the --server flag wins, otherwise
// the configured API bind address.
func (c *commandContext) serverURL() string {
	if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
		return normalizeServerURL(*c.serverFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return normalizeServerURL(cfg.Paths.APIBind)
	}
	return normalizeServerURL(config.Default().Paths.APIBind)
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(c.serverURL())
}

func normalizeServerURL(value string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	return trimmed
}
