package main

import (
	"fmt"
	"strings"
	"sync"

	"shortreel/internal/config"
)

type commandContext struct {
	apiFlag    *string
	tokenFlag  *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, tokenFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		tokenFlag:  tokenFlag,
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

// client resolves the daemon API endpoint. The --api flag wins; otherwise the
// configured bind address is used.
func (c *commandContext) client() (*apiClient, error) {
	base := ""
	if c.apiFlag != nil {
		base = strings.TrimSpace(*c.apiFlag)
	}
	token := ""
	if c.tokenFlag != nil {
		token = strings.TrimSpace(*c.tokenFlag)
	}

	if base == "" || token == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		if base == "" {
			bind := strings.TrimSpace(cfg.Paths.APIBind)
			if bind == "" {
				return nil, fmt.Errorf("daemon API address not configured; set paths.api_bind or pass --api")
			}
			base = bind
		}
		if token == "" {
			token = strings.TrimSpace(cfg.Paths.APIToken)
		}
	}

	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return newAPIClient(base, token), nil
}
