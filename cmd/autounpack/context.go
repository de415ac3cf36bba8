package main

import (
	"strings"

	"autounpack/internal/config"
)

type commandContext struct {
	configFlag   *string
	modeFlag     *string
	logLevelFlag *string
}

func newCommandContext(configFlag, modeFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		modeFlag:     modeFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	return flagValue(c.configFlag)
}

func (c *commandContext) mode() string {
	return flagValue(c.modeFlag)
}

func (c *commandContext) logLevel() string {
	return flagValue(c.logLevelFlag)
}

// loadConfig resolves the configuration for commands that only read it.
func (c *commandContext) loadConfig() (*config.Config, string, bool, error) {
	return config.Load(c.configPath(), c.mode())
}

func flagValue(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
