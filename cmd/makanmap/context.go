package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iconidentify/makanmap/internal/app"
	"github.com/iconidentify/makanmap/internal/config"
)

type commandContext struct {
	configFlag   *string
	envFileFlag  *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, envFileFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		envFileFlag:  envFileFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.envFileFlag != nil && *c.envFileFlag != "" {
			if err := godotenv.Load(*c.envFileFlag); err != nil && !errors.Is(err, os.ErrNotExist) {
				c.configErr = fmt.Errorf("load env file: %w", err)
				return
			}
		}

		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			cfg.Log.Level = *c.logLevelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withApp opens the store and services for the duration of fn.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger := app.NewLogger(cfg.Log, cmd.ErrOrStderr(), "text")
	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
