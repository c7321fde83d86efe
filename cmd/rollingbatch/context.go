package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/rollingbatch/internal/config"
	"github.com/Sternrassler/rollingbatch/pkg/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     zerolog.Logger
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		logger:       zerolog.Nop(),
	}
}

// ensureConfig loads the configuration once and sets up logging from it.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}

		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if !logging.ValidLevel(logging.LogLevel(level)) {
				c.configErr = fmt.Errorf("--log-level %q is not one of debug, info, warn, error", level)
				return
			}
			cfg.Logging.Level = level
		}

		logging.Setup(cfg.LoggingConfig())
		c.logger = logging.NewLogger("cli")
		c.logger.Debug().
			Str("path", path).
			Bool("file_found", exists).
			Msg("Configuration loaded")

		c.config = cfg
	})
	return c.config, c.configErr
}
