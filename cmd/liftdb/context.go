package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"liftdb/internal/config"
	"liftdb/internal/logging"
	"liftdb/internal/resolver"
	"liftdb/internal/sources/members"
	"liftdb/internal/sources/rankings"
	"liftdb/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// openStore opens the database; the caller owns the returned store.
func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// buildResolver wires the full tier hierarchy over repo using the configured
// external sources.
func (c *commandContext) buildResolver(repo resolver.Repository) (*resolver.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	rankingSource, err := rankings.New(
		cfg.Rankings.BaseURL,
		cfg.Rankings.UserAgent,
		time.Duration(cfg.Rankings.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		return nil, fmt.Errorf("rankings source: %w", err)
	}
	memberSource, err := members.New(
		cfg.Members.BaseURL,
		cfg.Members.PageSize,
		time.Duration(cfg.Members.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		return nil, fmt.Errorf("members source: %w", err)
	}

	return resolver.NewFromConfig(cfg, repo, rankingSource, memberSource, logger), nil
}
