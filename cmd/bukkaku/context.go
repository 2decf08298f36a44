package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazuki802/bukkaku/internal/caseaccess"
	"github.com/hazuki802/bukkaku/internal/client"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/store"
)

// probeTimeout bounds the reachability check before a command decides
// between the daemon API and direct store access.
const probeTimeout = 2 * time.Second

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
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

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withClient runs fn against the daemon API. Commands that need the
// orchestrator or the browser worker use this; the daemon must be up.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(ctx context.Context, api *client.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	api, err := client.New(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return err
	}
	if api == nil {
		return fmt.Errorf("daemon api address is not configured; set paths.api_bind in the config file")
	}
	if err := fn(cmd.Context(), api); err != nil {
		return wrapUnavailable(err, cfg.Paths.APIBind)
	}
	return nil
}

// withAccess runs fn against the daemon when it is reachable, otherwise
// against the store directly. A Direct session prints a short notice so
// the operator knows live orchestrator state is not included.
func (c *commandContext) withAccess(cmd *cobra.Command, fn func(ctx context.Context, access caseaccess.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	session, err := caseaccess.OpenWithFallback(cmd.Context(),
		func(ctx context.Context) (*client.Client, error) {
			api, err := client.New(cfg.Paths.APIBind, cfg.Paths.APIToken)
			if err != nil || api == nil {
				return nil, client.ErrDaemonUnavailable
			}
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			if err := api.Health(probeCtx); err != nil {
				return nil, err
			}
			return api, nil
		},
		func() (*store.Store, error) {
			return store.Open(cfg)
		},
	)
	if err != nil {
		return err
	}
	defer session.Close()

	if session.Direct {
		fmt.Fprintln(cmd.ErrOrStderr(), "Daemon not running; reading the store directly")
	}
	return fn(cmd.Context(), session.Access)
}

func wrapUnavailable(err error, bind string) error {
	if client.IsUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: daemon is not running; start it with `bukkaku start`", bind)
	}
	return err
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
