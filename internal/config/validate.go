package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/slipwaylabs/slipway/internal/consts"
)

const (
	defaultGatewayBind     = "127.0.0.1:8787"
	defaultAgentTimeoutSec = 600
	defaultMaxSessions     = 8
	defaultReadTimeoutSec  = 60
)

// Validate fills defaults in place and rejects values that cannot work.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	c.Agent.Binary = strings.TrimSpace(c.Agent.Binary)
	if c.Agent.Binary == "" {
		c.Agent.Binary = consts.DefaultAgentBinary
	}
	c.Agent.Path = strings.TrimSpace(c.Agent.Path)
	c.Agent.Model = strings.TrimSpace(c.Agent.Model)
	c.Agent.WorkDir = strings.TrimSpace(c.Agent.WorkDir)
	if c.Agent.TimeoutSec <= 0 {
		c.Agent.TimeoutSec = defaultAgentTimeoutSec
	}
	if c.Agent.MaxSessions <= 0 {
		c.Agent.MaxSessions = defaultMaxSessions
	}

	c.Gateway.Bind = strings.TrimSpace(c.Gateway.Bind)
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = defaultGatewayBind
	}
	if err := validateBind(c.Gateway.Bind); err != nil {
		return fmt.Errorf("gateway.bind: %w", err)
	}
	c.Gateway.MetricsBind = strings.TrimSpace(c.Gateway.MetricsBind)
	if c.Gateway.MetricsBind != "" {
		if err := validateBind(c.Gateway.MetricsBind); err != nil {
			return fmt.Errorf("gateway.metrics_bind: %w", err)
		}
	}
	if c.Gateway.ReadTimeoutSec <= 0 {
		c.Gateway.ReadTimeoutSec = defaultReadTimeoutSec
	}
	// The write timeout must outlast a full agent run or the gateway cuts
	// off responses mid-flight.
	if c.Gateway.WriteTimeoutSec <= c.Agent.TimeoutSec {
		c.Gateway.WriteTimeoutSec = c.Agent.TimeoutSec + 30
	}

	if c.Sched.Enabled == nil {
		enabled := true
		c.Sched.Enabled = &enabled
	}
	c.Sched.Store = strings.TrimSpace(c.Sched.Store)
	if c.Sched.Store == "" {
		c.Sched.Store = consts.DefaultJobsPath()
	}
	if c.Sched.JobTimeoutSec <= 0 {
		c.Sched.JobTimeoutSec = defaultAgentTimeoutSec
	}

	if c.Update.Check == nil {
		check := true
		c.Update.Check = &check
	}

	return nil
}

// validateBind accepts host:port where an empty host binds every interface.
func validateBind(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if port == "" {
		return errors.New("port is required")
	}
	return nil
}
