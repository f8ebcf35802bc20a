package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds per-operation deadlines and retry knobs.
// Each value can be overridden via environment variables.
type Timeouts struct {
	ProviderCall      time.Duration // single IaaS API call
	SSHCommand        time.Duration // single remote command
	HelmInstall       time.Duration // helm install/upgrade --wait
	K3sReady          time.Duration // k3s readiness poll budget
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// LoadTimeouts loads timeout configuration from environment variables,
// falling back to defaults when unset or unparseable.
//
// Environment variables:
//   - DIP_TIMEOUT_PROVIDER_CALL (default: 60s)
//   - DIP_TIMEOUT_SSH_COMMAND (default: 300s)
//   - DIP_TIMEOUT_HELM_INSTALL (default: 10m)
//   - DIP_TIMEOUT_K3S_READY (default: 10m)
//   - DIP_RETRY_MAX_ATTEMPTS (default: 6)
//   - DIP_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() Timeouts {
	return Timeouts{
		ProviderCall:      parseDuration("DIP_TIMEOUT_PROVIDER_CALL", 60*time.Second),
		SSHCommand:        parseDuration("DIP_TIMEOUT_SSH_COMMAND", 300*time.Second),
		HelmInstall:       parseDuration("DIP_TIMEOUT_HELM_INSTALL", 10*time.Minute),
		K3sReady:          parseDuration("DIP_TIMEOUT_K3S_READY", 10*time.Minute),
		RetryMaxAttempts:  parseInt("DIP_RETRY_MAX_ATTEMPTS", 6),
		RetryInitialDelay: parseDuration("DIP_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
