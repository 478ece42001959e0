package config

import (
	"testing"

	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
	}{
		{"missing bot token", func(c *Configuration) { c.Telegram.BotToken = "" }},
		{"missing channel id", func(c *Configuration) { c.Telegram.ChannelID = 0 }},
		{"missing admin id", func(c *Configuration) { c.Admin.AdminID = 0 }},
		{"non-positive reconcile interval", func(c *Configuration) { c.Subscription.ReconcileInterval = 0 }},
		{"unknown retirement mode", func(c *Configuration) { c.Subscription.RetirementMode = "archive" }},
		{"relay enabled with zero size cap", func(c *Configuration) { c.Relay.MaxFileSizeMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, ierr.IsValidation(err))
		})
	}
}

func TestValidateRelayDisabledSkipsSizeCap(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Relay.Enabled = false
	cfg.Relay.MaxFileSizeMB = 0
	assert.NoError(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "gate",
		Password: "secret",
		DBName:   "channelgate",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=gate password=secret dbname=channelgate sslmode=require",
		cfg.DSN())
}
