package app

import (
	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/repository/db"
	"chat-relay/internal/service/llm"
	"chat-relay/internal/service/relay"
)

// Config holds all application dependencies and configuration
type Config struct {
	// Database interface for data persistence
	DB db.Database
	// Centralized application configuration
	AppConfig *config.AppConfig
	// Upstream adapters by provider tag
	Providers *llm.Registry
	// Relay streams upstream completions to clients
	Relay *relay.Relay
	// Passwords decides how new passwords are stored
	Passwords auth.Passwords
}

// NewConfig wires the default providers and relay from appConfig
func NewConfig(database db.Database, appConfig *config.AppConfig) *Config {
	return &Config{
		DB:        database,
		AppConfig: appConfig,
		Providers: llm.NewRegistry(&appConfig.LLM),
		Relay: relay.NewRelay(
			relay.NewHTTPClient(appConfig.LLM.ConnectTimeout),
			appConfig.Server.KeepAliveInterval,
		),
		Passwords: auth.Passwords{Hash: appConfig.Auth.HashPasswords},
	}
}

// ModelsConfig returns the model catalog
func (c *Config) ModelsConfig() *config.ModelsConfig {
	return c.AppConfig.Models
}
