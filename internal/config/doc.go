// Package config handles configuration loading for hearth.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion, then overlaid with a small set of environment overrides.
// A missing config file is fine: defaults plus environment variables are
// a complete configuration.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from HEARTH_CONFIG environment variable
//  2. ~/.config/hearth/hearth.yaml (XDG_CONFIG_HOME respected)
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	llm:
//	  api_key: "${OPENAI_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Environment Overrides
//
// Applied after the file is parsed, so they always win:
//
//	PORT                listen port (server.http_addr becomes ":$PORT")
//	OPENAI_API_KEY      completion API credential
//	HEARTH_STORAGE_DIR  conversation storage directory
//
// # Configuration Sections
//
// Server:
//
//	server:
//	  http_addr: ":3000"
//
// Storage:
//
//	storage:
//	  dir: "chat_storage"
//
// LLM:
//
//	llm:
//	  model: "gpt-3.5-turbo"
//	  temperature: 0.7
//	  max_tokens: 1000
//	  max_history: 0          # messages sent to the model, 0 = all
//	  request_timeout: "30s"
//	  system_prompt: "You are a helpful AI assistant. ..."
//	  api_key: "${OPENAI_API_KEY}"
//	  base_url: ""            # optional OpenAI-compatible endpoint
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "hearth"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: false
//	  funnel: false
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
