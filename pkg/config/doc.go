// Package config loads the plugin host configuration from environment
// variables, optionally seeded from a .env file.
//
// # Configuration Structure
//
// Plugin settings:
//
//	PLUGINHOST_BUILD="231.9011"
//	PLUGINHOST_CORE_ID="core"
//	PLUGINHOST_BUNDLED_DIRS="/opt/host/plugins"
//	PLUGINHOST_PLUGIN_DIRS="~/.pluginhost/plugins:./plugins"
//	PLUGINHOST_ONLY_IDS="org.example.git,org.example.vcs"
//	PLUGINHOST_ONLY_CATEGORY="VCS"
//	PLUGINHOST_DISABLE_EXTERNAL="false"
//
// Disabled-id store:
//
//	PLUGINHOST_STORE_TYPE="file"  # file, redis, sqlite, postgres
//	PLUGINHOST_STORE_PATH="~/.config/pluginhost/disabled_plugins.txt"
//	PLUGINHOST_REDIS_URL="redis://localhost:6379/0"
//	PLUGINHOST_DATABASE_URL="postgres://localhost/pluginhost?sslmode=disable"
//
// Server and observability:
//
//	PLUGINHOST_HTTP_ADDR="127.0.0.1:8080"
//	PLUGINHOST_LOG_LEVEL="info"  # debug, info, warn, error
//	PLUGINHOST_LOG_FORMAT="text" # text, json
//	PLUGINHOST_METRICS_ENABLED="true"
//	PLUGINHOST_OTEL_ENABLED="true"
//	PLUGINHOST_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	if err := config.LoadDotEnv(); err != nil {
//		log.Fatal(err)
//	}
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Related Packages
//
//   - pkg/disabled: Uses store configuration
//   - pkg/observability: Uses observability configuration
package config
