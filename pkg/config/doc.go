// Package config loads gateway configuration.
//
// Values come from built-in defaults, then an optional YAML file named by
// NOVO_CONFIG_FILE, then environment variables.
//
// # Environment
//
// Backend:
//
//	GRAPHQL_ENDPOINT="https://api.novo.example/graphql"  # required
//	NOVO_QUERY_CACHE_SIZE="512"
//	NOVO_QUERY_CACHE_TTL="5m"
//
// Server:
//
//	NOVO_HOST="0.0.0.0"
//	NOVO_PORT="8080"
//	NOVO_READ_TIMEOUT="15s"
//	NOVO_CORS_ORIGINS="https://app.novo.example"
//
// Sessions:
//
//	NOVO_SESSION_STORE="redis"  # memory, redis
//	NOVO_REDIS_URL="redis://localhost:6379/0"
//	NOVO_SESSION_MAX_AGE="24h"
//	NOVO_SESSION_REAP_SCHEDULE="*/15 * * * *"
//	NOVO_COOKIE_DOMAIN="novo.example"
//
// Observability:
//
//	NOVO_LOG_LEVEL="info"  # debug, info, warn, error
//	NOVO_METRICS_ENABLED="true"
//	NOVO_OTEL_ENABLED="true"
//	NOVO_OTEL_ENDPOINT="otel-collector:4317"
//
// # YAML
//
//	graphql:
//	  endpoint: https://api.novo.example/graphql
//	session:
//	  store: redis
//	  redis_url: redis://localhost:6379/0
//	rate_limit:
//	  requests: 20
//	  window: 1m
package config
