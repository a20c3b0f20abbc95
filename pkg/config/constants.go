package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "GHOSTPASS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv          = "GHOSTPASS_APP_ENV"
	EnvPort            = "GHOSTPASS_APP_PORT"
	EnvEnvironmentMode = "GHOSTPASS_ENVIRONMENT_MODE"
	EnvDBDSN           = "GHOSTPASS_DB_DSN"
	EnvDBHost          = "GHOSTPASS_DB_HOST"
	EnvDBUser          = "GHOSTPASS_DB_USER"
	EnvDBName          = "GHOSTPASS_DB_NAME"
	EnvRedisURL        = "GHOSTPASS_REDIS_URL"
	EnvGCPProjectID    = "GHOSTPASS_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
