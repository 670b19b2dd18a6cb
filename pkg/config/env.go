package config

// EnvPrefix is empty because every field names its full variable.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "PUSHRELAY_APP_ENV"
	EnvPort      = "PUSHRELAY_APP_PORT"
	EnvDBDSN     = "PUSHRELAY_DB_DSN"
	EnvDBHost    = "PUSHRELAY_DB_HOST"
	EnvDBUser    = "PUSHRELAY_DB_USER"
	EnvDBName    = "PUSHRELAY_DB_NAME"
	EnvUseSQLite = "PUSHRELAY_USE_SQLITE"
	EnvRedisURL  = "PUSHRELAY_REDIS_URL"
	EnvJWTSecret = "PUSHRELAY_JWT_SECRET"
	EnvJWTIssuer = "PUSHRELAY_JWT_ISSUER"

	EnvFirebaseProjectID = "PUSHRELAY_FIREBASE_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
