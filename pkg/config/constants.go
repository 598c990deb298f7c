package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix only matters for unannotated fields.
const EnvPrefix = "RAPIDUS"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "RAPIDUS_APP_ENV"
	EnvPort   = "RAPIDUS_APP_PORT"

	EnvDBDSN  = "RAPIDUS_DB_DSN"
	EnvDBHost = "RAPIDUS_DB_HOST"
	EnvDBUser = "RAPIDUS_DB_USER"
	EnvDBName = "RAPIDUS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
