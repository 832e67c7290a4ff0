package config

// EnvPrefix is passed to envconfig; individual fields carry fully
// prefixed names so this stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "VISIONSCAN_APP_ENV"
	EnvDBDSN  = "VISIONSCAN_DB_DSN"
	EnvDBHost = "VISIONSCAN_DB_HOST"
	EnvDBUser = "VISIONSCAN_DB_USER"
	EnvDBName = "VISIONSCAN_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
