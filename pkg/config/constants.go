package config

const (
	// EnvPrefix is intentionally empty; every field names its variable in full.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MORTARLINE_DB_DSN"
	EnvDBHost = "MORTARLINE_DB_HOST"
	EnvDBUser = "MORTARLINE_DB_USER"
	EnvDBName = "MORTARLINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
