package config

const (
	// EnvPrefix scopes every environment variable read by envconfig.
	EnvPrefix = "OPPDRAG"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "OPPDRAG_DB_DSN"
	EnvDBHost = "OPPDRAG_DB_HOST"
	EnvDBUser = "OPPDRAG_DB_USER"
	EnvDBName = "OPPDRAG_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
