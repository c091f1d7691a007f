package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "RENTMOTO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "RENTMOTO_DB_DSN"
	EnvDBHost = "RENTMOTO_DB_HOST"
	EnvDBUser = "RENTMOTO_DB_USER"
	EnvDBName = "RENTMOTO_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
