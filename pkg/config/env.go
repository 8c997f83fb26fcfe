package config

const (
	EnvPrefix = "DMMEDIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                = "DMMEDIA_APP_ENV"
	EnvUploadEndpoint        = "DMMEDIA_UPLOAD_ENDPOINT"
	EnvUploadSegmentBytes    = "DMMEDIA_UPLOAD_SEGMENT_BYTES"
	EnvUploadPollInterval    = "DMMEDIA_UPLOAD_POLL_INTERVAL"
	EnvUploadPollMaxAttempts = "DMMEDIA_UPLOAD_POLL_MAX_ATTEMPTS"
	EnvUploadPollMaxWait     = "DMMEDIA_UPLOAD_POLL_MAX_WAIT"
	EnvAuthBearerToken       = "DMMEDIA_AUTH_BEARER_TOKEN"
	EnvRedisURL              = "DMMEDIA_REDIS_URL"
	EnvDBDSN                 = "DMMEDIA_DB_DSN"
	EnvDBHost                = "DMMEDIA_DB_HOST"
	EnvDBUser                = "DMMEDIA_DB_USER"
	EnvDBPassword            = "DMMEDIA_DB_PASSWORD"
	EnvDBName                = "DMMEDIA_DB_NAME"
	EnvMetricsAddr           = "DMMEDIA_METRICS_ADDR"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
