package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	ZoneAreaModeLegacy   = "legacy"
	ZoneAreaModeShoelace = "shoelace"

	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvDBHost             = "STOREFRONT_DB_HOST"
	EnvDBUser             = "STOREFRONT_DB_USER"
	EnvDBName             = "STOREFRONT_DB_NAME"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvJWTSecret          = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer          = "STOREFRONT_JWT_ISSUER"
	EnvUseSQLite          = "STOREFRONT_USE_SQLITE"
	EnvDeliveryDefaultFee = "STOREFRONT_DELIVERY_DEFAULT_FEE"
	EnvZoneAreaMode       = "STOREFRONT_ZONE_AREA_MODE"
	EnvPromotionsTimeZone = "STOREFRONT_PROMOTIONS_TIMEZONE"
	EnvRealtimeURL        = "STOREFRONT_REALTIME_URL"
	EnvReconcileInterval  = "STOREFRONT_PRESENCE_RECONCILE_INTERVAL"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
