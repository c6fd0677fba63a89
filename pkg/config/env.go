package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvLowStockThreshold  = "STOREFRONT_LOW_STOCK_THRESHOLD"
	EnvGuestLinkSecret    = "STOREFRONT_GUEST_LINK_SECRET"
	EnvGuestLinkTTL       = "STOREFRONT_GUEST_LINK_TTL"
	EnvAwaitingPaymentTTL = "STOREFRONT_AWAITING_PAYMENT_TTL"
	EnvAnonymousCartTTL   = "STOREFRONT_ANONYMOUS_CART_TTL"

	EnvGCPProjectID      = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "STOREFRONT_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubOrderAlerts = "STOREFRONT_PUBSUB_ORDER_ALERTS_SUBSCRIPTION"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
