// config.go
package config

import "os"

type Config struct {
	Port        string
	MongoURI    string
	MongoDBName string
	RabbitURL   string

	// URL pública del backend, la usan los proveedores para webhooks y retornos
	PublicBaseURL string

	// URLs de la tienda a donde se redirige al navegador al terminar el pago
	StoreSuccessURL string
	StoreFailureURL string
	StorePendingURL string

	// Fuente del valor del dólar (mindicador.cl)
	RateSourceURL string

	FlowAPIKey    string
	FlowSecretKey string
	FlowBaseURL   string

	MPAccessToken string
	MPBaseURL     string

	PayPalClientID string
	PayPalSecret   string
	PayPalBaseURL  string

	CoinbaseAPIKey  string
	CoinbaseBaseURL string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "4000"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://host.docker.internal:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "payment_gateway_db"),
		RabbitURL:   getEnv("RABBIT_URL", "amqp://host.docker.internal"),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:4000"),

		StoreSuccessURL: getEnv("STORE_SUCCESS_URL", "https://tioflashstore.netlify.app/pago-exitoso"),
		StoreFailureURL: getEnv("STORE_FAILURE_URL", "https://tioflashstore.netlify.app/pago-fallido"),
		StorePendingURL: getEnv("STORE_PENDING_URL", "https://tioflashstore.netlify.app/pago-pendiente"),

		RateSourceURL: getEnv("RATE_SOURCE_URL", "https://mindicador.cl/api/dolar"),

		FlowAPIKey:    getEnv("FLOW_API_KEY", ""),
		FlowSecretKey: getEnv("FLOW_SECRET_KEY", ""),
		FlowBaseURL:   getEnv("FLOW_BASE_URL", "https://sandbox.flow.cl/api"),

		MPAccessToken: getEnv("MP_ACCESS_TOKEN", ""),
		MPBaseURL:     getEnv("MP_BASE_URL", "https://api.mercadopago.com"),

		PayPalClientID: getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalSecret:   getEnv("PAYPAL_SECRET", ""),
		PayPalBaseURL:  getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),

		CoinbaseAPIKey:  getEnv("COINBASE_API_KEY", ""),
		CoinbaseBaseURL: getEnv("COINBASE_BASE_URL", "https://api.commerce.coinbase.com"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
