package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/controller"
	"payment-gateway-service/internal/exchange"
	"payment-gateway-service/internal/middleware"
	"payment-gateway-service/internal/provider"
	"payment-gateway-service/internal/rabbit"
	"payment-gateway-service/internal/repository"
	"payment-gateway-service/internal/service"
)

func main() {
	// Credenciales de los proveedores en un archivo .env
	godotenv.Load()
	cfg := config.Load()

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(cfg.MongoDBName)

	// Conexión a RabbitMQ
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("Error conectando a RabbitMQ: %v", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("Error creando canal en RabbitMQ: %v", err)
	}

	publisher, err := rabbit.NewStatusPublisher(ch)
	if err != nil {
		log.Fatalf("Error declarando exchange de estados: %v", err)
	}

	// Repositorio y servicios
	repo := repository.NewMongoOrderRepository(db)
	orderService := service.NewOrderService(repo, publisher)
	rates := exchange.NewRateCache(cfg.RateSourceURL)

	// Un adaptador por pasarela. Las URLs de webhook y retorno se arman
	// sobre la URL pública del backend.
	adapters := []provider.Adapter{
		provider.NewFlowAdapter(
			cfg.FlowAPIKey, cfg.FlowSecretKey, cfg.FlowBaseURL,
			cfg.PublicBaseURL+"/api/flow-webhook",
			cfg.PublicBaseURL+"/flow-success",
		),
		provider.NewMercadoPagoAdapter(
			cfg.MPAccessToken, cfg.MPBaseURL,
			cfg.PublicBaseURL+"/api/mercadopago-webhook",
			cfg.PublicBaseURL+"/mercadopago-success",
			cfg.PublicBaseURL+"/mercadopago-failure",
			cfg.PublicBaseURL+"/mercadopago-pending",
		),
		provider.NewPayPalAdapter(
			cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalBaseURL,
			cfg.PublicBaseURL+"/paypal-success",
			cfg.PublicBaseURL+"/paypal-failure",
			rates,
		),
		provider.NewCoinbaseAdapter(
			cfg.CoinbaseAPIKey, cfg.CoinbaseBaseURL,
			cfg.PublicBaseURL+"/coinbase-success",
			cfg.PublicBaseURL+"/coinbase-failure",
			rates,
		),
	}

	// Handlers
	ctrl := controller.NewPaymentController(orderService, rates,
		cfg.StoreSuccessURL, cfg.StoreFailureURL, cfg.StorePendingURL)

	// Router
	r := gin.Default()
	r.Use(middleware.CORS())

	// Rutas por proveedor: creación, webhook y retornos del navegador
	for _, ad := range adapters {
		ctrl.Register(ad)
		name := ad.Name()

		r.POST("/api/"+name+"-order", ctrl.CreateOrder(ad))
		r.POST("/api/"+name+"-webhook", ctrl.Webhook(ad))

		r.GET("/"+name+"-success", ctrl.Success(ad))
		r.POST("/"+name+"-success", ctrl.Success(ad))
		r.GET("/"+name+"-failure", ctrl.Failure(ad))
		r.POST("/"+name+"-failure", ctrl.Failure(ad))
		r.GET("/"+name+"-pending", ctrl.Pending(ad))
		r.POST("/"+name+"-pending", ctrl.Pending(ad))
	}

	r.GET("/api/payment-status/:provider/:id", ctrl.PaymentStatus)
	r.GET("/api/orders/:status", ctrl.ListOrdersByStatus)
	r.GET("/api/exchange-rate", ctrl.ExchangeRate)

	rabbit.SetupConsumers(ch, orderService)

	// Ejecutar servidor
	log.Printf("Payment Gateway Service ejecutándose en puerto %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
