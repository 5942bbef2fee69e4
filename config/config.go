package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/advmx/rally-backend/internal/models"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
	}, nil
}

type StripeConfig struct {
	SecretKey string
	// Separate signing secrets for the platform-account endpoint and
	// the connected-accounts endpoint. Both feed the same reconciler.
	PlatformWebhookSecret  string
	ConnectedWebhookSecret string
	SuccessURL             string
	CancelURL              string
}

func LoadStripeConfig() (*StripeConfig, error) {
	cfg := &StripeConfig{
		SecretKey:              os.Getenv("STRIPE_SECRET"),
		PlatformWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_OWN_SECRET"),
		ConnectedWebhookSecret: os.Getenv("STRIPE_WEBHOOK_CONNECTED_SECRET"),
		SuccessURL:             os.Getenv("STRIPE_SUCCESS_URL"),
		CancelURL:              os.Getenv("STRIPE_CANCEL_URL"),
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET is not set")
	}
	return cfg, nil
}

type SMTPConfig struct {
	Host       string
	Port       string
	Username   string
	Password   string
	Sender     string
	SenderName string
}

func LoadSMTPConfig() (*SMTPConfig, error) {
	return &SMTPConfig{
		Host:       os.Getenv("SMTP_HOST"),
		Port:       os.Getenv("SMTP_PORT"),
		Username:   os.Getenv("SMTP_USERNAME"),
		Password:   os.Getenv("SMTP_PASSWORD"),
		Sender:     os.Getenv("SMTP_SENDER"),
		SenderName: os.Getenv("SMTP_SENDER_NAME"),
	}, nil
}

type PricingConfig struct {
	MinimumAmount decimal.Decimal
	FixedFee      decimal.Decimal
	ProcessorRate decimal.Decimal
	PlatformRate  decimal.Decimal
}

func LoadPricingConfig() (*PricingConfig, error) {
	return &PricingConfig{
		MinimumAmount: decimalEnv("PRICING_MINIMUM_AMOUNT", "150"),
		FixedFee:      decimalEnv("PRICING_FIXED_FEE", "3"),
		ProcessorRate: decimalEnv("PRICING_PROCESSOR_RATE", "0.036"),
		PlatformRate:  decimalEnv("PRICING_PLATFORM_RATE", "0.036"),
	}, nil
}

func decimalEnv(key, fallback string) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		raw = fallback
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		value, _ = decimal.NewFromString(fallback)
	}
	return value
}

func IntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.Profile{}, &models.Customer{}, &models.Route{},
		&models.Registration{}, &models.Coupon{}, &models.Income{},
		&models.Contact{}, &models.Checkpoint{}, &models.CheckIn{},
		&models.TrophyType{}, &models.Trophy{}, &models.Level{},
	)
	if err != nil {
		return nil, err
	}

	seedLevels(db)
	seedTrophyTypes(db)

	return db, nil
}

func seedLevels(db *gorm.DB) {
	levels := []models.Level{
		{Level: 1, Title: "Novato", XPRequired: 0},
		{Level: 2, Title: "Explorador", XPRequired: 500},
		{Level: 3, Title: "Aventurero", XPRequired: 1500},
		{Level: 4, Title: "Trotamundos", XPRequired: 3500},
		{Level: 5, Title: "Leyenda", XPRequired: 7000},
	}

	for _, level := range levels {
		var existing models.Level
		result := db.Where("level = ?", level.Level).First(&existing)
		if result.Error != nil {
			db.Create(&level)
		}
	}
}

func seedTrophyTypes(db *gorm.DB) {
	trophyTypes := []models.TrophyType{
		{Code: "first_checkin", Name: "Primer Check-in", Rarity: "common", XPReward: 50},
		{Code: "route_complete", Name: "Ruta Completa", Rarity: "rare", XPReward: 250},
		{Code: "early_bird", Name: "Madrugador", Rarity: "rare", XPReward: 100},
		{Code: "rally_legend", Name: "Leyenda del Rally", Rarity: "legendary", XPReward: 1000},
	}

	for _, trophyType := range trophyTypes {
		var existing models.TrophyType
		result := db.Where("code = ?", trophyType.Code).First(&existing)
		if result.Error != nil {
			db.Create(&trophyType)
		}
	}
}
