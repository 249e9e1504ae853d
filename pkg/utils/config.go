package utils

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Booking      BookingConfig
	Subscription SubscriptionConfig
	Email        EmailConfig
	Broker       BrokerConfig
	RateLimit    RateLimitConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host        string
	Port        string
	Name        string
	User        string
	Password    string
	SSLMode     string
	MaxConns    int32
	AutoMigrate bool
}

type BookingConfig struct {
	ArrivalWindow        time.Duration
	ExpiredArrivalPolicy string
	SweepSchedule        string
	NotificationTimeout  time.Duration
}

type SubscriptionConfig struct {
	TrialDays         int
	TrialBookingLimit int
	BasicLimit        int
	ProLimit          int
}

type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

type BrokerConfig struct {
	URL      string
	Exchange string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

const (
	ArrivalPolicyHold   = "hold"
	ArrivalPolicyCancel = "cancel"
)

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "nurse-booking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_AUTO_MIGRATE", false)
	viper.SetDefault("BOOKING_ARRIVAL_WINDOW", "5m")
	viper.SetDefault("BOOKING_EXPIRED_ARRIVAL_POLICY", ArrivalPolicyHold)
	viper.SetDefault("BOOKING_SWEEP_SCHEDULE", "@every 1m")
	viper.SetDefault("BOOKING_NOTIFICATION_TIMEOUT", "10s")
	viper.SetDefault("SUBSCRIPTION_TRIAL_DAYS", 14)
	viper.SetDefault("SUBSCRIPTION_TRIAL_BOOKING_LIMIT", 5)
	viper.SetDefault("SUBSCRIPTION_BASIC_LIMIT", 20)
	viper.SetDefault("SUBSCRIPTION_PRO_LIMIT", 60)
	viper.SetDefault("EMAIL_FROM_NAME", "Nurse Booking")
	viper.SetDefault("AMQP_EXCHANGE", "bookings")
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)

	if err := viper.ReadInConfig(); err != nil {
		// Running from plain environment variables is fine
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:        viper.GetString("DB_HOST"),
			Port:        viper.GetString("DB_PORT"),
			Name:        viper.GetString("DB_NAME"),
			User:        viper.GetString("DB_USER"),
			Password:    viper.GetString("DB_PASS"),
			SSLMode:     viper.GetString("DB_SSLMODE"),
			MaxConns:    viper.GetInt32("DB_MAX_CONNS"),
			AutoMigrate: viper.GetBool("DB_AUTO_MIGRATE"),
		},
		Booking: BookingConfig{
			ArrivalWindow:        viper.GetDuration("BOOKING_ARRIVAL_WINDOW"),
			ExpiredArrivalPolicy: viper.GetString("BOOKING_EXPIRED_ARRIVAL_POLICY"),
			SweepSchedule:        viper.GetString("BOOKING_SWEEP_SCHEDULE"),
			NotificationTimeout:  viper.GetDuration("BOOKING_NOTIFICATION_TIMEOUT"),
		},
		Subscription: SubscriptionConfig{
			TrialDays:         viper.GetInt("SUBSCRIPTION_TRIAL_DAYS"),
			TrialBookingLimit: viper.GetInt("SUBSCRIPTION_TRIAL_BOOKING_LIMIT"),
			BasicLimit:        viper.GetInt("SUBSCRIPTION_BASIC_LIMIT"),
			ProLimit:          viper.GetInt("SUBSCRIPTION_PRO_LIMIT"),
		},
		Email: EmailConfig{
			SendGridAPIKey: viper.GetString("SENDGRID_API_KEY"),
			FromEmail:      viper.GetString("EMAIL_FROM"),
			FromName:       viper.GetString("EMAIL_FROM_NAME"),
		},
		Broker: BrokerConfig{
			URL:      viper.GetString("AMQP_URL"),
			Exchange: viper.GetString("AMQP_EXCHANGE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             viper.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the booking engine cannot run with.
func (c *Config) Validate() error {
	if c.Booking.ArrivalWindow <= 0 {
		return errors.New("BOOKING_ARRIVAL_WINDOW must be positive")
	}
	switch c.Booking.ExpiredArrivalPolicy {
	case ArrivalPolicyHold, ArrivalPolicyCancel:
	default:
		return errors.New("BOOKING_EXPIRED_ARRIVAL_POLICY must be hold or cancel")
	}
	if c.Subscription.TrialBookingLimit < 1 || c.Subscription.BasicLimit < 1 || c.Subscription.ProLimit < 1 {
		return errors.New("subscription booking limits must be at least 1")
	}
	return nil
}
