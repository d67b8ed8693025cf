package config

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Store holds the document store configuration.
	Store StoreConfig `mapstructure:",squash"`

	// Events holds the event sink configuration.
	Events EventsConfig `mapstructure:",squash"`

	// Engine holds the assignment and tracking tunables.
	Engine EngineConfig `mapstructure:",squash"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Backend is the store implementation: memory, redis or postgres.
	Backend string `mapstructure:"STORE_BACKEND" default:"memory"`
	// RedisURL is the connection URL used when Backend is "redis".
	RedisURL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`
	// PostgresURL is the connection URL used when Backend is "postgres".
	PostgresURL string `mapstructure:"POSTGRES_URL" default:"postgres://localhost:5432/delivery"`
}

// EventsConfig configures the outbound notification sink.
type EventsConfig struct {
	// AMQPURL is the broker URL. When empty, events are written to the log only.
	AMQPURL string `mapstructure:"AMQP_URL" default:""`
	// AMQPExchange is the topic exchange events are published to.
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE" default:"delivery.events"`
}

// EngineConfig holds tunables for location ingestion and assignment.
type EngineConfig struct {
	// AccuracyLimitM is the GPS accuracy ceiling in meters. Samples above it
	// never trigger geofence evaluation.
	AccuracyLimitM float64 `mapstructure:"ACCURACY_LIMIT_M" default:"100"`
	// GeofenceRadiusM is the radius of pickup/delivery boundaries in meters.
	GeofenceRadiusM float64 `mapstructure:"GEOFENCE_RADIUS_M" default:"100"`
	// DefaultDriverCapacity is the maximum number of concurrent active
	// assignments for drivers whose profile does not state one.
	DefaultDriverCapacity int `mapstructure:"DEFAULT_DRIVER_CAPACITY" default:"1"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
