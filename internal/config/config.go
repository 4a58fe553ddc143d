package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"

	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver               string `env:"DB_DRIVER" envDefault:"mysql"`
	DBUser                 string `env:"DB_USER,required"`
	DBPassword             string `env:"DB_PASSWORD,required"`
	DBHost                 string `env:"DB_HOST,required"` // e.g. tcp(host:3306), unix(/cloudsql/instance) or a plain host
	DBName                 string `env:"DB_NAME,required"`
	DBPort                 string `env:"DB_PORT"`
	DBSSLMode              string `env:"DB_SSLMODE" envDefault:"disable"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	MigrateOnStart         bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	AuthProvider      string        `env:"AUTH_PROVIDER" envDefault:"jwt"`
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTTTL            time.Duration `env:"JWT_TTL" envDefault:"24h"`
	FirebaseProjectID string        `env:"FIREBASE_PROJECT_ID"`

	// GCPCredentialsJSON is a service account key; empty means application default credentials.
	GCPCredentialsJSON string `env:"GCP_CREDENTIALS_JSON"`
	StorageBucket      string `env:"STORAGE_BUCKET"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	BanCacheTTL   time.Duration `env:"BAN_CACHE_TTL" envDefault:"10m"`

	NATSURL string `env:"NATS_URL"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	CORSOriginSuffix string `env:"CORS_ORIGIN_SUFFIX" envDefault:"vercel.app"`

	GitSHA    string `env:"GIT_SHA"`
	BuildTime string `env:"BUILD_TIME"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL:
		if c.DBPort == "" {
			c.DBPort = "3306"
		}
	case DriverPostgres:
		if c.DBPort == "" {
			c.DBPort = "5432"
		}
	default:
		return errors.New("DB_DRIVER must be mysql or postgres")
	}
	switch c.AuthProvider {
	case AuthProviderJWT:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required for the jwt auth provider")
		}
	case AuthProviderFirebase:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required for the firebase auth provider")
		}
	default:
		return errors.New("AUTH_PROVIDER must be jwt or firebase")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
