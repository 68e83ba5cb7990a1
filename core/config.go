package core

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		AppName  string
		Build    string

		SecretKey          string
		FrontendBaseURL    string
		DefaultFromName    string
		DefaultFromAddress string

		SendgridApiKey string
		RollbarToken   string

		TokenExpirationDelta          time.Duration
		SessionExpirationDelta        time.Duration
		PasswordResetTimeoutDelta     time.Duration
		EmailVerificationTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}

	ServerConfig struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		StoreTimeout    time.Duration // bound on session store & DB round trips
	}

	DatabaseConfig struct {
		Host       string
		Port       int
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	RedisConfig struct {
		Host     string
		Port     int
		Password string
		DB       int
	}
)

// NewConfig loads the app configuration: defaults first, then an optional
// config/.env.<env> file, then environment variables prefixed with <ENV>_.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Elimu")
	v.SetDefault("secretKey", "w3+b$9t)qln#^z&0e(h!u7@dxr5_ym4kvp2gj*f8co6sa1i-(m")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Elimu")
	v.SetDefault("defaultFromAddress", "noreply@localhost")
	v.SetDefault("tokenExpirationDelta", 30*24*time.Hour)
	v.SetDefault("sessionExpirationDelta", 14*24*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("emailVerificationTimeoutDelta", 7*24*time.Hour)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 20*time.Second)
	v.SetDefault("server.storeTimeout", 3*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "elimu")
	v.SetDefault("database.user", "elimu")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	return conf, nil
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddress}
}

func (c *Config) TokenIssuer() string   { return c.AppName }
func (c *Config) TokenAudience() string { return c.AppName + ":api" }

func (sc ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", sc.Host, sc.Port)
}

func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}

func (rc RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", rc.Host, rc.Port)
}
