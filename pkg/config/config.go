package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Uploads       UploadsConfig
	Email         EmailConfig
	SMS           SMSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OPPDRAG_APP_ENV" default:"dev"`
	Port         string `envconfig:"OPPDRAG_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"OPPDRAG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OPPDRAG_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"OPPDRAG_AUTO_MIGRATE" default:"false"`

	WebsocketOrigins []string `envconfig:"OPPDRAG_WS_ORIGINS" default:"localhost:3000,localhost:19006,oppdrag.app"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"OPPDRAG_DB_DSN"`

	Host     string `envconfig:"OPPDRAG_DB_HOST"`
	Port     int    `envconfig:"OPPDRAG_DB_PORT" default:"5432"`
	User     string `envconfig:"OPPDRAG_DB_USER"`
	Password string `envconfig:"OPPDRAG_DB_PASSWORD"`
	Name     string `envconfig:"OPPDRAG_DB_NAME"`
	SSLMode  string `envconfig:"OPPDRAG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPPDRAG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPPDRAG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPPDRAG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPPDRAG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OPPDRAG_REDIS_URL"`
	Address      string        `envconfig:"OPPDRAG_REDIS_ADDR"`
	Password     string        `envconfig:"OPPDRAG_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPPDRAG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPPDRAG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPPDRAG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPPDRAG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPPDRAG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPPDRAG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"OPPDRAG_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"OPPDRAG_JWT_ISSUER" default:"oppdrag"`
	ExpirationMinutes int    `envconfig:"OPPDRAG_JWT_EXPIRATION_MINUTES" default:"10080"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"OPPDRAG_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"OPPDRAG_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"OPPDRAG_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"OPPDRAG_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"OPPDRAG_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	CodeWindow         time.Duration `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_CODE_WINDOW" default:"10m"`
	CodeEmailLimit     int           `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_CODE_EMAIL_LIMIT" default:"3"`
	CodeIPLimit        int           `envconfig:"OPPDRAG_AUTH_RATE_LIMIT_CODE_IP_LIMIT" default:"10"`
}

type UploadsConfig struct {
	BaseDir          string `envconfig:"OPPDRAG_UPLOADS_DIR" default:"uploads"`
	PublicBaseURL    string `envconfig:"OPPDRAG_UPLOADS_PUBLIC_BASE_URL" default:"/uploads"`
	MaxPDFSizeMB     int    `envconfig:"OPPDRAG_UPLOADS_MAX_PDF_MB" default:"10"`
	MaxChatFileSizeMB int   `envconfig:"OPPDRAG_UPLOADS_MAX_CHAT_MB" default:"5"`
}

// EmailConfig drives SMTP delivery. Leave Host empty for console demo mode.
type EmailConfig struct {
	Host     string `envconfig:"OPPDRAG_EMAIL_HOST"`
	Port     int    `envconfig:"OPPDRAG_EMAIL_PORT" default:"587"`
	Username string `envconfig:"OPPDRAG_EMAIL_USER"`
	Password string `envconfig:"OPPDRAG_EMAIL_PASS"`
	From     string `envconfig:"OPPDRAG_EMAIL_FROM" default:"noreply@oppdrag.app"`
}

// SMSConfig drives SMS delivery. Leave AccountSID empty for console demo mode.
type SMSConfig struct {
	AccountSID string `envconfig:"OPPDRAG_SMS_ACCOUNT_SID"`
	AuthToken  string `envconfig:"OPPDRAG_SMS_AUTH_TOKEN"`
	FromNumber string `envconfig:"OPPDRAG_SMS_FROM_NUMBER"`
	APIBaseURL string `envconfig:"OPPDRAG_SMS_API_BASE_URL" default:"https://api.twilio.com"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
