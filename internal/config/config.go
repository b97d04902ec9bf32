package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	LogLevel   string
	LogFormat  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	LoginRateLimit int

	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "taskboard_user"),
		DBPassword: getEnv("DB_PASSWORD", "taskboard_pass"),
		DBName:     getEnv("DB_NAME", "taskboard_db"),

		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:       getEnv("JWT_SECRET", "supersecretkey"),
		AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 720)) * time.Hour,

		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT_PER_MINUTE", 5),

		Argon2Time:    uint32(getEnvInt("ARGON2_TIME_COST", 3)),
		Argon2Memory:  uint32(getEnvInt("ARGON2_MEMORY_KIB", 65536)),
		Argon2Threads: uint8(getEnvInt("ARGON2_PARALLELISM", 2)),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}
