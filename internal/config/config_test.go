package config

import (
	"os"
	"testing"
	"time"
)

var allEnvVars = []string{
	"HOST", "PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "ENVIRONMENT",
	"DB_DRIVER", "DB_PATH", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME",
	"REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"REDIS_MIN_IDLE_CONNS", "REDIS_MAX_RETRIES", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
	"REDIS_BREAKER_FAILURES", "REDIS_BREAKER_TIMEOUT",
	"SESSION_SECRET", "SESSION_TTL", "SESSION_COOKIE", "BCRYPT_COST", "AUTH_USERS",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_RPM", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
}

func setEnvVars(vars map[string]string) {
	for k, v := range vars {
		os.Setenv(k, v)
	}
}

func clearEnvVars(vars []string) {
	for _, k := range vars {
		os.Unsetenv(k)
	}
}

func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	clearEnvVars(allEnvVars)
	setEnvVars(vars)
	t.Cleanup(func() {
		clearEnvVars(allEnvVars)
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	withEnv(t, nil)

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error with default config, got: %v", err)
	}

	if config.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got %s", config.Server.Host)
	}

	if config.Server.Port != "5000" {
		t.Errorf("Expected default port '5000', got %s", config.Server.Port)
	}

	if config.Server.Environment != "development" {
		t.Errorf("Expected default environment 'development', got %s", config.Server.Environment)
	}

	if config.Database.Driver != "sqlite" {
		t.Errorf("Expected default DB driver 'sqlite', got %s", config.Database.Driver)
	}

	if config.Database.Path != "todo.db" {
		t.Errorf("Expected default DB path 'todo.db', got %s", config.Database.Path)
	}

	if config.Database.MaxOpenConns != 25 {
		t.Errorf("Expected default max open conns 25, got %d", config.Database.MaxOpenConns)
	}

	if config.Redis.Enabled {
		t.Error("Expected Redis to be disabled by default")
	}

	if config.Redis.BreakerMaxFailures != 5 || config.Redis.BreakerTimeout != 30*time.Second {
		t.Errorf("Unexpected breaker defaults: %d %v", config.Redis.BreakerMaxFailures, config.Redis.BreakerTimeout)
	}

	if config.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("Expected default session TTL 24h, got %v", config.Auth.SessionTTL)
	}

	if config.Auth.CookieName != "todo_session" {
		t.Errorf("Expected default cookie name 'todo_session', got %s", config.Auth.CookieName)
	}

	if config.Auth.BCryptCost != 10 {
		t.Errorf("Expected default bcrypt cost 10, got %d", config.Auth.BCryptCost)
	}

	if len(config.Auth.Users) != 2 {
		t.Fatalf("Expected 2 default users, got %d", len(config.Auth.Users))
	}

	if config.Auth.Users[0].Username != "user1" || config.Auth.Users[1].Username != "user2" {
		t.Errorf("Unexpected default users: %+v", config.Auth.Users)
	}

	if !config.RateLimit.Enabled {
		t.Error("Expected rate limiting to be enabled by default")
	}
}

func TestLoadConfig_CustomEnvironment(t *testing.T) {
	withEnv(t, map[string]string{
		"PORT":                 "9090",
		"DB_DRIVER":            "postgres",
		"DB_HOST":              "db.internal",
		"REDIS_ENABLED":        "true",
		"REDIS_HOST":           "cache.internal",
		"SESSION_TTL":          "2h",
		"AUTH_USERS":           "alice:secret1, bob:secret2",
		"RATE_LIMIT_RPM":       "60",
		"CORS_ALLOWED_ORIGINS": "http://localhost:3000, https://todo.example.com",
	})

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Server.Port != "9090" {
		t.Errorf("Expected port '9090', got %s", config.Server.Port)
	}

	if config.Database.Driver != "postgres" {
		t.Errorf("Expected driver 'postgres', got %s", config.Database.Driver)
	}

	if !config.Redis.Enabled {
		t.Error("Expected Redis to be enabled")
	}

	if config.GetRedisAddr() != "cache.internal:6379" {
		t.Errorf("Expected redis addr 'cache.internal:6379', got %s", config.GetRedisAddr())
	}

	if config.Auth.SessionTTL != 2*time.Hour {
		t.Errorf("Expected session TTL 2h, got %v", config.Auth.SessionTTL)
	}

	if len(config.Auth.Users) != 2 || config.Auth.Users[1].Username != "bob" || config.Auth.Users[1].Password != "secret2" {
		t.Errorf("Unexpected users: %+v", config.Auth.Users)
	}

	if config.RateLimit.RequestsPerMin != 60 {
		t.Errorf("Expected 60 requests per minute, got %d", config.RateLimit.RequestsPerMin)
	}

	if len(config.CORS.AllowedOrigins) != 2 || config.CORS.AllowedOrigins[1] != "https://todo.example.com" {
		t.Errorf("Unexpected CORS origins: %v", config.CORS.AllowedOrigins)
	}
}

func TestLoadConfig_UnsupportedDriver(t *testing.T) {
	withEnv(t, map[string]string{"DB_DRIVER": "mysql"})

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestLoadConfig_ProductionValidation(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{
			name: "postgres without password",
			env: map[string]string{
				"ENVIRONMENT":    "production",
				"DB_DRIVER":      "postgres",
				"SESSION_SECRET": "secure-secret",
				"AUTH_USERS":     "admin:strong",
			},
			expected: "database password is required in production",
		},
		{
			name: "default session secret",
			env: map[string]string{
				"ENVIRONMENT": "production",
				"AUTH_USERS":  "admin:strong",
			},
			expected: "session secret must be set in production",
		},
		{
			name: "default credential list",
			env: map[string]string{
				"ENVIRONMENT":    "production",
				"SESSION_SECRET": "secure-secret",
			},
			expected: "AUTH_USERS must be set in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.env)

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("Expected error in production")
			}

			if err.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, err.Error())
			}
		})
	}
}

func TestParseCredentials(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		count   int
		wantErr bool
	}{
		{name: "two users", raw: "user1:password123,user2:password456", count: 2},
		{name: "password with colon", raw: "user1:pa:ss", count: 1},
		{name: "trailing comma", raw: "user1:pw,", count: 1},
		{name: "empty list", raw: "", count: 0},
		{name: "missing separator", raw: "user1", wantErr: true},
		{name: "empty password", raw: "user1:", wantErr: true},
		{name: "empty username", raw: ":pw", wantErr: true},
		{name: "duplicate username", raw: "user1:a,user1:b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := ParseCredentials(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(creds) != tt.count {
				t.Errorf("Expected %d credentials, got %d", tt.count, len(creds))
			}
		})
	}

	creds, _ := ParseCredentials("user1:pa:ss")
	if creds[0].Password != "pa:ss" {
		t.Errorf("Expected password 'pa:ss', got %s", creds[0].Password)
	}
}

func TestConfig_GetDatabaseDSN(t *testing.T) {
	config := &Config{
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "secret",
			Name:     "todo",
			SSLMode:  "disable",
		},
	}

	expected := "host=localhost port=5432 user=postgres password=secret dbname=todo sslmode=disable"
	if dsn := config.GetDatabaseDSN(); dsn != expected {
		t.Errorf("Expected DSN %s, got %s", expected, dsn)
	}

	config.Database.Driver = "sqlite"
	config.Database.Path = "/var/lib/todo/todo.db"
	if dsn := config.GetDatabaseDSN(); dsn != "/var/lib/todo/todo.db" {
		t.Errorf("Expected sqlite path DSN, got %s", dsn)
	}
}

func TestConfig_GetServerAddr(t *testing.T) {
	config := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: "5000"}}

	if addr := config.GetServerAddr(); addr != "127.0.0.1:5000" {
		t.Errorf("Expected '127.0.0.1:5000', got %s", addr)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		expected    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			config := &Config{Server: ServerConfig{Environment: tt.environment}}
			if result := config.IsProduction(); result != tt.expected {
				t.Errorf("Expected IsProduction() = %v for %q, got %v", tt.expected, tt.environment, result)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "15s")
	defer os.Unsetenv("TEST_DURATION")

	if d := getEnvAsDuration("TEST_DURATION", time.Minute); d != 15*time.Second {
		t.Errorf("Expected 15s, got %v", d)
	}

	os.Setenv("TEST_DURATION", "not-a-duration")
	if d := getEnvAsDuration("TEST_DURATION", time.Minute); d != time.Minute {
		t.Errorf("Expected fallback 1m, got %v", d)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	os.Setenv("TEST_BOOL", "false")
	defer os.Unsetenv("TEST_BOOL")

	if getEnvAsBool("TEST_BOOL", true) {
		t.Error("Expected false")
	}

	os.Setenv("TEST_BOOL", "maybe")
	if !getEnvAsBool("TEST_BOOL", true) {
		t.Error("Expected fallback true for invalid value")
	}
}
