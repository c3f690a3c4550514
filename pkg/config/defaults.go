// Package config provides centralized default values for the joshbot gateway
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

// getEnvSecret reads a value without echoing it to the log.
func getEnvSecret(key string) string {
	return os.Getenv(key)
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	AllowedOrigins     []string

	// Admission Configuration (both tiers are per visitor key)
	BurstLimit  int
	BurstWindow time.Duration
	DailyLimit  int
	DailyWindow time.Duration

	// Conversation Configuration
	MaxMessageChars            int
	MaxConversationsPerVisitor int
	MaxStoredTurns             int
	VisitorTurnLimit           int
	HistoryTurns               int
	ConversationTTL            time.Duration

	// Cleanup Intervals
	CleanupInterval time.Duration
	CleanupVerbose  bool

	// LLM Provider Configuration
	AnthropicAPIKey  string
	AnthropicBaseURL string
	LLMModel         string
	LLMMaxTokens     int
	LLMTimeout       time.Duration

	// Durable Store Configuration
	RedisURL   string
	AuditDBURL string

	// Alerting Configuration
	ResendAPIKey   string
	AlertEmailTo   string
	AlertEmailFrom string

	// Ops Configuration
	SysOpPasswordHash string
	JWTSecret         string
	SysOpTokenTTL     time.Duration
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	// Write timeout must cover a full model stream, not a single response write
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	if origins := getEnvString("ALLOWED_ORIGINS", ""); origins != "" {
		AllowedOrigins = strings.Split(origins, ",")
		for i := range AllowedOrigins {
			AllowedOrigins[i] = strings.TrimSpace(AllowedOrigins[i])
		}
	}

	// Admission
	BurstLimit = getEnvInt("RATE_BURST_LIMIT", 10)
	BurstWindow = getEnvDuration("RATE_BURST_WINDOW", 60*time.Second)
	DailyLimit = getEnvInt("RATE_DAILY_LIMIT", 100)
	DailyWindow = getEnvDuration("RATE_DAILY_WINDOW", 24*time.Hour)

	// Conversations
	MaxMessageChars = getEnvInt("MAX_MESSAGE_CHARS", 2000)
	MaxConversationsPerVisitor = getEnvInt("MAX_CONVERSATIONS_PER_VISITOR", 5)
	MaxStoredTurns = getEnvInt("MAX_STORED_TURNS", 40)
	VisitorTurnLimit = getEnvInt("VISITOR_TURN_LIMIT", 20)
	HistoryTurns = getEnvInt("HISTORY_TURNS", 10)
	ConversationTTL = getEnvDuration("CONVERSATION_TTL", 1*time.Hour)

	// Cleanup
	CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 5*time.Minute)
	CleanupVerbose = getEnvBool("CLEANUP_VERBOSE", false)

	// LLM Provider
	AnthropicAPIKey = getEnvSecret("ANTHROPIC_API_KEY")
	AnthropicBaseURL = getEnvString("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1")
	LLMModel = getEnvString("LLM_MODEL", "claude-3-5-haiku-20241022")
	LLMMaxTokens = getEnvInt("LLM_MAX_TOKENS", 350)
	LLMTimeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)

	// Durable stores (absence degrades to in-memory operation)
	RedisURL = getEnvSecret("REDIS_URL")
	AuditDBURL = getEnvSecret("AUDIT_DB_URL")

	// Alerting (absence disables email alerts)
	ResendAPIKey = getEnvSecret("RESEND_API_KEY")
	AlertEmailTo = getEnvString("ALERT_EMAIL_TO", "")
	AlertEmailFrom = getEnvString("ALERT_EMAIL_FROM", "alerts@joshbot.dev")

	// Ops
	SysOpPasswordHash = getEnvSecret("SYSOP_PASSWORD_HASH")
	JWTSecret = getEnvSecret("JWT_SECRET")
	SysOpTokenTTL = getEnvDuration("SYSOP_TOKEN_TTL", 12*time.Hour)
}
