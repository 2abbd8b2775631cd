// Package env exposes the environment variables crawlcore's CLI honors as
// defaults for its flags, rather than a general-purpose env-var utility.
package env

import (
	"os"
	"strconv"
)

// Concurrency reads CRAWL_CONCURRENCY as the default worker pool size,
// falling back to defaultVal when unset or unparseable.
func Concurrency(defaultVal int) int {
	return getEnvAsInt("CRAWL_CONCURRENCY", defaultVal)
}

// UserAgent reads CRAWL_USER_AGENT as the default User-Agent header,
// falling back to defaultVal when unset.
func UserAgent(defaultVal string) string {
	return getEnv("CRAWL_USER_AGENT", defaultVal)
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}
