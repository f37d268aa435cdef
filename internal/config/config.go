// Package config reads runtime settings from the environment. A .env file
// next to the binary is loaded automatically.
package config

import (
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// Configured reports whether credentials are present.
func (s SMTP) Configured() bool {
	return s.User != "" && s.Pass != ""
}

type Settings struct {
	Port        string
	GinMode     string
	LogLevel    string
	DBPath      string
	ContentPath string
	PublicDir   string

	// TrustedProxies may set X-Forwarded-For; empty trusts none.
	TrustedProxies []string

	GitHubURL     string
	HeatmapTTL    time.Duration
	HeatmapEnable bool

	AdminUsername string
	AdminPassword string

	SMTP SMTP
}

// FromEnv builds Settings with the same defaults the site has always used
// in development.
func FromEnv() Settings {
	s := Settings{
		Port:          getenv("PORT", "8080"),
		GinMode:       os.Getenv("GIN_MODE"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		DBPath:        getenv("DB_PATH", "data/portfolio.db"),
		ContentPath:   os.Getenv("CONTENT_PATH"),
		PublicDir:     getenv("PUBLIC_DIR", "public"),
		GitHubURL:     getenv("GITHUB_BASE_URL", "https://github.com"),
		HeatmapTTL:    6 * time.Hour,
		HeatmapEnable: !isFalse(os.Getenv("HEATMAP_ENABLED")),
		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),
		SMTP: SMTP{
			Host: getenv("SMTP_HOST", "smtp.gmail.com"),
			Port: getenv("SMTP_PORT", "587"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			To:   getenv("TO_EMAIL", "miguellacruz.data@gmail.com"),
		},
	}
	for _, p := range strings.Split(os.Getenv("TRUSTED_PROXIES"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			s.TrustedProxies = append(s.TrustedProxies, p)
		}
	}
	if d, err := time.ParseDuration(os.Getenv("HEATMAP_TTL")); err == nil && d > 0 {
		s.HeatmapTTL = d
	}
	return s
}

// DefaultAdminCredentials reports whether the development credentials are
// still in use.
func (s Settings) DefaultAdminCredentials() bool {
	return os.Getenv("ADMIN_USERNAME") == "" || os.Getenv("ADMIN_PASSWORD") == ""
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func isFalse(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "off":
		return true
	}
	return false
}
