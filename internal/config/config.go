package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port           int      `koanf:"port"`
		AllowedOrigins []string `koanf:"allowed_origins"`
		StaticDir      string   `koanf:"static_dir"`
	} `koanf:"server"`

	Auth struct {
		// TokenSecret enables the caller-token gate on status queries
		// when non-empty (HS256). An unauthenticated caller is then
		// answered as if they held no licence.
		TokenSecret string `koanf:"token_secret"`
		// AdminPasswordHash is the bcrypt hash checked against
		// X-Admin-Password on grant requests.
		AdminPasswordHash string `koanf:"admin_password_hash"`
	} `koanf:"auth"`

	Decay struct {
		Timezone   string `koanf:"timezone"`
		RunOnStart bool   `koanf:"run_on_start"`
	} `koanf:"decay"`

	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":            8080,
		"server.allowed_origins": []string{"*"},
		"server.static_dir":      "public",
		"decay.timezone":         "Local",
		"decay.run_on_start":     true,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations
		defaultPaths := []string{"./licenced.toml", "$HOME/.licenced.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix LICENCED_. A double
	// underscore delimits sections, so key names keep their single
	// underscores: LICENCED_SERVER__ALLOWED_ORIGINS -> server.allowed_origins.
	k.Load(env.Provider("LICENCED_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "LICENCED_")), "__", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	// Create sample configuration
	sampleConfig := `# licenced configuration

[server]
port = 8080
# Origins allowed to query licence status from a browser.
allowed_origins = ["*"]
# Directory of static files served at /, e.g. the client bundle.
static_dir = "public"

[auth]
# HS256 secret for caller tokens. Empty disables the gate.
token_secret = ""
# bcrypt hash of the admin password required to create grants.
# Generate one with: htpasswd -bnBC 10 "" <password> | tr -d ':'
admin_password_hash = ""

[decay]
# IANA timezone for the midnight decay sweep. "Local" = server time.
timezone = "Local"
# Run a reconciling sweep immediately on startup.
run_on_start = true

[database]
# Falls back to DATABASE_URL from the environment or a .env file.
url = ""
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", config.Server.Port)
	}

	if h := config.Auth.AdminPasswordHash; h != "" && !strings.HasPrefix(h, "$2") {
		return fmt.Errorf("auth admin_password_hash does not look like a bcrypt hash")
	}

	for _, origin := range config.Server.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("server allowed_origins contains an empty entry")
		}
	}

	return nil
}
