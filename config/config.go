package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port     int `json:"port" yaml:"port"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	// Supabase is the hosted backend every front end talks to.
	Supabase *SupabaseConfig `json:"supabase" yaml:"supabase"`

	// Captcha configures the Turnstile widget and the relay's verification.
	Captcha *CaptchaConfig `json:"captcha" yaml:"captcha"`

	// OAuth configures redirect-based sign-in flows.
	OAuth *OAuthConfig `json:"oauth" yaml:"oauth"`

	// Auth tunes local validation and session auto-refresh.
	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// Storage selects where avatar objects are written.
	Storage *StorageConfig `json:"storage" yaml:"storage"`
}

// SupabaseConfig identifies the hosted backend project.
type SupabaseConfig struct {
	URL           string `json:"url" yaml:"url"`
	AnonKey       string `json:"anonKey" yaml:"anonKey"`
	AvatarsBucket string `json:"avatarsBucket" yaml:"avatarsBucket"`
}

// CaptchaConfig holds the public site key (shipped to clients) and the
// server-side verification secret.
type CaptchaConfig struct {
	SiteKey   string `json:"siteKey" yaml:"siteKey"`
	Secret    string `json:"secret" yaml:"secret"`
	VerifyURL string `json:"verifyUrl" yaml:"verifyUrl"`
}

// OAuthConfig defines where redirect flows land.
type OAuthConfig struct {
	RedirectURL string `json:"redirectUrl" yaml:"redirectUrl"`
}

// AuthConfig defines authentication-related configuration.
type AuthConfig struct {
	MinPasswordLength   int           `json:"minPasswordLength" yaml:"minPasswordLength"`
	AutoRefreshMargin   time.Duration `json:"autoRefreshMargin" yaml:"autoRefreshMargin"`
	AutoRefreshInterval time.Duration `json:"autoRefreshInterval" yaml:"autoRefreshInterval"`
}

// StorageConfig selects the avatar uploader implementation.
type StorageConfig struct {
	// Provider is "supabase" for the hosted bucket or "local" for a
	// directory-backed bucket during development.
	Provider     string `json:"provider" yaml:"provider"`
	LocalDir     string `json:"localDir" yaml:"localDir"`
	LocalBaseURL string `json:"localBaseUrl" yaml:"localBaseUrl"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: SUPABASE_ANONKEY -> supabase.anonKey (not supabase.anonkey)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

// New loads and validates the configuration. A missing required value fails
// here, visibly, instead of silently disabling the feature at runtime.
func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if cfg.Supabase == nil || cfg.Supabase.URL == "" || cfg.Supabase.AnonKey == "" {
		return nil, errors.New("supabase.url and supabase.anonKey are required")
	}
	if cfg.Captcha == nil || cfg.Captcha.SiteKey == "" {
		return nil, errors.New("captcha.siteKey is required")
	}

	return cfg, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
