package assetshandler

import (
	"errors"
	"fmt"
	"os"
	"time"

	"farmer/app/pkg/assert"
	"farmer/app/pkg/utils/randx"

	"gopkg.in/yaml.v3"
)

// Default referral code. The fallback code defaults to the same value but is
// configured separately so the weighted choice always has two candidates.
const DefaultRefID = "cm91dGU9JTJGdGFwLWdhbWUlM0ZpbnZpdGVyVXNlcklkJTNEMzQyOTUyMTE3JTI2cmNvZGUlM0RRQlNXUUZVVg"

type Config struct {
	Core      core      `yaml:"core"`
	Http      http      `yaml:"http"`
	Backend   backend   `yaml:"backend"`
	Messaging messaging `yaml:"messaging"`
	Reserved  reserved  `yaml:"reserved"`
}

// SecondsRange is written in yaml as a two elements list: [min, max].
type SecondsRange [2]int

func (r SecondsRange) Duration() randx.Range[time.Duration] {
	return randx.Range[time.Duration]{
		Min: time.Duration(r[0]) * time.Second,
		Max: time.Duration(r[1]) * time.Second,
	}
}

type core struct {
	SleepTime           SecondsRange `yaml:"sleep_time_seconds"`
	StartDelay          SecondsRange `yaml:"start_delay_seconds"`
	TokenLifetime       SecondsRange `yaml:"token_lifetime_seconds"`
	ErrorBackoff        SecondsRange `yaml:"error_backoff_seconds"`
	RetryDelay          SecondsRange `yaml:"retry_delay_seconds"`
	AuthErrorDelay      int          `yaml:"auth_error_delay_seconds"`
	RefID               string       `yaml:"ref_id"`
	FallbackRefID       string       `yaml:"fallback_ref_id"`
	RefIDWeight         int          `yaml:"ref_id_weight"`
	FallbackRefIDWeight int          `yaml:"fallback_ref_id_weight"`
	StatusLogSeconds    int          `yaml:"status_log_seconds"`
}

type http struct {
	Timeout           int                    `yaml:"requests_timeout_seconds"`
	ProxyCheckUrl     string                 `yaml:"proxy_check_url"`
	ProxyCheckTimeout int                    `yaml:"proxy_check_timeout_seconds"`
	WarmupRequests    bool                   `yaml:"warmup_requests"`
	Headers           map[string]interface{} `yaml:"headers"`
}

type backend struct {
	BaseUrl string `yaml:"base_url"`
	Lang    string `yaml:"lang"`
}

type messaging struct {
	GatewayUrl   string `yaml:"gateway_url"`
	BotUsername  string `yaml:"bot_username"`
	AppShortName string `yaml:"app_short_name"`
	Platform     string `yaml:"platform"`
}

// Reserved for a richer action repertoire, validated but not used by the worker loop.
type reserved struct {
	MinEnergy  int    `yaml:"min_energy"`
	RandomTaps [2]int `yaml:"random_taps"`
}

func DefaultConfig() Config {
	return Config{
		Core: core{
			SleepTime:           SecondsRange{14400, 18000},
			StartDelay:          SecondsRange{5, 20},
			TokenLifetime:       SecondsRange{3500, 3600},
			ErrorBackoff:        SecondsRange{60, 120},
			RetryDelay:          SecondsRange{3, 7},
			AuthErrorDelay:      3,
			RefID:               DefaultRefID,
			FallbackRefID:       DefaultRefID,
			RefIDWeight:         40,
			FallbackRefIDWeight: 60,
			StatusLogSeconds:    60,
		},
		Http: http{
			ProxyCheckUrl:     "https://ipinfo.io/ip",
			ProxyCheckTimeout: 10,
			WarmupRequests:    true,
		},
		Backend: backend{
			BaseUrl: "https://www.kucoin.com",
			Lang:    "en_US",
		},
		Messaging: messaging{
			GatewayUrl:   "ws://127.0.0.1:8765/session",
			BotUsername:  "xkucoinbot",
			AppShortName: "kucoinminiapp",
			Platform:     "android",
		},
		Reserved: reserved{
			MinEnergy:  100,
			RandomTaps: [2]int{50, 200},
		},
	}
}

// ParseConfig decodes a yaml config on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	var errs []error

	ranges := []struct {
		name string
		r    SecondsRange
	}{
		{"core.sleep_time_seconds", c.Core.SleepTime},
		{"core.start_delay_seconds", c.Core.StartDelay},
		{"core.token_lifetime_seconds", c.Core.TokenLifetime},
		{"core.error_backoff_seconds", c.Core.ErrorBackoff},
		{"core.retry_delay_seconds", c.Core.RetryDelay},
		{"reserved.random_taps", SecondsRange(c.Reserved.RandomTaps)},
	}
	for _, item := range ranges {
		if item.r[0] < 0 || item.r[0] > item.r[1] {
			errs = append(errs, fmt.Errorf("%s: invalid range [%d, %d]", item.name, item.r[0], item.r[1]))
		}
	}

	if c.Core.TokenLifetime[0] <= 0 {
		errs = append(errs, errors.New("core.token_lifetime_seconds: lifetime must be positive"))
	}
	if c.Core.StatusLogSeconds <= 0 {
		errs = append(errs, errors.New("core.status_log_seconds: must be positive"))
	}
	if c.Core.AuthErrorDelay < 0 {
		errs = append(errs, errors.New("core.auth_error_delay_seconds: must not be negative"))
	}
	if c.Core.RefID == "" || c.Core.FallbackRefID == "" {
		errs = append(errs, errors.New("core: ref_id and fallback_ref_id must be set"))
	}
	if c.Core.RefIDWeight < 0 || c.Core.FallbackRefIDWeight < 0 ||
		c.Core.RefIDWeight+c.Core.FallbackRefIDWeight == 0 {
		errs = append(errs, errors.New("core: ref id weights must be non negative with a positive sum"))
	}
	if c.Backend.BaseUrl == "" {
		errs = append(errs, errors.New("backend.base_url must be set"))
	}
	if c.Messaging.BotUsername == "" || c.Messaging.AppShortName == "" {
		errs = append(errs, errors.New("messaging: bot_username and app_short_name must be set"))
	}
	if c.Http.Timeout < 0 || c.Http.ProxyCheckTimeout < 0 {
		errs = append(errs, errors.New("http: timeouts must not be negative"))
	}

	return errors.Join(errs...)
}

func GetConfigFromFile(path string) Config {
	assert.Assert(path != "", "config file path cannot be empty", assert.AssertData{"path": path})

	configBytes, err := os.ReadFile(path)
	assert.NoError(err, "error reading config file", assert.AssertData{"path": path})

	config, err := ParseConfig(configBytes)
	assert.NoError(err, "invalid config file", assert.AssertData{"path": path})

	return config
}
