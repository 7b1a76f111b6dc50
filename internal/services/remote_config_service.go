package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/apperr"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/kv"
)

const (
	ConfigString = "string"
	ConfigBool   = "bool"
	ConfigInt    = "int"
	ConfigJSON   = "json"

	// DailyConfessionLimitKey overrides FREE_DAILY_CONFESSIONS when set.
	DailyConfessionLimitKey = "daily_confession_limit"

	maxConfigKeyLength = 100
)

// ConfigEntry is stored at config:<key>.
type ConfigEntry struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	Type      string      `json:"type"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type RemoteConfigService struct {
	store             *kv.Store
	defaultDailyLimit int
	defaultLanguage   string
}

func NewRemoteConfigService(store *kv.Store, defaultDailyLimit int, defaultLanguage string) *RemoteConfigService {
	return &RemoteConfigService{store: store, defaultDailyLimit: defaultDailyLimit, defaultLanguage: defaultLanguage}
}

// All returns every config key with its typed value.
func (s *RemoteConfigService) All(ctx context.Context) (map[string]interface{}, error) {
	entries, err := kv.ScanAs[ConfigEntry](ctx, s.store, kv.ConfigPrefix)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	out := make(map[string]interface{}, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

// Set parses raw according to typ (string, bool, int, json) and stores it.
func (s *RemoteConfigService) Set(ctx context.Context, key, raw, typ string) (ConfigEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > maxConfigKeyLength {
		return ConfigEntry{}, apperr.Invalid("Key parameter is required")
	}
	if typ == "" {
		typ = ConfigString
	}
	value, err := parseConfigValue(raw, typ)
	if err != nil {
		return ConfigEntry{}, apperr.Wrap(apperr.InvalidArgument, err.Error(), err)
	}
	if key == DailyConfessionLimitKey {
		if _, ok := value.(int); !ok {
			return ConfigEntry{}, apperr.Invalid("daily_confession_limit must be an int")
		}
	}

	entry := ConfigEntry{Key: key, Value: value, Type: typ, UpdatedAt: time.Now().UTC()}
	if err := s.store.Set(ctx, kv.ConfigKey(key), entry); err != nil {
		return ConfigEntry{}, fmt.Errorf("save config: %w", err)
	}
	return entry, nil
}

func (s *RemoteConfigService) Delete(ctx context.Context, key string) error {
	existed, err := s.store.Del(ctx, kv.ConfigKey(key))
	if err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	if !existed {
		return apperr.New(apperr.NotFound, "Config not found")
	}
	return nil
}

// DailyConfessionLimit returns the configured free-tier limit. A negative
// value means unlimited. Lookup failures fall back to the static default.
func (s *RemoteConfigService) DailyConfessionLimit(ctx context.Context) int {
	var entry ConfigEntry
	found, err := s.store.Get(ctx, kv.ConfigKey(DailyConfessionLimitKey), &entry)
	if err != nil {
		slog.WarnContext(ctx, "daily limit lookup failed, using default", "error", err)
		return s.defaultDailyLimit
	}
	if !found {
		return s.defaultDailyLimit
	}
	switch v := entry.Value.(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return s.defaultDailyLimit
}

// SeedDefaults writes the default client keys that do not exist yet.
func (s *RemoteConfigService) SeedDefaults(ctx context.Context) error {
	now := time.Now().UTC()
	defaults := []ConfigEntry{
		{Key: "default_language", Value: s.defaultLanguage, Type: ConfigString},
		{Key: "maintenance_mode", Value: false, Type: ConfigBool},
		{Key: "announcement_title", Value: "", Type: ConfigString},
		{Key: "announcement_message", Value: "", Type: ConfigString},
	}
	for _, d := range defaults {
		d.UpdatedAt = now
		if _, err := s.store.SetIfAbsent(ctx, kv.ConfigKey(d.Key), d); err != nil {
			return fmt.Errorf("seed %s: %w", d.Key, err)
		}
	}
	return nil
}

func parseConfigValue(raw, typ string) (interface{}, error) {
	switch typ {
	case ConfigString:
		return raw, nil
	case ConfigBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a bool", raw)
		}
		return b, nil
	case ConfigInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("value %q is not an int", raw)
		}
		return n, nil
	case ConfigJSON:
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("value is not valid JSON: %v", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}
