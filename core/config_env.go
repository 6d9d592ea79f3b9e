package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEnvPrefix prefixes every environment key read by EnvRawConfigLoader.
const DefaultEnvPrefix = "SUBSCRIPTIONS_"

// EnvRawConfigLoader maps prefixed environment variables onto the raw config
// tree. A double underscore nests, so SUBSCRIPTIONS_PROVIDER__BASE_URL sets
// provider.base_url. WEB_HOST is accepted as callback.public_base_url.
type EnvRawConfigLoader struct {
	Prefix  string
	Environ func() []string
}

func NewEnvRawConfigLoader() EnvRawConfigLoader {
	return EnvRawConfigLoader{Prefix: DefaultEnvPrefix, Environ: os.Environ}
}

func (l EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}

	out := map[string]any{}
	var webHost string
	for _, entry := range environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if key == "WEB_HOST" {
			webHost = value
			continue
		}
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(key, prefix)), "__")
		typed, err := typedEnvValue(strings.Join(path, "."), value)
		if err != nil {
			return nil, fmt.Errorf("core: env %s: %w", key, err)
		}
		setNested(out, path, typed)
	}
	if webHost != "" {
		callback, _ := out["callback"].(map[string]any)
		if _, set := callback["public_base_url"]; !set {
			setNested(out, []string{"callback", "public_base_url"}, webHost)
		}
	}
	return out, nil
}

func typedEnvValue(key string, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "provider.max_batch_size", "subscription.ttl_days":
		return strconv.Atoi(value)
	case "provider.timeout":
		return time.ParseDuration(value)
	default:
		return value, nil
	}
}

func setNested(target map[string]any, path []string, value any) {
	for i, segment := range path {
		if segment == "" {
			return
		}
		if i == len(path)-1 {
			target[segment] = value
			return
		}
		next, ok := target[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			target[segment] = next
		}
		target = next
	}
}

var _ RawConfigLoader = EnvRawConfigLoader{}
