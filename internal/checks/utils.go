package checks

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ozzus/relayping/internal/directory"
)

func stringParam(params map[string]interface{}, key, fallback string) string {
	if params == nil {
		return fallback
	}

	if value, ok := params[key]; ok {
		switch v := value.(type) {
		case string:
			if v == "" {
				return fallback
			}
			return v
		case fmt.Stringer:
			return v.String()
		default:
			str := fmt.Sprintf("%v", value)
			if str == "" {
				return fallback
			}
			return str
		}
	}

	return fallback
}

func lowerStringParam(params map[string]interface{}, key, fallback string) string {
	return strings.ToLower(stringParam(params, key, fallback))
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	if params == nil {
		return fallback
	}

	if value, ok := params[key]; ok {
		switch v := value.(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float32:
			return int(v)
		case float64:
			return int(v)
		case string:
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}

	return fallback
}

// durationParam reads numbers as milliseconds and strings as Go durations.
func durationParam(params map[string]interface{}, key string, fallback time.Duration) time.Duration {
	if params == nil {
		return fallback
	}

	if value, ok := params[key]; ok {
		switch v := value.(type) {
		case time.Duration:
			return v
		case int:
			return time.Duration(v) * time.Millisecond
		case int64:
			return time.Duration(v) * time.Millisecond
		case float64:
			return time.Duration(v) * time.Millisecond
		case string:
			if parsed, err := time.ParseDuration(v); err == nil {
				return parsed
			}
		}
	}

	return fallback
}

func formatMilliseconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1f ms", float64(d.Microseconds())/1000.0)
}

// normalizeHostname strips scheme, path and port from target.
func normalizeHostname(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("empty target")
	}

	if strings.Contains(target, "://") {
		parsed, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("invalid target: %w", err)
		}
		target = parsed.Host
	} else if idx := strings.Index(target, "/"); idx >= 0 {
		target = target[:idx]
	}

	if host, _, err := net.SplitHostPort(target); err == nil {
		target = host
	}
	target = strings.Trim(target, "[]")

	if target == "" {
		return "", errors.New("empty target")
	}
	return target, nil
}

// FilterServers keeps servers whose region or country code matches filter,
// case-insensitively. An empty filter keeps everything.
func FilterServers(servers []directory.Server, filter string) []directory.Server {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return servers
	}

	out := make([]directory.Server, 0, len(servers))
	for _, s := range servers {
		if strings.EqualFold(s.CountryCode, filter) || strings.EqualFold(s.Region, filter) {
			out = append(out, s)
		}
	}
	return out
}
