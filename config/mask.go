package config

import (
	"net/url"
	"strings"
)

func mask(s string) string {
	l := len(s)
	if l <= 1 {
		return strings.Repeat("*", l)
	}
	h := l / 2
	return s[0:h] + strings.Repeat("*", l-h)
}

// MaskURL returns urlString with the user, password and query values half
// masked, for logging connection settings.
func MaskURL(urlString string) string {
	u, err := url.Parse(urlString)
	if err != nil {
		return mask(urlString)
	}
	var str strings.Builder
	str.WriteString(u.Scheme)
	str.WriteString("://")
	if u.User != nil {
		str.WriteString(mask(u.User.Username()))
		if pass, ok := u.User.Password(); ok {
			str.WriteString(":")
			str.WriteString(mask(pass))
		}
		str.WriteString("@")
	}
	str.WriteString(u.Host)
	str.WriteString(u.EscapedPath())
	if u.RawQuery != "" {
		q := u.Query()
		for k, v := range q {
			for i := range v {
				v[i] = mask(v[i])
			}
			q[k] = v
		}
		str.WriteString("?")
		str.WriteString(strings.ReplaceAll(q.Encode(), "%2A", "*"))
	}
	return str.String()
}

// Target describes where the durable medium lives, safe to log.
func (c *Config) Target() string {
	switch c.Durable.Backend {
	case BackendSQLite:
		return c.Durable.Path
	case BackendRedis:
		return MaskURL(c.Durable.RedisURL)
	default:
		return BackendMemory
	}
}
