package epoch

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/pdok/rastercache/config"
)

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

var nopCloser = closerFunc(func() error { return nil })

// Open builds the source described by the settings, throttled by their ttl.
// The SQL driver must be registered by the caller. Close the returned closer when done.
func Open(s config.Epoch) (Source, io.Closer, error) {
	ttl, err := s.TTLDuration()
	if err != nil {
		return nil, nil, err
	}
	switch s.Kind {
	case "static":
		return Static(s.Static), nopCloser, nil
	case "file":
		return Throttle(NewFile(s.File), ttl), nopCloser, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: s.RedisAddr, Password: s.RedisPassword, DB: s.RedisDB})
		return Throttle(NewRedis(client, s.RedisKey), ttl), client, nil
	case "sql":
		driver := s.SQLDriver
		if driver == "" {
			driver = "postgres"
		}
		db, err := sql.Open(driver, s.SQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open epoch database: %w", err)
		}
		return Throttle(NewSQL(db, s.SQLQuery), ttl), db, nil
	}
	return nil, nil, fmt.Errorf("unknown epoch kind %q", s.Kind)
}
