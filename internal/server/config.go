package server

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring Server instance
type config struct {
	httpServer *http.Server
	// jsonHandlers accept POST requests with JSON bodies only
	jsonHandlers  map[string]http.Handler
	plainHandlers map[string]http.Handler
	mapConfig      MapConfig
	placeholder    string
	allowedOrigins []string
	afterShutdown  []func()
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	Host           string   `env:"HOST" envDefault:"0.0.0.0"`
	Port           uint16   `env:"PORT" envDefault:"9000"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	PrefsPath string        `env:"PREFS_PATH" envDefault:"./data/prefs"`

	DefaultProfileImage string `env:"DEFAULT_PROFILE_IMAGE" envDefault:"/assets/default-profile.png"`

	MapTileURL     string  `env:"MAP_TILE_URL" envDefault:"https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png"`
	MapAttribution string  `env:"MAP_ATTRIBUTION"`
	MapCenterLat   float64 `env:"MAP_CENTER_LAT" envDefault:"52.507932"`
	MapCenterLng   float64 `env:"MAP_CENTER_LNG" envDefault:"13.338414"`
	MapZoom        int     `env:"MAP_ZOOM" envDefault:"3"`
	MapMinZoom     int     `env:"MAP_MIN_ZOOM" envDefault:"3"`
	MapMaxZoom     int     `env:"MAP_MAX_ZOOM" envDefault:"18"`
}

// MapConfig returns the map view configuration described by the environment
func (cfg EnvConfig) MapConfig() MapConfig {
	m := DefaultMapConfig()
	if cfg.MapTileURL != "" {
		m.TileURL = cfg.MapTileURL
	}
	if cfg.MapAttribution != "" {
		m.Attribution = cfg.MapAttribution
	}
	m.Center = LatLng{Lat: cfg.MapCenterLat, Lng: cfg.MapCenterLng}
	m.Zoom = cfg.MapZoom
	m.MinZoom = cfg.MapMinZoom
	m.MaxZoom = cfg.MapMaxZoom
	return m
}

// WithEnvConfig enables processing exported EnvConfig struct to acts as a source of config parameters
// for http.Server and the map view
func WithEnvConfig(cfg EnvConfig) Option {
	return optionFunc(func(c *config) {
		c.httpServer.Addr = cfg.Host + ":" + strconv.FormatUint(uint64(cfg.Port), 10)
		c.mapConfig = cfg.MapConfig()
		if cfg.DefaultProfileImage != "" {
			c.placeholder = cfg.DefaultProfileImage
		}
		if len(cfg.AllowedOrigins) > 0 {
			c.allowedOrigins = cfg.AllowedOrigins
		}
	})
}

// AllowedOrigins restricts websocket handshakes to the given origins, "*" allows any.
// Without it only same-host handshakes are accepted.
func AllowedOrigins(origins ...string) Option {
	return optionFunc(func(c *config) {
		c.allowedOrigins = origins
	})
}

// ReadTimeout sets read timeout for http.Server
func ReadTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.httpServer.ReadTimeout = d
	})
}

// RegisterAfterShutdown registers a function to call after http.Server shutdown
// f will not be called in separated goroutine
func RegisterAfterShutdown(f func()) Option {
	return optionFunc(func(c *config) {
		c.afterShutdown = append(c.afterShutdown, f)
	})
}

// TimeoutHandler wraps each JSON handler in http.TimeoutHandler with provided duration and message.
// The websocket endpoint is left alone since it hijacks the connection.
func TimeoutHandler(d time.Duration, msg string) Option {
	return optionFunc(func(c *config) {
		for pattern, h := range c.jsonHandlers {
			c.jsonHandlers[pattern] = http.TimeoutHandler(h, d, msg)
		}
	})
}

// registerHandlers registers every handler for newly initialized http.ServeMux
// that http.ServeMux is used as a http.Handler for http.Server in config struct
func registerHandlers() Option {
	return optionFunc(func(c *config) {
		mux := http.NewServeMux()
		for pattern, h := range c.jsonHandlers {
			mux.Handle(pattern, h)
		}
		for pattern, h := range c.plainHandlers {
			mux.Handle(pattern, h)
		}
		c.httpServer.Handler = mux
	})
}

// applyEnforcePostJson wraps each JSON handler with enforcePostJson middleware
func applyEnforcePostJson() Option {
	return optionFunc(func(c *config) {
		for pattern, h := range c.jsonHandlers {
			c.jsonHandlers[pattern] = enforcePostJson(h)
		}
	})
}

// applyLog wraps every handler with log middleware
func applyLog(logger *zap.Logger) Option {
	return optionFunc(func(c *config) {
		for pattern, h := range c.jsonHandlers {
			c.jsonHandlers[pattern] = log(h, logger, pattern)
		}
		for pattern, h := range c.plainHandlers {
			c.plainHandlers[pattern] = log(h, logger, pattern)
		}
	})
}
