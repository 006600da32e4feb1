package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Client    ClientConfig
}

type ServerConfig struct {
	Address         string
	AllowedOrigins  []string              `mapstructure:"allowedOrigins"`
	Auth            AuthConfig            `mapstructure:"auth"`
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

// AuthConfig holds the secret for the optional identity token. Rooms stay
// unauthenticated; the token only supplies display identity.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

type ConnectionLimitConfig struct {
	MaxPerIP int `mapstructure:"maxPerIP"`
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// ClientConfig configures the board-client side: where the relay lives and
// how aggressively to reconnect after a transport drop.
type ClientConfig struct {
	RelayURL            string        `mapstructure:"relayUrl"`
	ReconnectInitial    time.Duration `mapstructure:"reconnectInitial"`
	ReconnectMaxBackoff time.Duration `mapstructure:"reconnectMaxBackoff"`
}
