package config

type BaseConfig struct {
	Name        string      `koanf:"name" json:"name"`
	Server      Server      `koanf:"server" json:"server"`
	ChatToken   ChatToken   `koanf:"chat_token" json:"chat_token"`
	Session     Session     `koanf:"session" json:"session"`
	Persistence Persistence `koanf:"persistence" json:"persistence"`
}

type Server struct {
	Address           string `koanf:"address" json:"address"`
	TokenRoute        string `koanf:"token_route" json:"token_route"`
	DevSessionEnabled bool   `koanf:"dev_session_enabled" json:"dev_session_enabled"`
}

type ChatToken struct {
	Secret                 string `koanf:"secret" json:"secret"`
	WindowExpression       string `koanf:"window" json:"window"`
	MaxClockSkewExpression string `koanf:"max_clock_skew" json:"max_clock_skew"`
	ContextKey             string `koanf:"context_key" json:"context_key"`
	TokenLookup            string `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme             string `koanf:"auth_scheme" json:"auth_scheme"`
}

type Session struct {
	SigningKey     string   `koanf:"signing_key" json:"signing_key"`
	Issuer         string   `koanf:"issuer" json:"issuer"`
	Audience       []string `koanf:"audience" json:"audience"`
	TTLExpression  string   `koanf:"ttl" json:"ttl"`
	JWKSURLs       []string `koanf:"jwks_urls" json:"jwks_urls"`
	ContextKey     string   `koanf:"context_key" json:"context_key"`
	TokenLookup    string   `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme     string   `koanf:"auth_scheme" json:"auth_scheme"`
	AllowAnonymous bool     `koanf:"allow_anonymous" json:"allow_anonymous"`
}

type Persistence struct {
	DSN                   string `koanf:"dsn" json:"dsn"`
	Driver                string `koanf:"driver" json:"driver"`
	Debug                 bool   `koanf:"debug" json:"debug"`
	PingTimeoutExpression string `koanf:"ping_timeout" json:"ping_timeout"`
	Server                string `koanf:"server" json:"server"`
	OtelIdentifier        string `koanf:"otel_identifier" json:"otel_identifier"`
}
