package config

func (b BaseConfig) GetName() string {
	return b.Name
}

func (b BaseConfig) GetServer() Server {
	return b.Server
}

func (b BaseConfig) GetChatToken() ChatToken {
	return b.ChatToken
}

func (b BaseConfig) GetSession() Session {
	return b.Session
}

func (b BaseConfig) GetPersistence() Persistence {
	return b.Persistence
}

func (s Server) GetAddress() string {
	return s.Address
}

func (s Server) GetTokenRoute() string {
	return s.TokenRoute
}

func (s Server) GetDevSessionEnabled() bool {
	return s.DevSessionEnabled
}

func (c ChatToken) GetSecret() string {
	return c.Secret
}

func (c ChatToken) GetContextKey() string {
	return c.ContextKey
}

func (c ChatToken) GetTokenLookup() string {
	return c.TokenLookup
}

func (c ChatToken) GetAuthScheme() string {
	return c.AuthScheme
}

func (s Session) GetSigningKey() string {
	return s.SigningKey
}

func (s Session) GetIssuer() string {
	return s.Issuer
}

func (s Session) GetAudience() []string {
	return s.Audience
}

func (s Session) GetJWKSURLs() []string {
	return s.JWKSURLs
}

func (s Session) GetContextKey() string {
	return s.ContextKey
}

func (s Session) GetTokenLookup() string {
	return s.TokenLookup
}

func (s Session) GetAuthScheme() string {
	return s.AuthScheme
}

func (s Session) GetAllowAnonymous() bool {
	return s.AllowAnonymous
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

func (p Persistence) GetDriver() string {
	return p.Driver
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetServer() string {
	return p.Server
}

func (p Persistence) GetOtelIdentifier() string {
	return p.OtelIdentifier
}
