package types

// Proxy modes accepted in AgentConfig.ProxyMode.
const (
	ProxyModeOff    = "off"
	ProxyModeEnv    = "env"
	ProxyModeCustom = "custom"
	ProxyModeSystem = "system"
)

// AgentConfig is the persisted per-user agent configuration.
type AgentConfig struct {
	ProxyMode   string      `json:"proxyMode"`
	CustomProxy CustomProxy `json:"customProxy"`
	ProxyFor    ProxyFor    `json:"proxyFor"`
	NoProxy     []string    `json:"noProxy"`
	TLS         TLSConfig   `json:"tls"`
}

// CustomProxy describes an explicitly configured proxy endpoint.
type CustomProxy struct {
	Protocol string    `json:"protocol"`
	Host     string    `json:"host"`
	Port     int       `json:"port"`
	Auth     ProxyAuth `json:"auth"`
}

// ProxyAuth holds optional basic-auth credentials for the custom proxy.
type ProxyAuth struct {
	Enabled bool   `json:"enabled"`
	User    string `json:"user"`
	Pass    string `json:"pass"`
}

// ProxyFor gates proxying per request scheme.
type ProxyFor struct {
	HTTP  bool `json:"http"`
	HTTPS bool `json:"https"`
}

// TLSConfig carries custom trust material. A non-empty inline CAPem always
// wins over CAPemPath.
type TLSConfig struct {
	RejectUnauthorized bool   `json:"rejectUnauthorized"`
	CAPem              string `json:"caPem"`
	CAPemPath          string `json:"caPemPath"`
}

// Settings is the single persisted settings unit: the bearer token plus the
// agent configuration.
type Settings struct {
	Token  string      `json:"token"`
	Config AgentConfig `json:"config"`
}

// Patch types mirror the config tree with optional fields so that partial
// updates and partially-written documents merge per field instead of
// replacing whole sections.

// AgentConfigPatch is a partial AgentConfig update.
type AgentConfigPatch struct {
	ProxyMode   *string           `json:"proxyMode"`
	CustomProxy *CustomProxyPatch `json:"customProxy"`
	ProxyFor    *ProxyForPatch    `json:"proxyFor"`
	NoProxy     *[]string         `json:"noProxy"`
	TLS         *TLSPatch         `json:"tls"`
}

// CustomProxyPatch is a partial CustomProxy update.
type CustomProxyPatch struct {
	Protocol *string         `json:"protocol"`
	Host     *string         `json:"host"`
	Port     *int            `json:"port"`
	Auth     *ProxyAuthPatch `json:"auth"`
}

// ProxyAuthPatch is a partial ProxyAuth update.
type ProxyAuthPatch struct {
	Enabled *bool   `json:"enabled"`
	User    *string `json:"user"`
	Pass    *string `json:"pass"`
}

// ProxyForPatch is a partial ProxyFor update.
type ProxyForPatch struct {
	HTTP  *bool `json:"http"`
	HTTPS *bool `json:"https"`
}

// TLSPatch is a partial TLSConfig update.
type TLSPatch struct {
	RejectUnauthorized *bool   `json:"rejectUnauthorized"`
	CAPem              *string `json:"caPem"`
	CAPemPath          *string `json:"caPemPath"`
}

// SettingsPatch is a partially decoded settings document.
type SettingsPatch struct {
	Token  *string           `json:"token"`
	Config *AgentConfigPatch `json:"config"`
}
