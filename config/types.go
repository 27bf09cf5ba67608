package config

import "time"

type AppConfig struct {
	DBDriver   string        `yaml:"db_driver" env:"BASTION_DB_DRIVER" env-default:"sqlite"`
	DBURL      string        `yaml:"db_url" env:"BASTION_DB_URL"`
	DBPath     string        `yaml:"db_path" env:"BASTION_DB_PATH" env-default:"data/bastion.db"`
	ListenAddr string        `yaml:"listen_addr" env:"BASTION_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"BASTION_SESSION_TTL" env-default:"3h"`
	AppEnv     string        `yaml:"app_env" env:"BASTION_APP_ENV"`
	CSRFKey    string        `yaml:"csrf_key" env:"BASTION_CSRF_KEY"`
	Pepper     string        `yaml:"pepper" env:"BASTION_PEPPER"`

	Security  SecurityConfig  `yaml:"security"`
	Incidents IncidentsConfig `yaml:"incidents"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type SecurityConfig struct {
	OnlineWindowSec int      `yaml:"online_window_sec" env:"BASTION_SECURITY_ONLINE_WINDOW_SEC" env-default:"300"`
	TrustedProxies  []string `yaml:"trusted_proxies" env:"BASTION_SECURITY_TRUSTED_PROXIES" env-separator:","`
	AuditDenied     bool     `yaml:"audit_denied" env:"BASTION_SECURITY_AUDIT_DENIED" env-default:"true"`
}

type IncidentsConfig struct {
	RegNoFormat string `yaml:"reg_no_format" env:"BASTION_INCIDENTS_REG_NO_FORMAT" env-default:"INC-{year}-{seq:05}"`
}

type DispatchConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km" env:"BASTION_DISPATCH_DEFAULT_RADIUS_KM" env-default:"2.0"`
}

type AnalysisConfig struct {
	Endpoint   string `yaml:"endpoint" env:"BASTION_ANALYSIS_ENDPOINT"`
	Model      string `yaml:"model" env:"BASTION_ANALYSIS_MODEL" env-default:"llama3"`
	APIKey     string `yaml:"api_key" env:"BASTION_ANALYSIS_API_KEY"`
	TimeoutSec int    `yaml:"timeout_sec" env:"BASTION_ANALYSIS_TIMEOUT" env-default:"30"`
}

type RedisConfig struct {
	Addr    string `yaml:"addr" env:"BASTION_REDIS_ADDR"`
	Channel string `yaml:"channel" env:"BASTION_REDIS_CHANNEL" env-default:"bastion:incidents"`
}

type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled" env:"BASTION_SCHEDULER_ENABLED" env-default:"true"`
	CleanupSpec string `yaml:"cleanup_spec" env:"BASTION_SCHEDULER_CLEANUP_SPEC" env-default:"@every 10m"`
}

const maxUserSessionTTL = 3 * time.Hour

func (c *AppConfig) EffectiveSessionTTL() time.Duration {
	ttl := maxUserSessionTTL
	if c != nil && c.SessionTTL > 0 {
		ttl = c.SessionTTL
	}
	if ttl > maxUserSessionTTL {
		ttl = maxUserSessionTTL
	}
	return ttl
}
