package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// SysConfig holds process-level settings.
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig holds the HTTP API settings.
type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	JwtSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

// DBConfig holds database settings. Type is "postgres" or "sqlite".
type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// LogConfig holds zap logger settings.
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// SmtpConfig holds optional mail alerting settings. Alerts are disabled
// when Host is empty.
type SmtpConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	From     string `yaml:"from" json:"from"`
	To       string `yaml:"to" json:"to"`
}

// WhatsappConfig tunes the connection manager.
type WhatsappConfig struct {
	// ReconnectDelayMs is the fixed delay before an automatic reconnect
	// after an unexpected close.
	ReconnectDelayMs int `yaml:"reconnect_delay_ms" json:"reconnect_delay_ms"`
	// MaxReconnects caps automatic reconnect attempts, 0 means unlimited.
	MaxReconnects int `yaml:"max_reconnects" json:"max_reconnects"`
	// RetentionDays controls the daily message purge job, 0 disables it.
	RetentionDays int `yaml:"retention_days" json:"retention_days"`
	// PrintQR renders pairing QR codes to the terminal in debug mode.
	PrintQR bool `yaml:"print_qr" json:"print_qr"`
}

type AppConfig struct {
	System   SysConfig      `yaml:"system" json:"system"`
	Web      WebConfig      `yaml:"web" json:"web"`
	Database DBConfig       `yaml:"database" json:"database"`
	Logger   LogConfig      `yaml:"logger" json:"logger"`
	Smtp     SmtpConfig     `yaml:"smtp" json:"smtp"`
	Whatsapp WhatsappConfig `yaml:"whatsapp" json:"whatsapp"`
}

func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "logs"), 0755)
	_ = os.MkdirAll(filepath.Join(c.System.Workdir, "data"), 0755)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "wacapture",
		Location: "Asia/Jakarta",
		Workdir:  "/var/wacapture",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1816,
		JwtSecret: "9b6de5cc-0001-1203-xxtt-0f568ac9da37",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "wacapture",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/wacapture/wacapture.log",
	},
	Whatsapp: WhatsappConfig{
		ReconnectDelayMs: 3000,
		MaxReconnects:    0,
		RetentionDays:    0,
		PrintQR:          true,
	},
}

func setEnvValue(name string, f func(v string)) {
	if v := os.Getenv(name); v != "" {
		f(v)
	}
}

// LoadConfig reads the YAML config file and applies WACAPTURE_* environment
// overrides. A missing file falls back to defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	setEnvValue("WACAPTURE_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("WACAPTURE_SYSTEM_DEBUG", func(v string) { cfg.System.Debug = cast.ToBool(v) })
	setEnvValue("WACAPTURE_WEB_HOST", func(v string) { cfg.Web.Host = v })
	setEnvValue("WACAPTURE_WEB_PORT", func(v string) { cfg.Web.Port = cast.ToInt(v) })
	setEnvValue("WACAPTURE_WEB_JWT_SECRET", func(v string) { cfg.Web.JwtSecret = v })
	setEnvValue("WACAPTURE_DB_TYPE", func(v string) { cfg.Database.Type = v })
	setEnvValue("WACAPTURE_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvValue("WACAPTURE_DB_PORT", func(v string) { cfg.Database.Port = cast.ToInt(v) })
	setEnvValue("WACAPTURE_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("WACAPTURE_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("WACAPTURE_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("WACAPTURE_SMTP_HOST", func(v string) { cfg.Smtp.Host = v })
	setEnvValue("WACAPTURE_SMTP_PORT", func(v string) { cfg.Smtp.Port = cast.ToInt(v) })
	setEnvValue("WACAPTURE_SMTP_USERNAME", func(v string) { cfg.Smtp.Username = v })
	setEnvValue("WACAPTURE_SMTP_PASSWORD", func(v string) { cfg.Smtp.Password = v })
	setEnvValue("WACAPTURE_WA_RECONNECT_DELAY_MS", func(v string) { cfg.Whatsapp.ReconnectDelayMs = cast.ToInt(v) })
	setEnvValue("WACAPTURE_WA_MAX_RECONNECTS", func(v string) { cfg.Whatsapp.MaxReconnects = cast.ToInt(v) })
	setEnvValue("WACAPTURE_WA_RETENTION_DAYS", func(v string) { cfg.Whatsapp.RetentionDays = cast.ToInt(v) })

	return cfg
}
