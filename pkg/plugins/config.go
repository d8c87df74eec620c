package plugins

const (
	Log2File = "log2file"
	Mail     = "mail"
	Telegram = "telegram"
)

// Names 内置插件名称
var Names = []string{Log2File, Mail, Telegram}

// Config 内置插件配置
type Config struct {
	// GeoIPDB MaxMind 国家库路径，为空时 {country} 为空
	GeoIPDB  string         `yaml:"geoip_db"`
	Log2File Log2FileConfig `yaml:"log2file"`
	Mail     MailConfig     `yaml:"mail"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// Log2FileConfig 登录记录文件
type Log2FileConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAge     int    `yaml:"max_age" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// MailConfig SMTP 邮件通知
type MailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port" validate:"gte=0,lte=65535"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from" validate:"omitempty,email"`
	To       []string `yaml:"to" validate:"dive,email"`
	Subject  string   `yaml:"subject"`
	Body     string   `yaml:"body"`
}

// TelegramConfig Telegram 机器人通知
type TelegramConfig struct {
	Token       string `yaml:"token"`
	ChatID      int64  `yaml:"chat_id"`
	APIEndpoint string `yaml:"api_endpoint"`
	Template    string `yaml:"template"`
}

const (
	DefaultMailHost    = "smtp.gmail.com"
	DefaultMailPort    = 587
	DefaultMailSubject = "SSH Login Detection"
	DefaultMailBody    = "\nDetected a SSH Login in {system_ip}\n\nConnection:\n{login}\n\n"

	DefaultTelegramTemplate = "SSH Login\n" +
		"——————————\n" +
		"\n" +
		"System:\n" +
		"    {system} ({system_ip}) \n" +
		"\n" +
		"User:\n" +
		"    {user}\n" +
		"\n" +
		"From:\n" +
		"    {from}\n" +
		"\n" +
		"Date:\n" +
		"    {date}\n"

	DefaultLog2FileName = ".ssh_logins.log"
)

// Defaults 默认配置
func Defaults() Config {
	return Config{
		Mail: MailConfig{
			Host:    DefaultMailHost,
			Port:    DefaultMailPort,
			Subject: DefaultMailSubject,
			Body:    DefaultMailBody,
		},
		Telegram: TelegramConfig{
			Template: DefaultTelegramTemplate,
		},
	}
}
