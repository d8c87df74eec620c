package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/dushixiang/sshwatchdog/internal/logger"
	"github.com/dushixiang/sshwatchdog/pkg/plugins"
	"github.com/dushixiang/sshwatchdog/pkg/sshmonitor"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath          = "/etc/sshwatchdog/config.yaml"
	DefaultWhitelistPath = "/etc/sshwatchdog/whitelist.txt"
	BuiltinUsersLister   = "users"
)

var envVarRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Config 配置文件
type Config struct {
	// Schedule cron 表达式（如 "@every 10s"），为空时使用 Interval
	Schedule        string        `yaml:"schedule"`
	Interval        time.Duration `yaml:"interval" validate:"gte=0"`
	OnProbeError    string        `yaml:"on_probe_error" validate:"oneof=exit skip"`
	ProbeBackoffMax time.Duration `yaml:"probe_backoff_max" validate:"gte=0"`

	Lister         ListerConfig   `yaml:"lister"`
	Whitelist      string         `yaml:"whitelist" validate:"required"`
	WatchWhitelist bool           `yaml:"watch_whitelist"`
	Plugins        []PluginConfig `yaml:"plugins" validate:"dive"`

	Log    logger.Config  `yaml:"log"`
	Notify plugins.Config `yaml:"notify"`

	path string
}

// ListerConfig 会话探针配置
type ListerConfig struct {
	Builtin string   `yaml:"builtin" validate:"omitempty,oneof=users"`
	Command string   `yaml:"command" validate:"required_without=Builtin"`
	Args    []string `yaml:"args"`
}

// PluginConfig 插件配置，command 与 builtin 二选一
type PluginConfig struct {
	Name     string        `yaml:"name" validate:"required"`
	Builtin  string        `yaml:"builtin" validate:"omitempty,oneof=log2file mail telegram"`
	Command  string        `yaml:"command" validate:"required_without=Builtin"`
	Args     []string      `yaml:"args"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
	Disabled bool          `yaml:"disabled"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Interval:        sshmonitor.DefaultInterval,
		OnProbeError:    string(sshmonitor.ProbeExit),
		ProbeBackoffMax: sshmonitor.DefaultProbeBackoffMax,
		Whitelist:       DefaultWhitelistPath,
		Log: logger.Config{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Notify: plugins.Defaults(),
	}
}

// Load 读取并校验配置文件，支持 ${VAR} 环境变量替换
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	content := envVarRegex.ReplaceAllStringFunc(string(data), func(match string) string {
		if value, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return value
		}
		return match
	})

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.path = abs

	// 白名单相对路径以配置文件所在目录为准
	if cfg.Whitelist != "" && !filepath.IsAbs(cfg.Whitelist) {
		cfg.Whitelist = filepath.Join(filepath.Dir(abs), cfg.Whitelist)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path 配置文件的绝对路径
func (c *Config) Path() string {
	return c.path
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, translator)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, e.Translate(translator))
			}
			return fmt.Errorf("配置校验失败: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if _, err := c.PollSchedule(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Plugins))
	for _, p := range c.Plugins {
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("配置校验失败: 插件名称重复: %s", p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// PollSchedule 轮询计划
func (c *Config) PollSchedule() (sshmonitor.Schedule, error) {
	if c.Schedule == "" {
		if c.Interval <= 0 {
			return nil, errors.New("配置校验失败: interval 必须大于 0")
		}
		return sshmonitor.Interval(c.Interval), nil
	}
	schedule, err := cron.ParseStandard(c.Schedule)
	if err != nil {
		return nil, fmt.Errorf("配置校验失败: schedule %q 无效: %w", c.Schedule, err)
	}
	return schedule, nil
}

// MonitorOptions 监控器选项
func (c *Config) MonitorOptions() (sshmonitor.Options, error) {
	schedule, err := c.PollSchedule()
	if err != nil {
		return sshmonitor.Options{}, err
	}
	return sshmonitor.Options{
		Schedule:        schedule,
		OnProbeError:    sshmonitor.ProbePolicy(c.OnProbeError),
		ProbeBackoffMax: c.ProbeBackoffMax,
	}, nil
}

// NewLister 根据配置创建会话探针
func (c *Config) NewLister() sshmonitor.Lister {
	if c.Lister.Builtin == BuiltinUsersLister {
		return sshmonitor.NewUsersLister()
	}
	return sshmonitor.NewCommandLister(c.Lister.Command, c.Lister.Args...)
}

// Registry 构建插件注册表，executable 为内置插件所在的可执行文件
func (c *Config) Registry(executable string) []sshmonitor.Plugin {
	var registry []sshmonitor.Plugin
	for _, p := range c.Plugins {
		if p.Disabled {
			continue
		}
		plugin := sshmonitor.Plugin{
			Name:    p.Name,
			Command: p.Command,
			Args:    append([]string(nil), p.Args...),
			Timeout: p.Timeout,
		}
		if p.Builtin != "" {
			// 登录记录跟在 "--" 之后，以 "-" 开头时也不会被当作参数解析
			plugin.Command = executable
			plugin.Args = []string{"--config", c.path, "plugin", p.Builtin, "--"}
		}
		registry = append(registry, plugin)
	}
	return registry
}
