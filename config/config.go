package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"nl2flow/internal/model"
)

// Config 应用总配置，按环境加载；进程启动时构建一次，显式传入各组件
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Windmill WindmillConfig `yaml:"windmill"`
	LLM      LLMConfig      `yaml:"llm"`
	Compiler CompilerConfig `yaml:"compiler"`
	Runner   RunnerConfig   `yaml:"runner"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

// WindmillConfig 工作流平台连接信息
type WindmillConfig struct {
	Host      string        `yaml:"host" validate:"required,url"`
	Token     string        `yaml:"token" validate:"required"`
	Workspace string        `yaml:"workspace" validate:"required"`
	Timeout   time.Duration `yaml:"timeout"`
	// MCPURL 形如 https://app.windmill.dev/api/mcp/w/main/sse?token=xxx，可替代上面三项
	MCPURL string `yaml:"mcp_url"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider"` // openai, anthropic
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CompilerConfig 计划编译参数（路径前缀、时区）
type CompilerConfig struct {
	Folder         string `yaml:"folder"`
	ScheduleFolder string `yaml:"schedule_folder"`
	InstantFolder  string `yaml:"instant_folder"`
	Timezone       string `yaml:"timezone"`
	// EnsureResources 创建 flow 前确保其绑定的 gmail/slack 资源存在（缺失时以占位值创建）
	EnsureResources bool `yaml:"ensure_resources"`
}

// RunnerConfig 立即执行的等待参数
type RunnerConfig struct {
	PollDelay time.Duration `yaml:"poll_delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

const (
	DefaultWindmillHost = "https://app.windmill.dev"
	DefaultWorkspace    = "main"
	DefaultTimeout      = 5 * time.Second
	DefaultPollDelay    = time.Second
	DefaultTimezone     = "America/New_York"
)

// Default 返回带默认值的配置，文件与环境变量在此基础上覆盖
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 3001, Mode: "release"},
		Windmill: WindmillConfig{
			Host:      DefaultWindmillHost,
			Workspace: DefaultWorkspace,
			Timeout:   DefaultTimeout,
		},
		LLM: LLMConfig{
			Provider: "anthropic",
			BaseURL:  "https://api.anthropic.com/v1",
			Model:    "claude-3-haiku-20240307",
			Timeout:  DefaultTimeout,
		},
		Compiler: CompilerConfig{
			Folder:         "f/automations",
			ScheduleFolder: "f/schedules",
			InstantFolder:  "f/instant",
			Timezone:       DefaultTimezone,
		},
		Runner: RunnerConfig{PollDelay: DefaultPollDelay},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load 根据环境变量 APP_ENV 加载对应配置文件
// 支持: local, dev, prod，默认 local；文件不存在时只使用默认值与环境变量
func Load() (*Config, error) {
	path := fmt.Sprintf("config/%s.yaml", Env())
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	// 允许环境变量覆盖敏感配置
	overrideFromEnv(cfg)
	if cfg.Windmill.MCPURL != "" {
		if err := cfg.Windmill.applyMCPURL(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Env 当前运行环境名
func Env() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		return "local"
	}
	return env
}

func overrideFromEnv(c *Config) {
	if v := os.Getenv("WINDMILL_HOST"); v != "" {
		c.Windmill.Host = v
	}
	if v := os.Getenv("WINDMILL_TOKEN"); v != "" {
		c.Windmill.Token = v
	}
	if v := os.Getenv("WINDMILL_API_TOKEN"); v != "" {
		c.Windmill.Token = v
	}
	if v := os.Getenv("WINDMILL_WORKSPACE"); v != "" {
		c.Windmill.Workspace = v
	}
	if v := os.Getenv("WINDMILL_MCP_URL"); v != "" {
		c.Windmill.MCPURL = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
		c.LLM.Provider = "anthropic"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

var workspaceInPath = regexp.MustCompile(`/w/([^/]+)`)

// applyMCPURL 从 MCP 地址中解析出 host、token 与 workspace
func (w *WindmillConfig) applyMCPURL() error {
	u, err := url.Parse(w.MCPURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid mcp url", model.ErrConfigurationMissing)
	}
	w.Host = u.Scheme + "://" + u.Host
	if token := u.Query().Get("token"); token != "" {
		w.Token = token
	}
	if m := workspaceInPath.FindStringSubmatch(u.Path); m != nil {
		w.Workspace = m[1]
	} else if w.Workspace == "" {
		w.Workspace = DefaultWorkspace
	}
	return nil
}

var validate = validator.New()

// Validate 检查平台必需配置；缺失时返回 ErrConfigurationMissing，调用方不得发起任何远端请求
func (w WindmillConfig) Validate() error {
	if err := validate.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
			return fmt.Errorf("%w: %s", model.ErrConfigurationMissing, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", model.ErrConfigurationMissing, err)
	}
	return nil
}

// BaseURL 去掉末尾斜杠的平台地址
func (w WindmillConfig) BaseURL() string {
	return strings.TrimRight(w.Host, "/")
}
