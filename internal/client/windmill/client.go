package windmill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nl2flow/internal/model"
)

// Config 工作流平台客户端配置
type Config struct {
	Host      string
	Token     string
	Workspace string
	Timeout   time.Duration
}

// Client Windmill REST API 客户端；跨请求复用，仅为连接复用，不持有请求状态
type Client struct {
	cfg  Config
	http *resty.Client
}

// NewClient 创建客户端；所有请求受 Timeout 约束，不做重试
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	httpClient := resty.New().
		SetBaseURL(cfg.Host+"/api/w/"+url.PathEscape(cfg.Workspace)).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(0)
	return &Client{cfg: cfg, http: httpClient}
}

// Script POST /scripts/create 请求体
type Script struct {
	Path        string `json:"path"`
	Language    string `json:"language"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Summary     string `json:"summary,omitempty"`
}

// InputTransform 步骤入参：static 或 javascript 表达式
type InputTransform struct {
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
	Expr  string `json:"expr,omitempty"`
}

// ModuleValue flow 步骤内容
type ModuleValue struct {
	Type            string                    `json:"type"` // script | rawscript
	Path            string                    `json:"path,omitempty"`
	Language        string                    `json:"language,omitempty"`
	Content         string                    `json:"content,omitempty"`
	InputTransforms map[string]InputTransform `json:"input_transforms,omitempty"`
}

type FlowModule struct {
	ID    string      `json:"id"`
	Value ModuleValue `json:"value"`
}

type FlowValue struct {
	Modules []FlowModule `json:"modules"`
}

// Flow POST /flows/create 请求体
type Flow struct {
	Path              string    `json:"path"`
	Summary           string    `json:"summary"`
	Value             FlowValue `json:"value"`
	DeploymentMessage string    `json:"deployment_message,omitempty"`
}

// Schedule POST /schedules/create 请求体
type Schedule struct {
	Path       string         `json:"path"`
	Schedule   string         `json:"schedule"`
	Timezone   string         `json:"timezone"`
	ScriptPath string         `json:"script_path"`
	IsFlow     bool           `json:"is_flow"`
	Args       map[string]any `json:"args"`
	Enabled    bool           `json:"enabled"`
	Summary    string         `json:"summary,omitempty"`
}

// Resource POST /resources/create 请求体
type Resource struct {
	Path         string `json:"path"`
	ResourceType string `json:"resource_type"`
	Value        any    `json:"value"`
	Description  string `json:"description,omitempty"`
}

// Job GET /jobs/get/{id} 响应中关心的字段
type Job struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"` // QueuedJob | CompletedJob
	Running bool            `json:"running"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Completed 任务已结束（无论成功与否）
func (j Job) Completed() bool {
	return j.Type == "CompletedJob"
}

// Succeeded 任务已结束且成功
func (j Job) Succeeded() bool {
	return j.Completed() && j.Success != nil && *j.Success
}

// CreateScript 创建脚本；重复路径返回 ErrAlreadyExists
func (c *Client) CreateScript(ctx context.Context, s Script) (string, error) {
	return c.create(ctx, "create script", "/scripts/create", s)
}

// CreateFlow 创建 flow
func (c *Client) CreateFlow(ctx context.Context, f Flow) (string, error) {
	return c.create(ctx, "create flow", "/flows/create", f)
}

// CreateSchedule 创建调度
func (c *Client) CreateSchedule(ctx context.Context, s Schedule) (string, error) {
	if s.Args == nil {
		s.Args = map[string]any{}
	}
	return c.create(ctx, "create schedule", "/schedules/create", s)
}

// ResourceExists 查询资源是否存在；404 视为不存在
func (c *Client) ResourceExists(ctx context.Context, path string) (bool, error) {
	const op = "get resource"
	resp, err := c.http.R().SetContext(ctx).Get("/resources/get/" + path)
	if err != nil {
		return false, &TransportError{Op: op, Err: err}
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return false, nil
	case resp.IsError():
		return false, newAPIError(op, resp)
	}
	return true, nil
}

// EnsureResource 资源不存在时创建；created 表示本次是否新建
func (c *Client) EnsureResource(ctx context.Context, r Resource) (bool, error) {
	exists, err := c.ResourceExists(ctx, r.Path)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := c.create(ctx, "create resource", "/resources/create", r); err != nil {
		if IsAlreadyExists(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RunScript 异步执行脚本，返回任务 ID
func (c *Client) RunScript(ctx context.Context, path string, args map[string]any) (string, error) {
	return c.run(ctx, "run script", "/jobs/run/p/"+path, args)
}

// RunFlow 异步执行 flow，返回任务 ID
func (c *Client) RunFlow(ctx context.Context, path string, args map[string]any) (string, error) {
	return c.run(ctx, "run flow", "/jobs/run/f/"+path, args)
}

// GetJob 查询任务状态与结果（单次，不轮询）
func (c *Client) GetJob(ctx context.Context, id string) (Job, error) {
	const op = "get job"
	resp, err := c.http.R().SetContext(ctx).Get("/jobs/get/" + url.PathEscape(id))
	if err != nil {
		return Job{}, &TransportError{Op: op, Err: err}
	}
	if resp.IsError() {
		return Job{}, newAPIError(op, resp)
	}
	var job Job
	if err := json.Unmarshal(resp.Body(), &job); err != nil {
		return Job{}, fmt.Errorf("%s: parse response: %w, body: %s", op, err, resp.String())
	}
	if job.ID == "" {
		job.ID = id
	}
	return job, nil
}

// WebhookURL flow 的外部触发地址（只计算，不请求）
func (c *Client) WebhookURL(flowPath string) string {
	return WebhookURL(c.cfg.Host, c.cfg.Workspace, flowPath)
}

// WebhookURL 按平台约定拼出 flow 的触发地址
func WebhookURL(host, workspace, flowPath string) string {
	return fmt.Sprintf("%s/api/w/%s/jobs/run/f/%s", strings.TrimRight(host, "/"), workspace, flowPath)
}

func (c *Client) create(ctx context.Context, op, endpoint string, body any) (string, error) {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(endpoint)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	if resp.IsError() {
		return "", newAPIError(op, resp)
	}
	return unquote(resp.String()), nil
}

func (c *Client) run(ctx context.Context, op, endpoint string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(args).Post(endpoint)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	if resp.IsError() {
		return "", newAPIError(op, resp)
	}
	id := unquote(resp.String())
	if id == "" {
		return "", fmt.Errorf("%s: %w: empty job id", op, model.ErrPlatformRejected)
	}
	return id, nil
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// APIError 平台返回非 2xx，Body 保留原始错误信息
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func newAPIError(op string, resp *resty.Response) *APIError {
	return &APIError{Op: op, StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: http status %d, body: %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap 归类为 PlatformRejected；路径冲突额外归类为 AlreadyExists
func (e *APIError) Unwrap() []error {
	if e.alreadyExists() {
		return []error{model.ErrPlatformRejected, model.ErrAlreadyExists}
	}
	return []error{model.ErrPlatformRejected}
}

func (e *APIError) alreadyExists() bool {
	if e.StatusCode == http.StatusConflict {
		return true
	}
	if e.StatusCode != http.StatusBadRequest {
		return false
	}
	body := strings.ToLower(e.Body)
	return strings.Contains(body, "already exists") || strings.Contains(body, "path conflict")
}

// TransportError 网络错误或超时
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{model.ErrPlatformUnreachable, e.Err}
}

// IsAlreadyExists 重复创建被拒绝
func IsAlreadyExists(err error) bool {
	return errors.Is(err, model.ErrAlreadyExists)
}
