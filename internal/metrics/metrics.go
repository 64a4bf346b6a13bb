package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 自动化核心的计数器，挂在独立 registry 上
type Metrics struct {
	registry      *prometheus.Registry
	intents       *prometheus.CounterVec
	operations    *prometheus.CounterVec
	immediateRuns *prometheus.CounterVec
	llmFallbacks  prometheus.Counter
}

// New 创建并注册所有指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		intents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nl2flow",
			Name:      "intents_total",
			Help:      "Classified automation requests by intent kind.",
		}, []string{"kind"}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nl2flow",
			Name:      "platform_operations_total",
			Help:      "Workflow platform operations by kind and status.",
		}, []string{"operation", "status"}),
		immediateRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nl2flow",
			Name:      "immediate_runs_total",
			Help:      "Immediate runs by terminal state.",
		}, []string{"state"}),
		llmFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "nl2flow",
			Name:      "llm_fallbacks_total",
			Help:      "LLM classifications discarded in favour of the rule-based result.",
		}),
	}
}

func (m *Metrics) IntentClassified(kind string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(kind).Inc()
}

func (m *Metrics) OperationDone(operation, status string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) ImmediateRunDone(state string) {
	if m == nil {
		return
	}
	m.immediateRuns.WithLabelValues(state).Inc()
}

func (m *Metrics) LLMFallback() {
	if m == nil {
		return
	}
	m.llmFallbacks.Inc()
}

// Handler /metrics 暴露端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Intents() *prometheus.CounterVec { return m.intents }

func (m *Metrics) Operations() *prometheus.CounterVec { return m.operations }

func (m *Metrics) ImmediateRuns() *prometheus.CounterVec { return m.immediateRuns }

func (m *Metrics) LLMFallbacks() prometheus.Counter { return m.llmFallbacks }

// Registry 测试中读取指标用
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
