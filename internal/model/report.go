package model

// OperationStatus 单个远端操作的执行状态
type OperationStatus string

const (
	StatusSucceeded OperationStatus = "succeeded"
	StatusFailed    OperationStatus = "failed"
	StatusSkipped   OperationStatus = "skipped"
)

// OperationResult 报告中的一条记录，与计划中的操作一一对应
type OperationResult struct {
	Operation OperationKind   `json:"operation"`
	Path      string          `json:"path"`
	Status    OperationStatus `json:"status"`
	RemoteID  string          `json:"remote_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"` // PlatformUnreachable | PlatformRejected | PlanInvalid
	Note      string          `json:"note,omitempty"`
}

// ExecutionReport 编排器输出；Success 仅在所有必需操作成功时为 true
type ExecutionReport struct {
	Results []OperationResult `json:"results"`
	Success bool              `json:"success"`
}

// Result 按操作类型查找第一条记录
func (r ExecutionReport) Result(kind OperationKind) (OperationResult, bool) {
	for _, res := range r.Results {
		if res.Operation == kind {
			return res, true
		}
	}
	return OperationResult{}, false
}

// Failed 返回所有失败记录
func (r ExecutionReport) Failed() []OperationResult {
	var out []OperationResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			out = append(out, res)
		}
	}
	return out
}
