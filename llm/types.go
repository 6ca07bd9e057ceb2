package llm

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/graphrag/metrics"
)

// 统一的 LLM 错误码，用于对齐 HTTP 状态、可重试性与重试跳过策略。
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "LLM_INVALID_REQUEST"  // 参数/格式错误
	ErrUnauthorized    ErrorCode = "LLM_UNAUTHORIZED"     // 未授权或密钥失效
	ErrForbidden       ErrorCode = "LLM_FORBIDDEN"        // 权限或内容策略拒绝
	ErrRateLimited     ErrorCode = "LLM_RATE_LIMITED"     // 上游或本地限流
	ErrContentFiltered ErrorCode = "LLM_CONTENT_FILTERED" // 命中内容安全
	ErrUpstreamTimeout ErrorCode = "LLM_UPSTREAM_TIMEOUT" // 上游超时
	ErrUpstreamError   ErrorCode = "LLM_UPSTREAM_ERROR"   // 上游 5xx/网络错误
	ErrInjectedFailure ErrorCode = "LLM_INJECTED_FAILURE" // 测试注入的失败
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
}

func (e *Error) Error() string { return e.Message }

// CodeOf returns the error code of err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// SkipByCodes returns a predicate matching errors whose code is in codes.
// It feeds the retry policy's skip check: these errors indicate the request
// itself is invalid and retrying cannot help.
func SkipByCodes(codes []string) func(error) bool {
	if len(codes) == 0 {
		return nil
	}
	set := make(map[ErrorCode]struct{}, len(codes))
	for _, c := range codes {
		set[ErrorCode(c)] = struct{}{}
	}
	return func(err error) bool {
		_, ok := set[CodeOf(err)]
		return ok
	}
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Request carries the arguments of one model call. The well-known fields
// cover completion (Messages) and embedding (Input) traffic; Extra passes
// forward-compatible parameters through to the base handler untyped.
//
// A Request is owned by its caller and immutable during one middleware
// traversal, except for Metrics, which layers mutate in place. A nil
// Metrics disables metrics collection for this call.
type Request struct {
	TraceID     string               `json:"trace_id,omitempty"`
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages,omitempty"`
	Input       []string             `json:"input,omitempty"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float32              `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
	Mock        bool                 `json:"mock,omitempty"`
	Metrics     *metrics.Accumulator `json:"-"`
	Extra       map[string]any       `json:"extra,omitempty"`
}

// IsEmbedding reports whether the request is embedding traffic.
func (r *Request) IsEmbedding() bool { return len(r.Input) > 0 }

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

type Response struct {
	ID         string      `json:"id,omitempty"`
	Model      string      `json:"model"`
	Content    string      `json:"content,omitempty"`
	Embeddings [][]float32 `json:"embeddings,omitempty"`
	Usage      Usage       `json:"usage,omitempty"`
	CreatedAt  time.Time   `json:"created_at,omitempty"`
}

// NewTraceID generates a trace ID for requests submitted without one.
func NewTraceID() string { return uuid.NewString() }
