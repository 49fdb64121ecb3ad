package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// State 表示熔断器状态
type State int

const (
	StateClosed   State = iota // 关闭：正常状态，允许请求通过
	StateOpen                  // 打开：熔断状态，直接拒绝请求
	StateHalfOpen              // 半开：尝试恢复，允许少量请求通过
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
type Config struct {
	Name string
	// 连续失败多少次后打开熔断器
	FailureThreshold int
	// 半开状态下成功多少次后关闭熔断器
	SuccessThreshold int
	// 打开状态持续多久后进入半开状态
	Timeout time.Duration
	// 半开状态下的最大并发请求数
	HalfOpenMaxRequests int
	// IsFailure decides whether an error counts against the breaker. Nil
	// counts every error.
	IsFailure func(error) bool
	// OnStateChange is called with the lock released.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Name:                "default",
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 3,
	}
}

// CircuitBreaker 熔断器
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu            sync.Mutex
	state         State
	failureCount  int
	successCount  int
	halfOpenCount int
	openedAt      time.Time
	// generation 每次状态切换递增，旧代的请求结果不计入
	generation    uint64
}

// NewCircuitBreaker 创建新的熔断器
func NewCircuitBreaker(config Config) *CircuitBreaker {
	def := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = def.HalfOpenMaxRequests
	}
	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// Execute 执行函数，带熔断保护. It returns ErrCircuitBreakerOpen without
// calling fn while the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	var transition func()

	cb.mu.Lock()
	transition = cb.advance()
	admitted := cb.generation
	switch cb.state {
	case StateOpen:
		cb.mu.Unlock()
		notify(transition)
		return ErrCircuitBreakerOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			cb.mu.Unlock()
			notify(transition)
			return ErrCircuitBreakerOpen
		}
		cb.halfOpenCount++
	}
	cb.mu.Unlock()
	notify(transition)

	err := fn()

	cb.mu.Lock()
	transition = cb.advance()
	switch {
	case cb.generation != admitted:
		// admitted before the last state change; its outcome says nothing
		// about the current state
	case err != nil && cb.countsAsFailure(err):
		transition = chain(transition, cb.onFailure())
	default:
		transition = chain(transition, cb.onSuccess())
	}
	cb.mu.Unlock()
	notify(transition)

	return err
}

func (cb *CircuitBreaker) countsAsFailure(err error) bool {
	if cb.config.IsFailure == nil {
		return true
	}
	return cb.config.IsFailure(err)
}

// advance moves an expired open breaker to half-open.
func (cb *CircuitBreaker) advance() func() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		return cb.setState(StateHalfOpen)
	}
	return nil
}

func (cb *CircuitBreaker) onFailure() func() {
	switch cb.state {
	case StateHalfOpen:
		// 半开状态下失败，立即打开
		return cb.setState(StateOpen)
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			return cb.setState(StateOpen)
		}
	}
	return nil
}

func (cb *CircuitBreaker) onSuccess() func() {
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		cb.halfOpenCount--
		if cb.successCount >= cb.config.SuccessThreshold {
			return cb.setState(StateClosed)
		}
	case StateClosed:
		cb.failureCount = 0
	}
	return nil
}

// setState must be called with the lock held. The returned func fires the
// state change callback and must run after unlocking.
func (cb *CircuitBreaker) setState(to State) func() {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.generation++
	cb.failureCount = 0
	cb.successCount = 0
	cb.halfOpenCount = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	if cb.config.OnStateChange == nil {
		return nil
	}
	name, cbFn := cb.config.Name, cb.config.OnStateChange
	return func() { cbFn(name, from, to) }
}

func chain(a, b func()) func() {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func() { a(); b() }
}

func notify(f func()) {
	if f != nil {
		f()
	}
}

// GetState 获取当前状态（线程安全）
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	transition := cb.advance()
	state := cb.state
	cb.mu.Unlock()
	notify(transition)
	return state
}

// Reset 重置熔断器
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	transition := cb.setState(StateClosed)
	cb.failureCount = 0
	cb.mu.Unlock()
	notify(transition)
}
