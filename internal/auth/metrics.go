package auth

import "github.com/prometheus/client_golang/prometheus"

// 認証フロー名
const (
	flowRegister = "register"
	flowLogin    = "login"
	flowLogout   = "logout"
)

// 認証結果
const (
	outcomeSuccess    = "success"
	outcomeInvalid    = "invalid"
	outcomeDenied     = "denied"
	outcomeRedirected = "redirected"
	outcomeError      = "error"
)

// Metrics は認証処理の Prometheus メトリクスです。
type Metrics struct {
	Attempts *prometheus.CounterVec
}

// NewMetrics はメトリクスを作成して登録します。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cookie_auth_attempts_total",
				Help: "Total number of authentication attempts by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
	}
	reg.MustRegister(m.Attempts)
	return m
}

func (m *Metrics) observe(flow, outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(flow, outcome).Inc()
}
