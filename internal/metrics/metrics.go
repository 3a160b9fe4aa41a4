// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OTP検証結果のラベル値
const (
	VerifySuccess   = "success"
	VerifyNotIssued = "not_issued"
	VerifyInvalid   = "invalid"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービスとHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordOTPIssued()
	RecordAccountCreated()
	RecordOTPVerification(result string)
	RecordPasswordSet()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	otpIssued       prometheus.Counter
	accountsCreated prometheus.Counter
	otpVerify       *prometheus.CounterVec
	passwordSet     prometheus.Counter
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		otpIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btcdash_otp_issued_total",
			Help: "発行したワンタイムパスワードの合計数",
		}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btcdash_accounts_created_total",
			Help: "OTP発行時に新規作成したアカウントの合計数",
		}),
		otpVerify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btcdash_otp_verify_total",
			Help: "OTP検証の結果別件数",
		}, []string{"result"}),
		passwordSet: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "btcdash_password_set_total",
			Help: "恒久パスワードを設定した件数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "btcdash_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.otpIssued,
		c.accountsCreated,
		c.otpVerify,
		c.passwordSet,
		c.httpStatus,
	)

	return c
}

// RecordOTPIssued はOTP発行を記録する。
func (c *Collector) RecordOTPIssued() {
	c.otpIssued.Inc()
}

// RecordAccountCreated はアカウント新規作成を記録する。
func (c *Collector) RecordAccountCreated() {
	c.accountsCreated.Inc()
}

// RecordOTPVerification はOTP検証結果を記録する。
func (c *Collector) RecordOTPVerification(result string) {
	c.otpVerify.WithLabelValues(result).Inc()
}

// RecordPasswordSet はパスワード設定を記録する。
func (c *Collector) RecordPasswordSet() {
	c.passwordSet.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordOTPIssued() {}
func (Nop) RecordAccountCreated() {}
func (Nop) RecordOTPVerification(_ string) {}
func (Nop) RecordPasswordSet() {}
func (Nop) RecordHTTPStatus(_ int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
