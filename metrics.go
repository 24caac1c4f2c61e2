// 验证指标

package bpfsscript

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ResultOK 表示输入验证通过
	ResultOK = "ok"
	// ResultFail 表示脚本验证失败
	ResultFail = "fail"
	// ResultError 表示验证之前出错，例如找不到前序输出
	ResultError = "error"
)

// Metrics 记录输入验证的次数和耗时，注册在独立的 registry 上
type Metrics struct {
	registry *prometheus.Registry
	inputs   *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics 创建并注册验证指标
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpfsscript",
			Name:      "verify_inputs_total",
			Help:      "Number of verified transaction inputs by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bpfsscript",
			Name:      "verify_input_seconds",
			Help:      "Time spent verifying a single transaction input.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
	}
	m.registry.MustRegister(m.inputs, m.duration)

	// 预先创建各结果的序列，没有数据时也能导出 0
	for _, result := range []string{ResultOK, ResultFail, ResultError} {
		m.inputs.WithLabelValues(result)
	}
	return m
}

// Registry 返回指标所在的 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// observe 记录一次验证
func (m *Metrics) observe(start time.Time, result string) {
	m.inputs.WithLabelValues(result).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

// Counts 返回各结果的累计次数
func (m *Metrics) Counts() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]float64)
	for _, family := range families {
		if family.GetName() != "bpfsscript_verify_inputs_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" {
					counts[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	return counts, nil
}
