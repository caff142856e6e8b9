/*
Copyright 2026 The Machine Controller Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package handler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
)

const (
	metricsNamespace = "instance_stopper"

	resultSuccess = "success"
	resultFailure = "failure"

	operationList = "list"
	operationStop = "stop"
)

// Metrics holds all metrics the handler records.
type Metrics struct {
	Invocations      *prometheus.CounterVec
	InstancesStopped prometheus.Counter
	ProviderCalls    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the handler metrics and registers them with reg. reg is
// also gathered after every invocation to export the current values.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "invocations_total",
			Help:      "The number of handler invocations by result",
		}, []string{"result"}),
		InstancesStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "instances_stopped_total",
			Help:      "The number of instances a stop was requested for",
		}),
		ProviderCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "provider_call_duration_seconds",
			Help:      "The duration of calls to the compute provider",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		gatherer: reg,
	}

	reg.MustRegister(m.Invocations, m.InstancesStopped, m.ProviderCalls)

	// Set default values, so that these metrics always show up
	m.Invocations.WithLabelValues(resultSuccess).Add(0)
	m.Invocations.WithLabelValues(resultFailure).Add(0)

	return m
}

// Values returns the current value of every gathered sample, keyed by metric
// name and labels. Histograms contribute their _count and _sum samples.
func (m *Metrics) Values() (map[string]float64, error) {
	families, err := m.gatherer.Gather()
	if err != nil {
		return nil, err
	}

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := sampleLabels(metric.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				values[mf.GetName()+labels] = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				values[mf.GetName()+labels] = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				values[mf.GetName()+"_count"+labels] = float64(metric.GetHistogram().GetSampleCount())
				values[mf.GetName()+"_sum"+labels] = metric.GetHistogram().GetSampleSum()
			}
		}
	}
	return values, nil
}

// report logs the current metric values. A Lambda function has no scrape
// endpoint, so this log line is how the values leave the process.
func (m *Metrics) report(log *zap.SugaredLogger) {
	values, err := m.Values()
	if err != nil {
		log.Errorw("Failed to gather metrics", zap.Error(err))
		return
	}
	log.Infow("Invocation metrics", "metrics", values)
}

func sampleLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	labels := make([]string, 0, len(pairs))
	for _, p := range pairs {
		labels = append(labels, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	sort.Strings(labels)
	return "{" + strings.Join(labels, ",") + "}"
}
