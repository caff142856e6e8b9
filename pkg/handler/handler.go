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

// Package handler implements the function invoked by the hosting platform: it
// stops every running instance and reports what it asked the provider to stop.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"

	awsprovider "github.com/kubermatic/instance-stopper/pkg/cloudprovider/provider/aws"
)

const noRunningInstancesBody = "No running instances to stop"

// InstanceProvider lists and stops instances at the compute provider.
type InstanceProvider interface {
	ListRunning(ctx context.Context) ([]string, error)
	Stop(ctx context.Context, ids []string) error
}

// Result is returned to the hosting platform.
type Result struct {
	StatusCode       int      `json:"statusCode"`
	Body             string   `json:"body"`
	StoppedInstances []string `json:"stopped_instances,omitempty"`
}

type Handler struct {
	provider InstanceProvider
	log      *zap.SugaredLogger
	metrics  *Metrics
}

func New(provider InstanceProvider, log *zap.SugaredLogger, metrics *Metrics) *Handler {
	return &Handler{
		provider: provider,
		log:      log,
		metrics:  metrics,
	}
}

// Handle stops all running instances. The event is not inspected. Provider
// failures are reported through the result, so the returned error is always nil.
// The metric values are logged once the invocation is accounted for.
func (h *Handler) Handle(ctx context.Context, _ json.RawMessage) (Result, error) {
	log := h.log.With("request", requestID(ctx))
	defer h.metrics.report(log)

	ids, err := h.listRunning(ctx)
	if err != nil {
		return h.failure(log, err, nil), nil
	}

	if len(ids) == 0 {
		log.Info("No running instances found")
		h.metrics.Invocations.WithLabelValues(resultSuccess).Inc()
		return Result{
			StatusCode: http.StatusOK,
			Body:       noRunningInstancesBody,
		}, nil
	}

	log.Infow("Stopping instances", "instances", ids)
	if err := h.stop(ctx, ids); err != nil {
		return h.failure(log, err, ids), nil
	}
	log.Infow("Successfully initiated stop", "count", len(ids))

	h.metrics.Invocations.WithLabelValues(resultSuccess).Inc()
	h.metrics.InstancesStopped.Add(float64(len(ids)))

	return Result{
		StatusCode:       http.StatusOK,
		Body:             fmt.Sprintf("Successfully stopped %d instance(s): %s", len(ids), strings.Join(ids, ", ")),
		StoppedInstances: ids,
	}, nil
}

func (h *Handler) listRunning(ctx context.Context) ([]string, error) {
	start := time.Now()
	defer func() {
		h.metrics.ProviderCalls.WithLabelValues(operationList).Observe(time.Since(start).Seconds())
	}()
	return h.provider.ListRunning(ctx)
}

func (h *Handler) stop(ctx context.Context, ids []string) error {
	start := time.Now()
	defer func() {
		h.metrics.ProviderCalls.WithLabelValues(operationStop).Observe(time.Since(start).Seconds())
	}()
	return h.provider.Stop(ctx, ids)
}

// failure logs err and turns it into a 500 result. Instances that were listed
// but may or may not have been stopped only show up in the log.
func (h *Handler) failure(log *zap.SugaredLogger, err error, ids []string) Result {
	fields := []interface{}{zap.Error(err)}
	if code := awsprovider.ErrorCode(err); code != "" {
		fields = append(fields, "code", code)
	}
	if len(ids) > 0 {
		fields = append(fields, "instances", ids)
	}
	log.Errorw("Error stopping instances", fields...)

	h.metrics.Invocations.WithLabelValues(resultFailure).Inc()

	return Result{
		StatusCode: http.StatusInternalServerError,
		Body:       "Error: " + err.Error(),
	}
}

func requestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
