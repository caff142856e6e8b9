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

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	awsprovider "github.com/kubermatic/instance-stopper/pkg/cloudprovider/provider/aws"
	"github.com/kubermatic/instance-stopper/pkg/handler"
	stopperlog "github.com/kubermatic/instance-stopper/pkg/log"
	"github.com/kubermatic/instance-stopper/pkg/version"
)

type options struct {
	once         bool
	output       string
	printVersion bool
	timeout      time.Duration
}

func main() {
	logFlags := stopperlog.NewDefaultOptions()
	logFlags.AddFlags(pflag.CommandLine)

	opt := &options{}
	pflag.BoolVar(&opt.once, "once", false, "Invoke the handler a single time outside of Lambda and print the result")
	pflag.StringVar(&opt.output, "output", string(outputJSON), fmt.Sprintf("Result format for --once, one of %v", availableOutputs))
	pflag.DurationVar(&opt.timeout, "timeout", time.Minute, "Deadline for a --once invocation")
	pflag.BoolVar(&opt.printVersion, "version", false, "Print the version and exit")
	pflag.Parse()

	info := version.Get()
	if opt.printVersion {
		fmt.Println(info.String())
		return
	}

	if err := logFlags.Validate(); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	if err := validateOutput(opt.output); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	rawLog := stopperlog.New(logFlags.Debug, logFlags.Format)
	log := rawLog.Sugar()
	defer func() {
		_ = rawLog.Sync()
	}()

	log.Infow("Starting instance-stopper", info.LogFields()...)

	provider, err := awsprovider.NewFromEnvironment(context.Background())
	if err != nil {
		log.Fatalw("Failed to create EC2 provider", zap.Error(err))
	}

	h := handler.New(provider, log, handler.NewMetrics(prometheus.NewRegistry()))

	if !opt.once {
		lambda.Start(h.Handle)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opt.timeout)
	code := run(ctx, h, os.Stdout, outputFormat(opt.output), log)
	cancel()

	_ = rawLog.Sync()
	os.Exit(code)
}

// run invokes the handler once and writes the result to w. It returns the
// process exit code: 0 for a 200 result, 1 otherwise.
func run(ctx context.Context, h *handler.Handler, w io.Writer, format outputFormat, log *zap.SugaredLogger) int {
	result, _ := h.Handle(ctx, nil)

	if err := writeResult(w, result, format); err != nil {
		log.Errorw("Failed to write result", zap.Error(err))
		return 1
	}
	if result.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
