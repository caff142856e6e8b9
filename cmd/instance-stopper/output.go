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
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/kubermatic/instance-stopper/pkg/handler"
)

type outputFormat string

const (
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

var availableOutputs = []outputFormat{outputJSON, outputYAML}

func validateOutput(format string) error {
	for _, f := range availableOutputs {
		if outputFormat(format) == f {
			return nil
		}
	}
	return errors.Errorf("invalid output format %q, must be one of %v", format, availableOutputs)
}

func writeResult(w io.Writer, result handler.Result, format outputFormat) error {
	var (
		b   []byte
		err error
	)

	switch format {
	case outputYAML:
		b, err = yaml.Marshal(result)
	default:
		b, err = json.MarshalIndent(result, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal result")
	}

	if _, err := w.Write(b); err != nil {
		return errors.Wrap(err, "failed to write result")
	}
	return nil
}
