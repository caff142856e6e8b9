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

// Package fake provides an in-memory instance provider.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/kubermatic/instance-stopper/pkg/cloudprovider/instance"
)

type fakeInstance struct {
	id    string
	state instance.State
}

// Provider keeps instances in insertion order. Stop moves instances to
// stopping, so they disappear from later ListRunning calls.
type Provider struct {
	mu        sync.Mutex
	instances []*fakeInstance

	// ListErr and StopErr are returned by the respective calls when set.
	ListErr error
	StopErr error

	ListCalls int
	StopCalls [][]string
}

func New() *Provider {
	return &Provider{}
}

// Add registers an instance in the given state.
func (p *Provider) Add(id string, state instance.State) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.instances = append(p.instances, &fakeInstance{id: id, state: state})
	return p
}

// State returns the current state of id.
func (p *Provider) State(id string) (instance.State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, i := range p.instances {
		if i.id == id {
			return i.state, true
		}
	}
	return "", false
}

func (p *Provider) ListRunning(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ListCalls++
	if p.ListErr != nil {
		return nil, p.ListErr
	}

	var ids []string
	for _, i := range p.instances {
		if i.state == instance.StateRunning {
			ids = append(ids, i.id)
		}
	}
	return ids, nil
}

func (p *Provider) Stop(_ context.Context, ids []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.StopCalls = append(p.StopCalls, append([]string(nil), ids...))
	if p.StopErr != nil {
		return p.StopErr
	}
	if len(ids) == 0 {
		return errors.New("no instance ids given")
	}

	for _, id := range ids {
		for _, i := range p.instances {
			if i.id == id && i.state == instance.StateRunning {
				i.state = instance.StateStopping
			}
		}
	}
	return nil
}
