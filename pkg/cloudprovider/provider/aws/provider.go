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

package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/pkg/errors"

	"github.com/kubermatic/instance-stopper/pkg/cloudprovider/instance"
)

// ErrNoInstances is returned by Stop when it is called without identifiers.
var ErrNoInstances = errors.New("no instance ids given")

// EC2API is the subset of the EC2 client the provider calls.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

type Provider struct {
	client EC2API
}

// New returns a provider backed by the given EC2 client.
func New(client EC2API) *Provider {
	return &Provider{client: client}
}

// NewFromEnvironment builds the EC2 client from whatever the hosting environment
// provides (env vars, shared config, execution role). SDK retries are disabled so
// every call maps to a single request.
func NewFromEnvironment(ctx context.Context) (*Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRetryer(func() aws.Retryer {
		return aws.NopRetryer{}
	}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}

	return New(ec2.NewFromConfig(cfg)), nil
}

// ListRunning returns the ids of all running instances in the order EC2 returned
// them, reservation by reservation.
func (p *Provider) ListRunning(ctx context.Context) ([]string, error) {
	out, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String(instance.StateFilterName),
				Values: []string{instance.StateRunning.String()},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list running instances")
	}

	return instanceIDs(out.Reservations)
}

// Stop requests a stop for all given instances in a single call. It returns once
// EC2 accepted the request; the instances may still be stopping.
func (p *Provider) Stop(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return ErrNoInstances
	}

	_, err := p.client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: ids,
	})
	if err != nil {
		return errors.Wrap(err, "failed to stop instances")
	}

	return nil
}

// instanceIDs flattens the reservations. An instance without an id means the
// response is malformed and fails the whole listing.
func instanceIDs(reservations []ec2types.Reservation) ([]string, error) {
	var ids []string
	for _, reservation := range reservations {
		for n, i := range reservation.Instances {
			if i.InstanceId == nil || *i.InstanceId == "" {
				return nil, errors.Errorf("malformed DescribeInstances response: instance %d of reservation %s has no id",
					n, aws.ToString(reservation.ReservationId))
			}
			ids = append(ids, *i.InstanceId)
		}
	}
	return ids, nil
}
