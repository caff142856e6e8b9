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
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/go-test/deep"
)

const describeInstancesResponse = `<?xml version="1.0" encoding="UTF-8"?>
<DescribeInstancesResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/">
  <requestId>8f7724cf-496f-496e-8fe3-example</requestId>
  <reservationSet>
    <item>
      <reservationId>r-1</reservationId>
      <instancesSet>
        <item><instanceId>i-1</instanceId></item>
        <item><instanceId>i-2</instanceId></item>
      </instancesSet>
    </item>
    <item>
      <reservationId>r-2</reservationId>
      <instancesSet>
        <item><instanceId>i-3</instanceId></item>
      </instancesSet>
    </item>
  </reservationSet>
</DescribeInstancesResponse>`

const stopInstancesResponse = `<?xml version="1.0" encoding="UTF-8"?>
<StopInstancesResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/">
  <requestId>59dbff89-35bd-4eac-99ed-example</requestId>
  <instancesSet>
    <item>
      <instanceId>i-1</instanceId>
      <currentState><code>64</code><name>stopping</name></currentState>
      <previousState><code>16</code><name>running</name></previousState>
    </item>
  </instancesSet>
</StopInstancesResponse>`

const unauthorizedResponse = `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Errors>
    <Error>
      <Code>UnauthorizedOperation</Code>
      <Message>You are not authorized to perform this operation.</Message>
    </Error>
  </Errors>
  <RequestID>a1b2c3</RequestID>
</Response>`

type ec2Server struct {
	mu       sync.Mutex
	requests []map[string][]string
	handle   func(w http.ResponseWriter, action string)
}

func (s *ec2Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, r.PostForm)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/xml;charset=UTF-8")
	s.handle(w, r.PostForm.Get("Action"))
}

func newTestProvider(t *testing.T, handle func(w http.ResponseWriter, action string)) (*Provider, *ec2Server) {
	t.Helper()

	s := &ec2Server{handle: handle}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	client := ec2.New(ec2.Options{
		Region:       "eu-central-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint: aws.String(srv.URL),
		HTTPClient:   srv.Client(),
		Retryer:      aws.NopRetryer{},
	})

	return New(client), s
}

func TestProviderAgainstEC2QueryAPI(t *testing.T) {
	p, s := newTestProvider(t, func(w http.ResponseWriter, action string) {
		switch action {
		case "DescribeInstances":
			fmt.Fprint(w, describeInstancesResponse)
		case "StopInstances":
			fmt.Fprint(w, stopInstancesResponse)
		default:
			http.Error(w, "unexpected action "+action, http.StatusBadRequest)
		}
	})

	ids, err := p.ListRunning(context.Background())
	if err != nil {
		t.Fatalf("failed to list instances: %v", err)
	}
	if diff := deep.Equal(ids, []string{"i-1", "i-2", "i-3"}); diff != nil {
		t.Errorf("unexpected ids: %v", diff)
	}

	if err := p.Stop(context.Background(), ids); err != nil {
		t.Fatalf("failed to stop instances: %v", err)
	}

	if len(s.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(s.requests))
	}

	describe := s.requests[0]
	if got := describe["Filter.1.Name"]; len(got) != 1 || got[0] != "instance-state-name" {
		t.Errorf("unexpected filter name %v", got)
	}
	if got := describe["Filter.1.Value.1"]; len(got) != 1 || got[0] != "running" {
		t.Errorf("unexpected filter value %v", got)
	}
	if _, ok := describe["Filter.2.Name"]; ok {
		t.Error("expected a single filter")
	}

	stop := s.requests[1]
	for i, id := range []string{"i-1", "i-2", "i-3"} {
		key := fmt.Sprintf("InstanceId.%d", i+1)
		if got := stop[key]; len(got) != 1 || got[0] != id {
			t.Errorf("expected %s=%s, got %v", key, id, got)
		}
	}
}

func TestProviderAPIError(t *testing.T) {
	p, s := newTestProvider(t, func(w http.ResponseWriter, _ string) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, unauthorizedResponse)
	})

	_, err := p.ListRunning(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "You are not authorized to perform this operation.") {
		t.Errorf("expected the API message in %q", err.Error())
	}
	if code := ErrorCode(err); code != "UnauthorizedOperation" {
		t.Errorf("expected UnauthorizedOperation, got %q", code)
	}
	if len(s.requests) != 1 {
		t.Errorf("expected a single request without retries, got %d", len(s.requests))
	}
}
