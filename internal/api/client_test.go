package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/altinukshini/log-hound/internal/model"
)

type fakeLogs struct {
	region    string
	started   []*cloudwatchlogs.StartQueryInput
	stopped   []string
	startErr  error
	status    types.QueryStatus
	results   [][]types.ResultField
	groups    [][]string
	pageCalls int
}

func (f *fakeLogs) StartQuery(_ context.Context, in *cloudwatchlogs.StartQueryInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error) {
	f.started = append(f.started, in)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &cloudwatchlogs.StartQueryOutput{QueryId: aws.String("q-" + f.region)}, nil
}

func (f *fakeLogs) GetQueryResults(_ context.Context, in *cloudwatchlogs.GetQueryResultsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error) {
	return &cloudwatchlogs.GetQueryResultsOutput{Status: f.status, Results: f.results}, nil
}

func (f *fakeLogs) StopQuery(_ context.Context, in *cloudwatchlogs.StopQueryInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error) {
	f.stopped = append(f.stopped, aws.ToString(in.QueryId))
	return &cloudwatchlogs.StopQueryOutput{Success: true}, nil
}

func (f *fakeLogs) DescribeLogGroups(_ context.Context, in *cloudwatchlogs.DescribeLogGroupsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	page := f.groups[f.pageCalls]
	f.pageCalls++
	out := &cloudwatchlogs.DescribeLogGroupsOutput{}
	for _, name := range page {
		out.LogGroups = append(out.LogGroups, types.LogGroup{LogGroupName: aws.String(name)})
	}
	if f.pageCalls < len(f.groups) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func newTestClient(fakes map[string]*fakeLogs) *Client {
	c := NewClient("", "us-east-1")
	c.newLogs = func(_ context.Context, _, region string) (logsAPI, error) {
		f, ok := fakes[region]
		if !ok {
			return nil, errors.New("no such region")
		}
		return f, nil
	}
	return c
}

func TestSubmitRoutesByRegion(t *testing.T) {
	east := &fakeLogs{region: "us-east-1"}
	west := &fakeLogs{region: "eu-west-1"}
	c := newTestClient(map[string]*fakeLogs{"us-east-1": east, "eu-west-1": west})

	r := model.TimeRange{
		Start: time.Date(2026, 1, 23, 5, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 23, 6, 0, 0, 0, time.UTC),
	}
	handle, err := c.Submit(context.Background(), SubmitRequest{
		Target:    model.Target{Region: "eu-west-1", SourceName: "app/prod"},
		TimeRange: r,
		Patterns:  []string{"ERROR"},
		Limit:     50,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if handle != "q-eu-west-1" {
		t.Errorf("handle = %q", handle)
	}
	if len(west.started) != 1 || len(east.started) != 0 {
		t.Fatalf("started east=%d west=%d", len(east.started), len(west.started))
	}
	in := west.started[0]
	if aws.ToString(in.LogGroupName) != "app/prod" {
		t.Errorf("log group = %q", aws.ToString(in.LogGroupName))
	}
	if aws.ToInt64(in.StartTime) != r.Start.Unix() || aws.ToInt64(in.EndTime) != r.End.Unix() {
		t.Errorf("window = %d..%d", aws.ToInt64(in.StartTime), aws.ToInt64(in.EndTime))
	}
}

func TestSubmitUnknownRegionIsRejected(t *testing.T) {
	c := newTestClient(map[string]*fakeLogs{})
	_, err := c.Submit(context.Background(), SubmitRequest{Target: model.Target{Region: "xx-none-1", SourceName: "g"}})
	if !errors.Is(err, ErrBackendRejected) {
		t.Errorf("error = %v, want ErrBackendRejected", err)
	}
}

func TestSubmitClassifiesAPIErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"}, ErrBackendThrottled},
		{"limit exceeded", &smithy.GenericAPIError{Code: "LimitExceededException"}, ErrBackendThrottled},
		{"unavailable", &smithy.GenericAPIError{Code: "ServiceUnavailableException", Fault: smithy.FaultServer}, ErrBackendTransient},
		{"server fault", &smithy.GenericAPIError{Code: "SomethingNew", Fault: smithy.FaultServer}, ErrBackendTransient},
		{"malformed", &smithy.GenericAPIError{Code: "MalformedQueryException"}, ErrBackendRejected},
		{"not found", &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, ErrBackendRejected},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDeniedException"}, ErrBackendRejected},
		{"no code", errors.New("invalid character in response"), ErrBackendRejected},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, ErrBackendTransient},
		{"send failure", &smithyhttp.RequestSendError{Err: errors.New("connection reset by peer")}, ErrBackendTransient},
		{"missing credentials", &smithy.OperationError{
			ServiceID:     "CloudWatch Logs",
			OperationName: "StartQuery",
			Err:           fmt.Errorf("get identity: %w", errors.New("failed to refresh cached credentials, no EC2 IMDS role found")),
		}, ErrBackendRejected},
		{"credentials behind a dead metadata endpoint", &smithy.OperationError{
			ServiceID:     "CloudWatch Logs",
			OperationName: "StartQuery",
			Err: fmt.Errorf("get identity: %w", &smithy.OperationError{
				ServiceID:     "ec2imds",
				OperationName: "GetMetadata",
				Err:           &smithyhttp.RequestSendError{Err: errors.New("dial tcp 169.254.169.254:80: connect: host is down")},
			}),
		}, ErrBackendRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeLogs{region: "us-east-1", startErr: tt.err}
			c := newTestClient(map[string]*fakeLogs{"us-east-1": f})
			_, err := c.Submit(context.Background(), SubmitRequest{Target: model.Target{Region: "us-east-1", SourceName: "g"}})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubmitPassesContextErrorsThrough(t *testing.T) {
	f := &fakeLogs{region: "us-east-1", startErr: context.Canceled}
	c := newTestClient(map[string]*fakeLogs{"us-east-1": f})
	_, err := c.Submit(context.Background(), SubmitRequest{Target: model.Target{Region: "us-east-1", SourceName: "g"}})
	if !errors.Is(err, context.Canceled) || Retryable(err) {
		t.Errorf("error = %v, want bare context.Canceled", err)
	}
}

func TestPollStatuses(t *testing.T) {
	row := []types.ResultField{
		{Field: aws.String("@timestamp"), Value: aws.String("2026-01-23 05:36:05.200")},
		{Field: aws.String("@message"), Value: aws.String("ERROR boom")},
	}
	tests := []struct {
		status     types.QueryStatus
		wantStatus PollStatus
		wantErr    error
	}{
		{types.QueryStatusScheduled, PollRunning, nil},
		{types.QueryStatusRunning, PollRunning, nil},
		{types.QueryStatusComplete, PollDone, nil},
		{types.QueryStatusFailed, 0, ErrBackendRejected},
		{types.QueryStatusCancelled, 0, ErrBackendRejected},
		{types.QueryStatusTimeout, 0, ErrBackendTransient},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := &fakeLogs{region: "us-east-1", status: tt.status, results: [][]types.ResultField{row}}
			c := newTestClient(map[string]*fakeLogs{"us-east-1": f})
			res, err := c.Poll(context.Background(), model.Target{Region: "us-east-1", SourceName: "g"}, "q")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", res.Status, tt.wantStatus)
			}
			if len(res.Records) != 1 {
				t.Errorf("records = %d, want 1", len(res.Records))
			}
		})
	}
}

func TestCancelStopsQuery(t *testing.T) {
	f := &fakeLogs{region: "us-east-1"}
	c := newTestClient(map[string]*fakeLogs{"us-east-1": f})
	if err := c.Cancel(context.Background(), model.Target{Region: "us-east-1", SourceName: "g"}, "q-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(f.stopped) != 1 || f.stopped[0] != "q-1" {
		t.Errorf("stopped = %v", f.stopped)
	}
}

func TestListLogGroupsPages(t *testing.T) {
	f := &fakeLogs{region: "us-east-1", groups: [][]string{{"a", "b"}, {"c"}}}
	c := newTestClient(map[string]*fakeLogs{"us-east-1": f})
	got, err := c.ListLogGroups(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ListLogGroups: %v", err)
	}
	if len(got) != 3 || got[2] != "c" {
		t.Errorf("groups = %v", got)
	}
}

func TestClientReusesRegionalClients(t *testing.T) {
	calls := 0
	c := NewClient("", "us-east-1")
	c.newLogs = func(_ context.Context, _, region string) (logsAPI, error) {
		calls++
		return &fakeLogs{region: region}, nil
	}
	for i := 0; i < 3; i++ {
		if _, err := c.logs(context.Background(), ""); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Errorf("client created %d times, want 1", calls)
	}
}
