package api

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/altinukshini/log-hound/internal/model"
)

// logsAPI is the subset of the CloudWatch Logs client the backend needs.
type logsAPI interface {
	StartQuery(ctx context.Context, in *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResults(ctx context.Context, in *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error)
	StopQuery(ctx context.Context, in *cloudwatchlogs.StopQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error)
	DescribeLogGroups(ctx context.Context, in *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
}

// Client is the CloudWatch Logs Insights backend. It keeps one SDK client
// per region, created on first use and shared by every job in that region.
type Client struct {
	profile       string
	defaultRegion string
	logger        *zap.Logger
	newLogs       func(ctx context.Context, profile, region string) (logsAPI, error)

	mu      sync.Mutex
	regions map[string]logsAPI
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a backend using the default AWS credential chain,
// optionally pinned to a shared-config profile.
func NewClient(profile, defaultRegion string, opts ...Option) *Client {
	c := &Client{
		profile:       profile,
		defaultRegion: defaultRegion,
		logger:        zap.NewNop(),
		newLogs:       loadLogsClient,
		regions:       make(map[string]logsAPI),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) DefaultRegion() string {
	return c.defaultRegion
}

func loadLogsClient(ctx context.Context, profile, region string) (logsAPI, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	// Retries are owned by the query job, not the SDK.
	return cloudwatchlogs.NewFromConfig(cfg, func(o *cloudwatchlogs.Options) {
		o.RetryMaxAttempts = 1
	}), nil
}

func (c *Client) logs(ctx context.Context, region string) (logsAPI, error) {
	if region == "" {
		region = c.defaultRegion
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.regions[region]; ok {
		return l, nil
	}
	l, err := c.newLogs(ctx, c.profile, region)
	if err != nil {
		return nil, Rejected("load aws config", "ConfigError", fmt.Sprintf("region %s: %v", region, err))
	}
	c.regions[region] = l
	c.logger.Debug("created cloudwatch logs client", zap.String("region", region))
	return l, nil
}

func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	l, err := c.logs(ctx, req.Target.Region)
	if err != nil {
		return "", err
	}
	query := BuildQuery(req.Patterns, req.Limit)
	c.logger.Debug("start query",
		zap.Stringer("target", req.Target),
		zap.String("query", query))

	out, err := l.StartQuery(ctx, &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(req.Target.SourceName),
		StartTime:    aws.Int64(req.TimeRange.Start.Unix()),
		EndTime:      aws.Int64(req.TimeRange.End.Unix()),
		QueryString:  aws.String(query),
	})
	if err != nil {
		return "", classifyAWS("start query", err)
	}
	if out.QueryId == nil || *out.QueryId == "" {
		return "", Transient("start query", "", "no query id returned")
	}
	return *out.QueryId, nil
}

func (c *Client) Poll(ctx context.Context, target model.Target, handle string) (PollResult, error) {
	l, err := c.logs(ctx, target.Region)
	if err != nil {
		return PollResult{}, err
	}
	out, err := l.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{
		QueryId: aws.String(handle),
	})
	if err != nil {
		return PollResult{}, classifyAWS("get query results", err)
	}

	records := convertResults(out.Results)
	switch out.Status {
	case types.QueryStatusComplete:
		return PollResult{Status: PollDone, Records: records}, nil
	case types.QueryStatusFailed:
		return PollResult{}, Rejected("get query results", string(out.Status), "query "+handle+" failed")
	case types.QueryStatusCancelled:
		return PollResult{}, Rejected("get query results", string(out.Status), "query "+handle+" was cancelled by the service")
	case types.QueryStatusTimeout:
		return PollResult{}, Transient("get query results", string(out.Status), "query "+handle+" timed out on the service")
	default:
		// Scheduled, Running, Unknown
		return PollResult{Status: PollRunning, Records: records}, nil
	}
}

func (c *Client) Cancel(ctx context.Context, target model.Target, handle string) error {
	l, err := c.logs(ctx, target.Region)
	if err != nil {
		return err
	}
	_, err = l.StopQuery(ctx, &cloudwatchlogs.StopQueryInput{QueryId: aws.String(handle)})
	if err != nil {
		return classifyAWS("stop query", err)
	}
	return nil
}

// ListLogGroups returns every log group name in region, optionally
// restricted to a name prefix.
func (c *Client) ListLogGroups(ctx context.Context, region, prefix string) ([]string, error) {
	l, err := c.logs(ctx, region)
	if err != nil {
		return nil, err
	}
	in := &cloudwatchlogs.DescribeLogGroupsInput{}
	if prefix != "" {
		in.LogGroupNamePrefix = aws.String(prefix)
	}

	var names []string
	p := cloudwatchlogs.NewDescribeLogGroupsPaginator(l, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe log groups: %w", classifyAWS("describe log groups", err))
		}
		for _, g := range out.LogGroups {
			if g.LogGroupName != nil {
				names = append(names, *g.LogGroupName)
			}
		}
	}
	return names, nil
}

func convertResults(rows [][]types.ResultField) []Record {
	if len(rows) == 0 {
		return nil
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, 0, len(row))
		for _, f := range row {
			if f.Field == nil {
				continue
			}
			rec = append(rec, Field{Name: *f.Field, Value: aws.ToString(f.Value)})
		}
		records = append(records, rec)
	}
	return records
}

func classifyAWS(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return classify(op, err, apiErr.ErrorCode(), apiErr.ErrorMessage(), apiErr.ErrorFault() == smithy.FaultServer)
	}
	if credentialFailure(err) {
		return &Error{Kind: KindRejected, Op: op, Code: "CredentialsError", Err: err}
	}
	return classify(op, err, "", "", false)
}

// credentialFailure reports whether a call failed inside another service's
// operation (IMDS, STS, SSO), which only happens while resolving
// credentials. Such failures are not fixed by retrying the query.
func credentialFailure(err error) bool {
	var outer *smithy.OperationError
	if !errors.As(err, &outer) {
		return false
	}
	var inner *smithy.OperationError
	return errors.As(outer.Err, &inner)
}
