package cloud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclaveai-backend/internal/config"
)

type fakeBedrock struct {
	pages []*bedrock.ListProvisionedModelThroughputsOutput
	err   error
	calls int
}

func (f *fakeBedrock) ListProvisionedModelThroughputs(ctx context.Context, params *bedrock.ListProvisionedModelThroughputsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListProvisionedModelThroughputsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.pages[f.calls]
	f.calls++
	return out, nil
}

func newFakeClient(f *fakeBedrock) *Client {
	return &Client{api: f, region: "us-east-1"}
}

func TestNewRequiresRegion(t *testing.T) {
	_, err := New(context.Background(), config.CloudConfig{})
	assert.Error(t, err)
}

func TestNewAppliesStaticCredentialsAndEndpoint(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newBedrockClient
	defer func() {
		loadDefaultAWSConfig = origLoad
		newBedrockClient = origNew
	}()

	var gotCfg aws.Config
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		opts := awsconfig.LoadOptions{}
		for _, fn := range optFns {
			require.NoError(t, fn(&opts))
		}
		gotCfg = aws.Config{Region: opts.Region, Credentials: opts.Credentials}
		return gotCfg, nil
	}
	var gotEndpoint string
	newBedrockClient = func(cfg aws.Config, optFns ...func(*bedrock.Options)) BedrockAPI {
		o := bedrock.Options{}
		for _, fn := range optFns {
			fn(&o)
		}
		gotEndpoint = aws.ToString(o.BaseEndpoint)
		return &fakeBedrock{}
	}

	c, err := New(context.Background(), config.CloudConfig{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		BaseEndpoint:    "http://localhost:4566",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", c.Region())
	assert.Equal(t, "eu-west-1", gotCfg.Region)
	require.NotNil(t, gotCfg.Credentials)
	creds, err := gotCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIATEST", creds.AccessKeyID)
	assert.Equal(t, "http://localhost:4566", gotEndpoint)
}

func TestListProvisionedThroughputsWalksPagination(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeBedrock{pages: []*bedrock.ListProvisionedModelThroughputsOutput{
		{
			ProvisionedModelSummaries: []types.ProvisionedModelSummary{{
				ProvisionedModelName: aws.String("prod-primary"),
				ProvisionedModelArn:  aws.String("arn:aws:bedrock:us-east-1:123:provisioned-model/abc"),
				ModelArn:             aws.String("arn:aws:bedrock:us-east-1::foundation-model/base"),
				ModelUnits:           aws.Int32(2),
				Status:               types.ProvisionedModelStatusInService,
				CommitmentDuration:   types.CommitmentDurationSixMonths,
				CreationTime:         aws.Time(created),
				LastModifiedTime:     aws.Time(created),
			}},
			NextToken: aws.String("page-2"),
		},
		{
			ProvisionedModelSummaries: []types.ProvisionedModelSummary{{
				ProvisionedModelName: aws.String("staging"),
				ModelUnits:           aws.Int32(1),
				Status:               types.ProvisionedModelStatusCreating,
			}},
		},
	}}
	c := newFakeClient(f)

	instances, err := c.ListProvisionedThroughputs(context.Background())
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, 2, f.calls)

	assert.Equal(t, "prod-primary", instances[0].Name)
	assert.Equal(t, int32(2), instances[0].ModelUnits)
	assert.Equal(t, string(types.ProvisionedModelStatusInService), instances[0].Status)
	assert.Equal(t, created, instances[0].CreatedAt)
	assert.Equal(t, "staging", instances[1].Name)
}

func TestListProvisionedThroughputsError(t *testing.T) {
	c := newFakeClient(&fakeBedrock{err: errors.New("throttled")})
	_, err := c.ListProvisionedThroughputs(context.Background())
	assert.Error(t, err)
}

func TestListRawReturnsFirstPageVerbatim(t *testing.T) {
	page := &bedrock.ListProvisionedModelThroughputsOutput{
		NextToken: aws.String("more"),
	}
	c := newFakeClient(&fakeBedrock{pages: []*bedrock.ListProvisionedModelThroughputsOutput{page}})

	out, err := c.ListRaw(context.Background())
	require.NoError(t, err)
	assert.Same(t, page, out)
}
