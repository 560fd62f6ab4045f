// Package cloud talks to the managed model provider. The only call the
// product needs is listing provisioned model throughputs, the provider's
// capacity/billing unit for dedicated deployments.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"

	"enclaveai-backend/internal/config"
	"enclaveai-backend/internal/models"
)

// BedrockAPI is the slice of the provider SDK the client uses
type BedrockAPI interface {
	ListProvisionedModelThroughputs(ctx context.Context, params *bedrock.ListProvisionedModelThroughputsInput, optFns ...func(*bedrock.Options)) (*bedrock.ListProvisionedModelThroughputsOutput, error)
}

// Indirections for tests
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newBedrockClient = func(cfg aws.Config, optFns ...func(*bedrock.Options)) BedrockAPI {
		return bedrock.NewFromConfig(cfg, optFns...)
	}
)

// Client wraps the provider API for the admin console and proxy
type Client struct {
	api    BedrockAPI
	region string
}

// New builds the provider client. Static credentials are used when
// configured; otherwise the SDK's default chain applies. BaseEndpoint
// overrides the endpoint for private links and local stubs.
func New(ctx context.Context, cfg config.CloudConfig) (*Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("cloud: region is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cloud: load aws config: %w", err)
	}
	api := newBedrockClient(awsCfg, func(o *bedrock.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
	})
	return &Client{api: api, region: cfg.Region}, nil
}

// Region returns the configured provider region
func (c *Client) Region() string { return c.region }

// ListRaw returns the provider's first page verbatim, for the proxy
// endpoint which passes the result through untouched.
func (c *Client) ListRaw(ctx context.Context) (*bedrock.ListProvisionedModelThroughputsOutput, error) {
	return c.api.ListProvisionedModelThroughputs(ctx, &bedrock.ListProvisionedModelThroughputsInput{})
}

// ListProvisionedThroughputs returns all provisioned throughputs, walking
// pagination.
func (c *Client) ListProvisionedThroughputs(ctx context.Context) ([]models.ProvisionedInstance, error) {
	var instances []models.ProvisionedInstance
	input := &bedrock.ListProvisionedModelThroughputsInput{}
	for {
		out, err := c.api.ListProvisionedModelThroughputs(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("cloud: list provisioned throughputs: %w", err)
		}
		for _, s := range out.ProvisionedModelSummaries {
			instances = append(instances, models.ProvisionedInstance{
				Name:           aws.ToString(s.ProvisionedModelName),
				ARN:            aws.ToString(s.ProvisionedModelArn),
				ModelARN:       aws.ToString(s.ModelArn),
				ModelUnits:     aws.ToInt32(s.ModelUnits),
				Status:         string(s.Status),
				Commitment:     string(s.CommitmentDuration),
				CreatedAt:      aws.ToTime(s.CreationTime),
				LastModifiedAt: aws.ToTime(s.LastModifiedTime),
			})
		}
		if out.NextToken == nil {
			return instances, nil
		}
		input.NextToken = out.NextToken
	}
}
