package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	amazonsns "github.com/aws/aws-sdk-go-v2/service/sns"
	smithyendpoints "github.com/aws/smithy-go/endpoints"
)

const AWSName = "aws"

var (
	AWSDefaultConfigLoader  = awsconfig.LoadDefaultConfig
	SNSTopicResolverFactory = sns.NewGenerateArnTopicResolver
	SNSPublisherFactory     = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return sns.NewPublisher(cfg, logger)
	}
)

const (
	localstackAccountID = "000000000000"
	awsAccountIDLength  = 12
)

// awsTransport publishes lifecycle events to SNS. Topic ARNs are derived from
// the account and region, so the topic must already exist.
func awsTransport(ctx context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	cfg, err := createAWSConfig(ctx, conf, logger)
	if err != nil {
		return Transport{}, err
	}

	publisher, err := createSNSPublisher(conf, cfg, logger)
	if err != nil {
		return Transport{}, err
	}
	return Transport{Publisher: publisher}, nil
}

func createAWSConfig(ctx context.Context, conf Config, logger watermill.LoggerAdapter) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if region := conf.GetAWSRegion(); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if id, secret := conf.GetAWSAccessKeyID(), conf.GetAWSSecretAccessKey(); id != "" && secret != "" {
		logger.Info("Using static AWS credentials from config", nil)
		opts = append(opts, awsconfig.WithCredentialsProvider(staticCredentialsProvider(id, secret)))
	}

	cfg, err := AWSDefaultConfigLoader(ctx, opts...)
	if err != nil {
		logger.Error("Failed to load AWS default config", err, watermill.LogFields{"requested_region": conf.GetAWSRegion()})
		return aws.Config{}, err
	}
	// the loader may ignore options (e.g. in tests)
	if region := conf.GetAWSRegion(); region != "" {
		cfg.Region = region
	}
	return cfg, nil
}

func createSNSPublisher(conf Config, cfg aws.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	accountID, region := resolveAccountAndRegion(conf, logger, cfg.Region)
	logger.Info("Creating SNS event publisher", watermill.LogFields{
		"accountID": accountID,
		"region":    region,
	})

	topicResolver, err := SNSTopicResolverFactory(accountID, region)
	if err != nil {
		return nil, fmt.Errorf("aws: topic resolver: %w", err)
	}

	endpointOpts, err := snsEndpointOptions(conf.GetAWSEndpoint())
	if err != nil {
		return nil, err
	}

	return SNSPublisherFactory(sns.PublisherConfig{
		TopicResolver: topicResolver,
		AWSConfig:     cfg,
		OptFns:        endpointOpts,
		Marshaler:     sns.DefaultMarshalerUnmarshaler{},
	}, logger)
}

// snsEndpointOptions routes the SNS client to a custom endpoint such as
// LocalStack. An empty endpoint keeps the SDK's resolution.
func snsEndpointOptions(endpoint string) ([]func(*amazonsns.Options), error) {
	if endpoint == "" {
		return nil, nil
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AWS endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("failed to parse AWS endpoint: %q is not absolute", endpoint)
	}
	return []func(*amazonsns.Options){
		amazonsns.WithEndpointResolverV2(sns.OverrideEndpointResolver{
			Endpoint: smithyendpoints.Endpoint{URI: *parsed},
		}),
	}, nil
}

func resolveAccountAndRegion(conf Config, logger watermill.LoggerAdapter, fallbackRegion string) (string, string) {
	accountID := strings.Trim(conf.GetAWSAccountID(), "\"' ")
	region := conf.GetAWSRegion()
	if region == "" {
		region = fallbackRegion
	}

	localstack := conf.GetAWSEndpoint() != ""
	if localstack && len(accountID) != awsAccountIDLength {
		logger.Info("Using LocalStack default AWS account ID", watermill.LogFields{"configured": accountID})
		accountID = localstackAccountID
	}
	return accountID, region
}

func staticCredentialsProvider(accessKeyID, secretAccessKey string) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
		}, nil
	})
}
