package artifact_source

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const defaultAwsRegion = "us-east-1"

type AwsConnection struct {
	Region                *string `hcl:"region"`
	Profile               *string `hcl:"profile"`
	AccessKey             *string `hcl:"access_key"`
	SecretKey             *string `hcl:"secret_key"`
	SessionToken          *string `hcl:"session_token"`
	MaxErrorRetryAttempts *int    `hcl:"max_error_retry_attempts"`
	MinErrorRetryDelay    *int    `hcl:"min_error_retry_delay"`
	EndpointUrl           *string `hcl:"endpoint_url"`
	S3ForcePathStyle      *bool   `hcl:"s3_force_path_style"`
}

func (c *AwsConnection) Validate() error {
	if c.AccessKey != nil && c.SecretKey == nil {
		return fmt.Errorf("access_key set without secret_key")
	}

	if c.AccessKey == nil && c.SecretKey != nil {
		return fmt.Errorf("secret_key set without access_key")
	}

	if c.MinErrorRetryDelay != nil && *c.MinErrorRetryDelay < 1 {
		return fmt.Errorf("min_error_retry_delay must be greater than or equal to 1")
	}

	if c.MaxErrorRetryAttempts != nil && *c.MaxErrorRetryAttempts < 1 {
		return fmt.Errorf("max_error_retry_attempts must be greater than or equal to 1")
	}

	return nil
}

func (c *AwsConnection) Identifier() string {
	return "aws"
}

// GetClientConfiguration builds the SDK configuration, sharing the download transport settings of httpConn
func (c *AwsConnection) GetClientConfiguration(ctx context.Context, httpConn *HttpConnection) (*aws.Config, error) {
	var configOptions []func(*config.LoadOptions) error

	// profile
	if c.Profile != nil {
		configOptions = append(configOptions, config.WithSharedConfigProfile(aws.ToString(c.Profile)))
	}

	// access keys
	if c.AccessKey != nil && c.SecretKey != nil {
		provider := credentials.NewStaticCredentialsProvider(aws.ToString(c.AccessKey), aws.ToString(c.SecretKey), aws.ToString(c.SessionToken))
		configOptions = append(configOptions, config.WithCredentialsProvider(provider))
	}

	configOptions = append(configOptions, config.WithHTTPClient(newAwsHTTPClient(httpConn)))

	cfg, err := config.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}

	// an explicit region wins, otherwise fall back when the environment has none
	if c.Region != nil {
		cfg.Region = *c.Region
	} else if cfg.Region == "" {
		cfg.Region = defaultAwsRegion
	}

	// retry handling
	maxRetries := getConfigOrEnvInt(c.MaxErrorRetryAttempts, "AWS_MAX_ATTEMPTS", 9)
	var minRetryDelay = 25 * time.Millisecond
	if c.MinErrorRetryDelay != nil {
		minRetryDelay = time.Duration(*c.MinErrorRetryDelay) * time.Millisecond
	}

	retryer := retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = maxRetries
		o.MaxBackoff = 5 * time.Minute
		o.RateLimiter = NoOpRateLimit{}
		o.Backoff = NewExponentialJitterBackoff(minRetryDelay, maxRetries)
	})
	cfg.Retryer = func() aws.Retryer {
		// UnknownError is the code returned for a 408 from the aws go sdk
		return retry.AddWithErrorCodes(retryer, "UnknownError")
	}

	return &cfg, nil
}

// endpointUrl returns the custom endpoint, e.g. for an S3 compatible store, or "" for AWS
func (c *AwsConnection) endpointUrl() string {
	return getConfigOrEnv(c.EndpointUrl, "AWS_ENDPOINT_URL")
}

func (c *AwsConnection) forcePathStyle() bool {
	return c.S3ForcePathStyle != nil && *c.S3ForcePathStyle
}

// newAwsHTTPClient keeps the SDK's default transport settings, adding the connection limit and DNS cache
func newAwsHTTPClient(httpConn *HttpConnection) aws.HTTPClient {
	client := awshttp.NewBuildableClient()
	dialer := client.GetDialer()
	return client.WithTransportOptions(func(tr *http.Transport) {
		httpConn.applyTransport(tr, dialer)
	})
}

// Helper function to get value from Config or environment variable
func getConfigOrEnv(configValue *string, env string) string {
	if configValue != nil {
		return *configValue
	}

	return os.Getenv(env)
}

func getConfigOrEnvInt(configValue *int, env string, defaultValue int) int {
	if configValue != nil {
		return *configValue
	}

	return readEnvVarToInt(env, defaultValue)
}

// Helper function for integer based environment variables.
func readEnvVarToInt(name string, defaultVal int) int {
	val := defaultVal
	envValue := os.Getenv(name)
	if envValue != "" {
		i, err := strconv.Atoi(envValue)
		if err == nil {
			val = i
		}
	}
	return val
}

// NoOpRateLimit https://github.com/aws/aws-sdk-go-v2/issues/543
type NoOpRateLimit struct{}

func (NoOpRateLimit) AddTokens(uint) error { return nil }
func (NoOpRateLimit) GetToken(context.Context, uint) (func() error, error) {
	return noOpToken, nil
}
func noOpToken() error { return nil }

// ExponentialJitterBackoff provides backoff delays with jitter based on the
// number of attempts.
type ExponentialJitterBackoff struct {
	minDelay           time.Duration
	maxBackoffAttempts int
}

// NewExponentialJitterBackoff returns an ExponentialJitterBackoff configured
// for the max backoff.
func NewExponentialJitterBackoff(minDelay time.Duration, maxAttempts int) *ExponentialJitterBackoff {
	return &ExponentialJitterBackoff{minDelay, maxAttempts}
}

// BackoffDelay returns the duration to wait before the next attempt should be made.
func (j *ExponentialJitterBackoff) BackoffDelay(attempt int, err error) (time.Duration, error) {
	// The calculated jitter will be between [0.8, 1.2)
	var jitter = float64(rand.Intn(120-80)+80) / 100

	retryTime := time.Duration(float64(j.minDelay.Nanoseconds()) * math.Pow(3, float64(attempt)) * jitter)

	// Cap retry time at 5 minutes
	if retryTime > 5*time.Minute || retryTime < 0 {
		retryTime = 5 * time.Minute
	}

	slog.Info("BackoffDelay:", "attempt", attempt, "retry_time", retryTime.String(), "error", err)

	return retryTime, nil
}
