// Package secret resolves credentials such as the OAuth client secret and the
// API signing key from SSM Parameter Store or, in development, the environment.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// Default parameter names.
const (
	ParamGoogleClientSecret = "/drivelookup/google-client-secret"
	ParamJWTSecret          = "/drivelookup/jwt-secret"
	ParamServiceAccountKey  = "/drivelookup/service-account-key"
	ParamAPIGatewaySecret   = "/drivelookup/api-gateway-secret"
)

// ErrNotFound is returned when a secret does not exist in the backend.
var ErrNotFound = errors.New("secret not found")

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver retrieves secret values by parameter name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver fetches SecureString parameters from SSM Parameter Store.
type SSMResolver struct {
	client SSMClient
}

// NewSSMResolver returns a Resolver backed by SSM Parameter Store.
func NewSSMResolver(client SSMClient) *SSMResolver {
	return &SSMResolver{client: client}
}

func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return "", fmt.Errorf("ssm parameter %q: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value: %w", name, ErrNotFound)
	}
	return *out.Parameter.Value, nil
}

// EnvResolver reads secrets from environment variables named after the last
// path segment of the parameter: "/drivelookup/jwt-secret" is JWT_SECRET.
type EnvResolver struct {
	lookup func(string) (string, bool)
}

// NewEnvResolver returns a Resolver that reads from the process environment.
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{lookup: os.LookupEnv}
}

func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := paramNameToEnvVar(name)
	val, ok := r.lookup(envName)
	if !ok || val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q): %w", envName, name, ErrNotFound)
	}
	return val, nil
}

// paramNameToEnvVar converts a parameter path to an environment variable name.
// "/drivelookup/google-client-secret" -> "GOOGLE_CLIENT_SECRET"
func paramNameToEnvVar(name string) string {
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}

// Chain tries each resolver in order and returns the first value found.
// Errors other than ErrNotFound stop the chain.
type Chain []Resolver

func (c Chain) GetSecret(ctx context.Context, name string) (string, error) {
	for _, r := range c {
		val, err := r.GetSecret(ctx, name)
		if err == nil {
			return val, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("secret %q: %w", name, ErrNotFound)
}

// Cached memoizes successful lookups of another Resolver for the life of the
// process, so a warm Lambda does not hit SSM on every request.
type Cached struct {
	next Resolver

	mu     sync.Mutex
	values map[string]string
}

// NewCached wraps next.
func NewCached(next Resolver) *Cached {
	return &Cached{next: next, values: make(map[string]string)}
}

func (c *Cached) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	val, ok := c.values[name]
	c.mu.Unlock()
	if ok {
		return val, nil
	}

	val, err := c.next.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.values[name] = val
	c.mu.Unlock()
	return val, nil
}

// GetOr returns the secret or fallback when it does not exist.
func GetOr(ctx context.Context, r Resolver, name, fallback string) (string, error) {
	val, err := r.GetSecret(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	return val, err
}
