package holder

import "context"

// AccountValidator is the gateway directory lookup.
type AccountValidator interface {
	ValidateAccount(ctx context.Context, accountNumber, bankCode string) (string, error)
}

type gatewayProvider struct {
	validator AccountValidator
}

// NewGatewayProvider resolves holder names through the payment
// gateway's account directory.
func NewGatewayProvider(validator AccountValidator) Provider {
	return &gatewayProvider{validator: validator}
}

func (p *gatewayProvider) Name() string { return "gateway" }

func (p *gatewayProvider) Resolve(ctx context.Context, accountNumber, bankCode string) (string, error) {
	return p.validator.ValidateAccount(ctx, accountNumber, bankCode)
}

type staticProvider struct {
	directory map[string]string
}

// NewStaticProvider resolves holder names from a configured
// directory keyed bankCode:accountNumber. It is the fallback when the
// gateway directory is unavailable.
func NewStaticProvider(directory map[string]string) Provider {
	if directory == nil {
		directory = make(map[string]string)
	}
	return &staticProvider{directory: directory}
}

func (p *staticProvider) Name() string { return "static" }

func (p *staticProvider) Resolve(ctx context.Context, accountNumber, bankCode string) (string, error) {
	return p.directory[bankCode+":"+accountNumber], nil
}
