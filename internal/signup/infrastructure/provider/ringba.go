package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/config"
)

type ringbaPublisherRequest struct {
	Name        string `json:"name"`
	ExternalID  string `json:"externalId"`
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Country     string `json:"country,omitempty"`
	Description string `json:"description,omitempty"`
}

type ringbaPublisherResponse struct {
	Publisher struct {
		ID string `json:"id"`
	} `json:"publisher"`
}

// RingbaProvisioner 在 Ringba 账户下创建 publisher
type RingbaProvisioner struct {
	client    *client
	apiToken  string
	accountID string
}

// NewRingbaProvisioner 创建 Ringba 开通客户端
func NewRingbaProvisioner(cfg config.ProviderConfig, logger *slog.Logger) *RingbaProvisioner {
	return &RingbaProvisioner{
		client:    newClient(domain.ProviderRingba, cfg, logger),
		apiToken:  cfg.APIKey,
		accountID: cfg.AccountID,
	}
}

func (p *RingbaProvisioner) Provider() domain.Provider { return domain.ProviderRingba }

// Provision POST /{accountId}/publishers
func (p *RingbaProvisioner) Provision(ctx context.Context, signupID string, data domain.ApplicationData) (string, error) {
	req := ringbaPublisherRequest{
		Name:        data.CompanyName,
		ExternalID:  signupID,
		ContactName: data.ContactName,
		Email:       data.Email,
		Phone:       data.Phone,
		Country:     data.Country,
		Description: data.TrafficDescription,
	}
	headers := map[string]string{"Authorization": "Token " + p.apiToken}
	path := "/" + url.PathEscape(p.accountID) + "/publishers"

	var resp ringbaPublisherResponse
	if err := p.client.post(ctx, path, headers, req, &resp); err != nil {
		return "", err
	}
	if resp.Publisher.ID == "" {
		return "", fmt.Errorf("ringba response carried no publisher id")
	}
	return resp.Publisher.ID, nil
}
