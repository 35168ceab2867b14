package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/config"
)

type cakeAffiliateRequest struct {
	ExternalID         string `json:"external_id"`
	CompanyName        string `json:"company_name"`
	ContactName        string `json:"contact_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone,omitempty"`
	Website            string `json:"website,omitempty"`
	Country            string `json:"country,omitempty"`
	TrafficDescription string `json:"traffic_description,omitempty"`
	MinimumPayout      string `json:"minimum_payout"`
}

type cakeAffiliateResponse struct {
	AffiliateID string `json:"affiliate_id"`
}

// CakeProvisioner 在 Cake 创建联盟账号
type CakeProvisioner struct {
	client *client
	apiKey string
}

// NewCakeProvisioner 创建 Cake 开通客户端
func NewCakeProvisioner(cfg config.ProviderConfig, logger *slog.Logger) *CakeProvisioner {
	return &CakeProvisioner{
		client: newClient(domain.ProviderCake, cfg, logger),
		apiKey: cfg.APIKey,
	}
}

func (p *CakeProvisioner) Provider() domain.Provider { return domain.ProviderCake }

// Provision POST /api/affiliates
func (p *CakeProvisioner) Provision(ctx context.Context, signupID string, data domain.ApplicationData) (string, error) {
	req := cakeAffiliateRequest{
		ExternalID:         signupID,
		CompanyName:        data.CompanyName,
		ContactName:        data.ContactName,
		Email:              data.Email,
		Phone:              data.Phone,
		Website:            data.Website,
		Country:            data.Country,
		TrafficDescription: data.TrafficDescription,
		MinimumPayout:      data.MinimumPayout.StringFixed(2),
	}
	var resp cakeAffiliateResponse
	if err := p.client.post(ctx, "/api/affiliates", map[string]string{"X-Api-Key": p.apiKey}, req, &resp); err != nil {
		return "", err
	}
	if resp.AffiliateID == "" {
		return "", fmt.Errorf("cake response carried no affiliate_id")
	}
	return resp.AffiliateID, nil
}
