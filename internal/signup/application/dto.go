package application

import (
	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/utils"
)

// ApplicationDTO 申请资料
type ApplicationDTO struct {
	CompanyName        string `json:"company_name"`
	ContactName        string `json:"contact_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone,omitempty"`
	Website            string `json:"website,omitempty"`
	Country            string `json:"country,omitempty"`
	TrafficDescription string `json:"traffic_description,omitempty"`
	MinimumPayout      string `json:"minimum_payout"`
}

// ProviderStateDTO 单渠道状态
type ProviderStateDTO struct {
	Provider       domain.Provider       `json:"provider"`
	Status         domain.ProviderStatus `json:"status"`
	AffiliateID    string                `json:"affiliate_id,omitempty"`
	DecisionReason string                `json:"decision_reason,omitempty"`
	ProcessedBy    string                `json:"processed_by,omitempty"`
	ProcessedAt    int64                 `json:"processed_at,omitempty"`
	Attempts       int                   `json:"attempts"`
	QAResponses    []domain.QAResponse   `json:"qa_responses,omitempty"`
}

// SignupDTO 注册申请详情，渠道列表只包含查看者可见的渠道
type SignupDTO struct {
	SignupID         string                  `json:"signup_id"`
	ApplicationType  domain.ApplicationType  `json:"application_type"`
	GlobalStatus     domain.GlobalStatus     `json:"global_status"`
	DisplayStatus    domain.DisplayStatus    `json:"display_status"`
	Resolved         bool                    `json:"resolved"` // 所有相关渠道均已通过或拒绝
	Application      ApplicationDTO          `json:"application"`
	Providers        []ProviderStateDTO      `json:"providers"`
	AvailableActions domain.AvailableActions `json:"available_actions"`
	CreatedAt        int64                   `json:"created_at"`
	UpdatedAt        int64                   `json:"updated_at"`
}

// SignupSummaryDTO 列表行
type SignupSummaryDTO struct {
	SignupID        string                 `json:"signup_id"`
	CompanyName     string                 `json:"company_name"`
	ApplicationType domain.ApplicationType `json:"application_type"`
	GlobalStatus    domain.GlobalStatus    `json:"global_status"`
	DisplayStatus   domain.DisplayStatus   `json:"display_status"`
	CreatedAt       int64                  `json:"created_at"`
}

// SignupListDTO 分页列表
type SignupListDTO struct {
	Items []SignupSummaryDTO `json:"items"`
	utils.Pagination
}

// ProviderOutcomeDTO 一次决策中单渠道的结果
type ProviderOutcomeDTO struct {
	Provider    domain.Provider       `json:"provider"`
	Status      domain.ProviderStatus `json:"status"`
	AffiliateID string                `json:"affiliate_id,omitempty"`
	Reason      string                `json:"reason,omitempty"`
}

// DecisionResult 决策结果，部分成功同样如实返回
type DecisionResult struct {
	SignupID      string                `json:"signup_id"`
	Action        domain.DecisionAction `json:"action"`
	Outcomes      []ProviderOutcomeDTO  `json:"outcomes"`
	GlobalStatus  domain.GlobalStatus   `json:"global_status"`
	DisplayStatus domain.DisplayStatus  `json:"display_status"`
}

// NoteDTO 备注
type NoteDTO struct {
	ID        uint   `json:"id"`
	SignupID  string `json:"signup_id"`
	AuthorID  string `json:"author_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// QAFormDTO 资质问卷
type QAFormDTO struct {
	ID        uint              `json:"id"`
	Provider  domain.Provider   `json:"provider"`
	Name      string            `json:"name"`
	Questions []domain.Question `json:"questions"`
	Active    bool              `json:"active"`
	CreatedBy string            `json:"created_by"`
	CreatedAt int64             `json:"created_at"`
}

func toApplicationDTO(d domain.ApplicationData) ApplicationDTO {
	return ApplicationDTO{
		CompanyName:        d.CompanyName,
		ContactName:        d.ContactName,
		Email:              d.Email,
		Phone:              d.Phone,
		Website:            d.Website,
		Country:            d.Country,
		TrafficDescription: d.TrafficDescription,
		MinimumPayout:      d.MinimumPayout.StringFixed(2),
	}
}

func toProviderStateDTO(p domain.Provider, st *domain.ProviderState) ProviderStateDTO {
	dto := ProviderStateDTO{
		Provider:       p,
		Status:         st.Status,
		AffiliateID:    st.AffiliateID,
		DecisionReason: st.DecisionReason,
		ProcessedBy:    st.ProcessedBy,
		Attempts:       st.Attempts,
		QAResponses:    st.QAResponses,
	}
	if st.ProcessedAt != nil {
		dto.ProcessedAt = st.ProcessedAt.Unix()
	}
	return dto
}

// toSignupDTO 按操作人可见范围组装详情
func toSignupDTO(s *domain.Signup, actor domain.Actor) *SignupDTO {
	dto := &SignupDTO{
		SignupID:         s.SignupID,
		ApplicationType:  s.ApplicationType,
		GlobalStatus:     s.GlobalStatus,
		DisplayStatus:    domain.DeriveStatus(s, actor.ViewerScope()),
		Resolved:         s.IsResolved(),
		Application:      toApplicationDTO(s.Application),
		Providers:        make([]ProviderStateDTO, 0, 2),
		AvailableActions: domain.ComputeAvailableActions(s, actor),
		CreatedAt:        s.CreatedAt.Unix(),
		UpdatedAt:        s.UpdatedAt.Unix(),
	}
	for _, p := range s.ApplicationType.RelevantProviders() {
		if !actor.Sees(p) {
			continue
		}
		dto.Providers = append(dto.Providers, toProviderStateDTO(p, s.State(p)))
	}
	return dto
}

func toNoteDTO(n *domain.Note) NoteDTO {
	return NoteDTO{
		ID:        n.ID,
		SignupID:  n.SignupID,
		AuthorID:  n.AuthorID,
		Author:    n.Author,
		Content:   n.Content,
		CreatedAt: n.CreatedAt.Unix(),
		UpdatedAt: n.UpdatedAt.Unix(),
	}
}

func toQAFormDTO(f *domain.QAForm) *QAFormDTO {
	return &QAFormDTO{
		ID:        f.ID,
		Provider:  f.Provider,
		Name:      f.Name,
		Questions: f.Questions,
		Active:    f.Active,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt.Unix(),
	}
}
