package mysql

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProviderColumns 单渠道状态列，按前缀嵌入注册申请表
type ProviderColumns struct {
	Status         string         `gorm:"column:status;type:varchar(16);not null;default:'';comment:渠道状态"`
	AffiliateID    string         `gorm:"column:affiliate_id;type:varchar(64);not null;default:'';comment:渠道联盟ID"`
	DecisionReason string         `gorm:"column:decision_reason;type:varchar(512);comment:决策原因"`
	ProcessedBy    string         `gorm:"column:processed_by;type:varchar(64);comment:处理人"`
	ProcessedAt    *time.Time     `gorm:"column:processed_at;comment:处理时间"`
	QAResponses    datatypes.JSON `gorm:"column:qa_responses;type:json;comment:问卷回答"`
	Attempts       int            `gorm:"column:attempts;not null;default:0;comment:开通尝试次数"`
}

// SignupModel 注册申请写模型
type SignupModel struct {
	gorm.Model
	SignupID           string          `gorm:"column:signup_id;type:varchar(32);uniqueIndex;not null;comment:注册申请ID"`
	ApplicationType    string          `gorm:"column:application_type;type:varchar(16);index;not null;comment:申请类型"`
	GlobalStatus       string          `gorm:"column:global_status;type:varchar(32);index;not null;comment:全局状态"`
	CompanyName        string          `gorm:"column:company_name;type:varchar(255);not null;comment:公司名称"`
	ContactName        string          `gorm:"column:contact_name;type:varchar(128);not null;comment:联系人"`
	Email              string          `gorm:"column:email;type:varchar(255);index;not null;comment:邮箱"`
	Phone              string          `gorm:"column:phone;type:varchar(32);comment:电话"`
	Website            string          `gorm:"column:website;type:varchar(255);comment:网站"`
	Country            string          `gorm:"column:country;type:varchar(64);comment:国家"`
	TrafficDescription string          `gorm:"column:traffic_description;type:text;comment:流量说明"`
	MinimumPayout      decimal.Decimal `gorm:"column:minimum_payout;type:decimal(20,2);default:0;not null;comment:最低佣金"`
	Cake               ProviderColumns `gorm:"embedded;embeddedPrefix:cake_"`
	Ringba             ProviderColumns `gorm:"embedded;embeddedPrefix:ringba_"`
	Version            int64           `gorm:"column:version;not null;default:0;comment:聚合版本"`
}

func (SignupModel) TableName() string { return "affiliate_signups" }

// NoteModel 审核备注
type NoteModel struct {
	gorm.Model
	SignupID   string `gorm:"column:signup_id;type:varchar(32);index;not null;comment:注册申请ID"`
	AuthorID   string `gorm:"column:author_id;type:varchar(64);not null;comment:作者ID"`
	AuthorName string `gorm:"column:author_name;type:varchar(128);comment:作者"`
	Content    string `gorm:"column:content;type:text;not null;comment:内容"`
}

func (NoteModel) TableName() string { return "affiliate_signup_notes" }

// QAFormModel 渠道资质问卷
type QAFormModel struct {
	gorm.Model
	Provider  string         `gorm:"column:provider;type:varchar(16);index:idx_provider_active;not null;comment:渠道"`
	Name      string         `gorm:"column:name;type:varchar(128);not null;comment:问卷名称"`
	Questions datatypes.JSON `gorm:"column:questions;type:json;not null;comment:问题列表"`
	Active    bool           `gorm:"column:active;index:idx_provider_active;not null;default:false;comment:是否激活"`
	CreatedBy string         `gorm:"column:created_by;type:varchar(64);comment:创建人"`
}

func (QAFormModel) TableName() string { return "affiliate_qa_forms" }

// AutoMigrate 同步表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&SignupModel{}, &NoteModel{}, &QAFormModel{})
}

func toProviderColumns(st *domain.ProviderState) (ProviderColumns, error) {
	if st == nil {
		return ProviderColumns{}, nil
	}
	cols := ProviderColumns{
		Status:         string(st.Status),
		AffiliateID:    st.AffiliateID,
		DecisionReason: st.DecisionReason,
		ProcessedBy:    st.ProcessedBy,
		ProcessedAt:    st.ProcessedAt,
		Attempts:       st.Attempts,
	}
	if len(st.QAResponses) > 0 {
		raw, err := json.Marshal(st.QAResponses)
		if err != nil {
			return ProviderColumns{}, fmt.Errorf("encode qa responses: %w", err)
		}
		cols.QAResponses = datatypes.JSON(raw)
	}
	return cols, nil
}

func toProviderState(cols ProviderColumns) (*domain.ProviderState, error) {
	st := &domain.ProviderState{
		Status:         domain.ProviderStatus(cols.Status),
		AffiliateID:    cols.AffiliateID,
		DecisionReason: cols.DecisionReason,
		ProcessedBy:    cols.ProcessedBy,
		ProcessedAt:    cols.ProcessedAt,
		Attempts:       cols.Attempts,
	}
	if len(cols.QAResponses) > 0 {
		if err := json.Unmarshal(cols.QAResponses, &st.QAResponses); err != nil {
			return nil, fmt.Errorf("decode qa responses: %w", err)
		}
	}
	return st, nil
}

func toSignupModel(s *domain.Signup) (*SignupModel, error) {
	cake, err := toProviderColumns(s.Cake)
	if err != nil {
		return nil, err
	}
	ringba, err := toProviderColumns(s.Ringba)
	if err != nil {
		return nil, err
	}
	return &SignupModel{
		Model: gorm.Model{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
		SignupID:           s.SignupID,
		ApplicationType:    string(s.ApplicationType),
		GlobalStatus:       string(s.GlobalStatus),
		CompanyName:        s.Application.CompanyName,
		ContactName:        s.Application.ContactName,
		Email:              s.Application.Email,
		Phone:              s.Application.Phone,
		Website:            s.Application.Website,
		Country:            s.Application.Country,
		TrafficDescription: s.Application.TrafficDescription,
		MinimumPayout:      s.Application.MinimumPayout,
		Cake:               cake,
		Ringba:             ringba,
		Version:            s.Version(),
	}, nil
}

func toSignup(m *SignupModel) (*domain.Signup, error) {
	cake, err := toProviderState(m.Cake)
	if err != nil {
		return nil, err
	}
	ringba, err := toProviderState(m.Ringba)
	if err != nil {
		return nil, err
	}
	s := &domain.Signup{
		ID:              m.ID,
		SignupID:        m.SignupID,
		ApplicationType: domain.ApplicationType(m.ApplicationType),
		GlobalStatus:    domain.GlobalStatus(m.GlobalStatus),
		Application: domain.ApplicationData{
			CompanyName:        m.CompanyName,
			ContactName:        m.ContactName,
			Email:              m.Email,
			Phone:              m.Phone,
			Website:            m.Website,
			Country:            m.Country,
			TrafficDescription: m.TrafficDescription,
			MinimumPayout:      m.MinimumPayout,
		},
		Cake:      cake,
		Ringba:    ringba,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	// Restore 会丢弃不属于申请类型的渠道条目
	return domain.Restore(s, m.Version), nil
}

// providerUpdates 乐观锁更新时写入的渠道列
func providerUpdates(prefix string, cols ProviderColumns) map[string]any {
	return map[string]any{
		prefix + "status":          cols.Status,
		prefix + "affiliate_id":    cols.AffiliateID,
		prefix + "decision_reason": cols.DecisionReason,
		prefix + "processed_by":    cols.ProcessedBy,
		prefix + "processed_at":    cols.ProcessedAt,
		prefix + "qa_responses":    cols.QAResponses,
		prefix + "attempts":        cols.Attempts,
	}
}

func toNoteModel(n *domain.Note) *NoteModel {
	return &NoteModel{
		Model: gorm.Model{
			ID:        n.ID,
			CreatedAt: n.CreatedAt,
			UpdatedAt: n.UpdatedAt,
		},
		SignupID:   n.SignupID,
		AuthorID:   n.AuthorID,
		AuthorName: n.Author,
		Content:    n.Content,
	}
}

func toNote(m *NoteModel) *domain.Note {
	return &domain.Note{
		ID:        m.ID,
		SignupID:  m.SignupID,
		AuthorID:  m.AuthorID,
		Author:    m.AuthorName,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toQAFormModel(f *domain.QAForm) (*QAFormModel, error) {
	raw, err := json.Marshal(f.Questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	return &QAFormModel{
		Model:     gorm.Model{ID: f.ID, CreatedAt: f.CreatedAt},
		Provider:  string(f.Provider),
		Name:      f.Name,
		Questions: datatypes.JSON(raw),
		Active:    f.Active,
		CreatedBy: f.CreatedBy,
	}, nil
}

func toQAForm(m *QAFormModel) (*domain.QAForm, error) {
	f := &domain.QAForm{
		ID:        m.ID,
		Provider:  domain.Provider(m.Provider),
		Name:      m.Name,
		Active:    m.Active,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Questions) > 0 {
		if err := json.Unmarshal(m.Questions, &f.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}
	return f, nil
}
