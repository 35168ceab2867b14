// Package http 注册审核 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/affiliateops/internal/signup/application"
	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/logger"
)

// SignupHandler HTTP 处理器
type SignupHandler struct {
	service *application.SignupApplicationService
}

// NewSignupHandler 创建 HTTP 处理器
func NewSignupHandler(service *application.SignupApplicationService) *SignupHandler {
	return &SignupHandler{service: service}
}

// RegisterRoutes 注册路由，decideMiddleware 仅作用于审批决策接口
func (h *SignupHandler) RegisterRoutes(router *gin.Engine, decideMiddleware ...gin.HandlerFunc) {
	api := router.Group("/api/v1")
	{
		api.POST("/signups", h.CreateSignup)
		api.GET("/signups", h.ListSignups)
		api.GET("/signups/:id", h.GetSignup)
		api.GET("/signups/:id/actions", h.GetAvailableActions)
		api.POST("/signups/:id/decisions", append(decideMiddleware, h.Decide)...)
		api.POST("/signups/:id/request-approval", h.RequestApproval)
		api.PUT("/signups/:id/application-type", h.UpdateApplicationType)

		api.GET("/signups/:id/notes", h.ListNotes)
		api.POST("/signups/:id/notes", h.AddNote)
		api.PUT("/notes/:noteId", h.EditNote)
		api.DELETE("/notes/:noteId", h.DeleteNote)

		api.POST("/qa-forms", h.CreateQAForm)
		api.GET("/qa-forms/:provider/active", h.GetActiveForm)
	}
}

// CreateSignupRequest 注册申请创建请求
type CreateSignupRequest struct {
	ApplicationType    string `json:"application_type" binding:"required"`
	CompanyName        string `json:"company_name" binding:"required"`
	ContactName        string `json:"contact_name" binding:"required"`
	Email              string `json:"email" binding:"required"`
	Phone              string `json:"phone"`
	Website            string `json:"website"`
	Country            string `json:"country"`
	TrafficDescription string `json:"traffic_description"`
	MinimumPayout      string `json:"minimum_payout"`
}

// CreateSignup 创建注册申请（申请人提交，无需操作人）
func (h *SignupHandler) CreateSignup(c *gin.Context) {
	var req CreateSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payout := decimal.Zero
	if req.MinimumPayout != "" {
		var err error
		if payout, err = decimal.NewFromString(req.MinimumPayout); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid minimum_payout"})
			return
		}
	}

	id, err := h.service.CreateSignup(c.Request.Context(), application.CreateSignupCommand{
		ApplicationType: req.ApplicationType,
		Application: domain.ApplicationData{
			CompanyName:        req.CompanyName,
			ContactName:        req.ContactName,
			Email:              req.Email,
			Phone:              req.Phone,
			Website:            req.Website,
			Country:            req.Country,
			TrafficDescription: req.TrafficDescription,
			MinimumPayout:      payout,
		},
	})
	if err != nil {
		writeError(c, "Failed to create signup", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"signup_id": id})
}

// ListSignups 分页列出注册申请
func (h *SignupHandler) ListSignups(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	list, err := h.service.ListSignups(c.Request.Context(), application.ListSignupsQuery{
		Actor:           actor,
		ApplicationType: c.Query("application_type"),
		GlobalStatus:    c.Query("global_status"),
		Page:            page,
		PageSize:        pageSize,
	})
	if err != nil {
		writeError(c, "Failed to list signups", err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetSignup 获取注册申请详情，只包含操作人可见的渠道
func (h *SignupHandler) GetSignup(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	signup, err := h.service.GetSignup(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		writeError(c, "Failed to get signup", err)
		return
	}

	c.JSON(http.StatusOK, signup)
}

// GetAvailableActions 查询操作人当前可执行的动作
func (h *SignupHandler) GetAvailableActions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	actions, err := h.service.AvailableActions(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		writeError(c, "Failed to compute available actions", err)
		return
	}

	c.JSON(http.StatusOK, actions)
}

// DecideRequest 审批决策请求
type DecideRequest struct {
	Action string `json:"action" binding:"required"`
	// 为空时作用于所有可操作渠道
	Providers []string `json:"providers"`
	Reason    string   `json:"reason"`
	// provider -> question_id -> answer
	Answers map[string]map[string]string `json:"answers"`
}

// Decide 审批或拒绝注册申请
func (h *SignupHandler) Decide(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd, err := req.toCommand(c.Param("id"), actor)
	if err != nil {
		writeError(c, "Invalid decision request", err)
		return
	}

	result, err := h.service.Decide(c.Request.Context(), cmd)
	if err != nil && result != nil {
		// 部分渠道结果已落库，连同错误一起返回
		logger.Error(c.Request.Context(), "decision partially persisted", "signup_id", cmd.SignupID, "outcomes", len(result.Outcomes), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "decision partially persisted", "result": result})
		return
	}
	if err != nil {
		writeError(c, "Failed to decide signup", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (r DecideRequest) toCommand(signupID string, actor domain.Actor) (application.DecideCommand, error) {
	action, err := domain.ParseDecisionAction(r.Action)
	if err != nil {
		return application.DecideCommand{}, err
	}
	cmd := application.DecideCommand{
		SignupID: signupID,
		Actor:    actor,
		Action:   action,
		Reason:   r.Reason,
	}
	for _, name := range r.Providers {
		p, err := domain.ParseProvider(name)
		if err != nil {
			return application.DecideCommand{}, err
		}
		cmd.Targets = append(cmd.Targets, p)
	}
	if len(r.Answers) > 0 {
		cmd.Answers = make(map[domain.Provider]domain.Answers, len(r.Answers))
		for name, answers := range r.Answers {
			p, err := domain.ParseProvider(name)
			if err != nil {
				return application.DecideCommand{}, err
			}
			cmd.Answers[p] = answers
		}
	}
	return cmd, nil
}

// RequestApproval 提交审批请求
func (h *SignupHandler) RequestApproval(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	signup, err := h.service.RequestApproval(c.Request.Context(), application.RequestApprovalCommand{
		SignupID: c.Param("id"),
		Actor:    actor,
	})
	if err != nil {
		writeError(c, "Failed to request approval", err)
		return
	}

	c.JSON(http.StatusOK, signup)
}

// UpdateApplicationTypeRequest 修改申请类型请求
type UpdateApplicationTypeRequest struct {
	ApplicationType string `json:"application_type" binding:"required"`
}

// UpdateApplicationType 修改申请类型
func (h *SignupHandler) UpdateApplicationType(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req UpdateApplicationTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	signup, err := h.service.UpdateApplicationType(c.Request.Context(), application.UpdateApplicationTypeCommand{
		SignupID:        c.Param("id"),
		Actor:           actor,
		ApplicationType: req.ApplicationType,
	})
	if err != nil {
		writeError(c, "Failed to update application type", err)
		return
	}

	c.JSON(http.StatusOK, signup)
}

// NoteRequest 备注请求
type NoteRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListNotes 列出备注
func (h *SignupHandler) ListNotes(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	notes, err := h.service.ListNotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Failed to list notes", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": notes})
}

// AddNote 添加备注
func (h *SignupHandler) AddNote(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.service.AddNote(c.Request.Context(), application.AddNoteCommand{
		SignupID: c.Param("id"),
		Actor:    actor,
		Content:  req.Content,
	})
	if err != nil {
		writeError(c, "Failed to add note", err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

// EditNote 修改备注
func (h *SignupHandler) EditNote(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	noteID, ok := noteIDFrom(c)
	if !ok {
		return
	}
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	note, err := h.service.EditNote(c.Request.Context(), application.EditNoteCommand{
		NoteID:  noteID,
		Actor:   actor,
		Content: req.Content,
	})
	if err != nil {
		writeError(c, "Failed to edit note", err)
		return
	}

	c.JSON(http.StatusOK, note)
}

// DeleteNote 删除备注
func (h *SignupHandler) DeleteNote(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	noteID, ok := noteIDFrom(c)
	if !ok {
		return
	}
	if err := h.service.DeleteNote(c.Request.Context(), noteID, actor); err != nil {
		writeError(c, "Failed to delete note", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// QuestionRequest 问卷问题
type QuestionRequest struct {
	ID        string   `json:"id" binding:"required"`
	Text      string   `json:"text" binding:"required"`
	FieldType string   `json:"field_type"`
	Required  bool     `json:"required"`
	Options   []string `json:"options"`
}

// CreateQAFormRequest 创建问卷请求
type CreateQAFormRequest struct {
	Provider  string            `json:"provider" binding:"required"`
	Name      string            `json:"name" binding:"required"`
	Questions []QuestionRequest `json:"questions" binding:"dive"`
}

// CreateQAForm 创建并激活渠道问卷
func (h *SignupHandler) CreateQAForm(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req CreateQAFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]domain.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = domain.Question{
			ID:        q.ID,
			Text:      q.Text,
			FieldType: domain.FieldType(q.FieldType),
			Required:  q.Required,
			Options:   q.Options,
		}
	}

	form, err := h.service.CreateQAForm(c.Request.Context(), application.CreateQAFormCommand{
		Actor:     actor,
		Provider:  req.Provider,
		Name:      req.Name,
		Questions: questions,
	})
	if err != nil {
		writeError(c, "Failed to create qa form", err)
		return
	}

	c.JSON(http.StatusCreated, form)
}

// GetActiveForm 获取渠道当前激活问卷
func (h *SignupHandler) GetActiveForm(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	form, err := h.service.ActiveForm(c.Request.Context(), c.Param("provider"))
	if err != nil {
		writeError(c, "Failed to get active qa form", err)
		return
	}

	c.JSON(http.StatusOK, form)
}

func noteIDFrom(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("noteId"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note id"})
		return 0, false
	}
	return uint(id), true
}

// writeError 将领域错误映射为 HTTP 状态码
func writeError(c *gin.Context, msg string, err error) {
	ctx := c.Request.Context()

	var incomplete *domain.IncompleteAnswerError
	switch {
	case errors.As(err, &incomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":         err.Error(),
			"provider":      incomplete.Provider,
			"question_id":   incomplete.QuestionID,
			"question_text": incomplete.QuestionText,
		})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSignupNotFound), errors.Is(err, domain.ErrNoteNotFound), errors.Is(err, domain.ErrFormNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyProvisioned), errors.Is(err, domain.ErrConcurrentUpdate), errors.Is(err, domain.ErrLockNotAcquired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrProviderNotApplicable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(ctx, msg, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
