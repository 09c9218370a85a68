/*
 * @module api/controllers/config_controller
 * @description 配置控制器，管理上游API凭据
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow HTTP请求 -> 参数验证 -> 凭据服务调用 -> 响应返回
 * @rules 凭据明文只在请求体中出现，响应不回传任何密钥材料；录入新凭据后重建上游客户端
 * @dependencies service/credentials
 * @refs api/routes.go
 */

package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"datasync-service/service"
	"datasync-service/service/credentials"
)

// ConfigController 配置控制器
type ConfigController struct {
	credentialService *credentials.CredentialService
}

// NewConfigController 创建配置控制器
func NewConfigController() *ConfigController {
	return &ConfigController{
		credentialService: service.GlobalCredentialService,
	}
}

// CredentialStoreRequest 凭据录入请求
type CredentialStoreRequest struct {
	Subdomain string `json:"subdomain" binding:"required" example:"construtora-x"`
	APIUser   string `json:"api_user" binding:"required" example:"svc-integration"`
	Password  string `json:"password" binding:"required"`
}

// CredentialVerifyRequest 凭据校验请求
type CredentialVerifyRequest struct {
	Subdomain string `json:"subdomain" binding:"required" example:"construtora-x"`
	Password  string `json:"password" binding:"required"`
}

// StoreCredential 录入API凭据
// @Summary 录入API凭据
// @Description 加密存储一组上游API凭据并激活，原有激活凭据自动停用
// @Tags 配置管理
// @Accept json
// @Produce json
// @Param credential body CredentialStoreRequest true "凭据信息"
// @Success 200 {object} APIResponse "录入成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /config/credentials [post]
func (c *ConfigController) StoreCredential(w http.ResponseWriter, r *http.Request) {
	if c.credentialService == nil {
		render.JSON(w, r, InternalErrorResponse("凭据服务未启用，请配置CREDENTIAL_MASTER_KEY", nil))
		return
	}

	var req CredentialStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err.Error()))
		return
	}
	if req.Subdomain == "" || req.APIUser == "" || req.Password == "" {
		render.JSON(w, r, BadRequestResponse("subdomain、api_user和password不能为空", nil))
		return
	}

	cred, err := c.credentialService.Store(req.Subdomain, req.APIUser, req.Password)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("凭据存储失败: "+err.Error(), nil))
		return
	}

	// 凭据变更后重建上游客户端
	if service.GlobalFetcher != nil {
		service.GlobalFetcher.Reset()
	}

	render.JSON(w, r, SuccessResponse("录入成功", map[string]interface{}{
		"id":        cred.ID,
		"subdomain": cred.Subdomain,
		"api_user":  cred.APIUser,
	}))
}

// VerifyCredential 校验API凭据
// @Summary 校验API凭据
// @Description 用bcrypt哈希比对指定子域的密码是否正确
// @Tags 配置管理
// @Accept json
// @Produce json
// @Param credential body CredentialVerifyRequest true "校验信息"
// @Success 200 {object} APIResponse "校验结果"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 404 {object} APIResponse "没有激活的凭据"
// @Router /config/credentials/verify [post]
func (c *ConfigController) VerifyCredential(w http.ResponseWriter, r *http.Request) {
	if c.credentialService == nil {
		render.JSON(w, r, InternalErrorResponse("凭据服务未启用，请配置CREDENTIAL_MASTER_KEY", nil))
		return
	}

	var req CredentialVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err.Error()))
		return
	}

	valid, err := c.credentialService.Verify(req.Subdomain, req.Password)
	if errors.Is(err, credentials.ErrNoActiveCredential) {
		render.JSON(w, r, NotFoundResponse("没有激活的凭据", nil))
		return
	}
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("凭据校验失败: "+err.Error(), nil))
		return
	}

	render.JSON(w, r, SuccessResponse("校验完成", map[string]interface{}{"valid": valid}))
}

// GetActiveCredential 查询激活凭据信息
// @Summary 查询激活凭据信息
// @Description 返回当前激活凭据的非敏感信息
// @Tags 配置管理
// @Produce json
// @Success 200 {object} APIResponse{data=models.ApiCredential} "查询成功"
// @Failure 404 {object} APIResponse "没有激活的凭据"
// @Router /config/credentials [get]
func (c *ConfigController) GetActiveCredential(w http.ResponseWriter, r *http.Request) {
	if c.credentialService == nil {
		render.JSON(w, r, InternalErrorResponse("凭据服务未启用，请配置CREDENTIAL_MASTER_KEY", nil))
		return
	}

	info, err := c.credentialService.ActiveCredentialInfo()
	if errors.Is(err, credentials.ErrNoActiveCredential) {
		render.JSON(w, r, NotFoundResponse("没有激活的凭据", nil))
		return
	}
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询凭据失败: "+err.Error(), nil))
		return
	}

	render.JSON(w, r, SuccessResponse("查询成功", info))
}
