package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Email      string `json:"email"    binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RegisterRequest 注册请求（仅白名单邮箱可注册）
type RegisterRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserResponse 用户信息
type UserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	School   string `json:"school,omitempty"`
	BaseYear *int   `json:"base_year,omitempty"`
}

// TokenResponse 登录/刷新响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// ── 注册白名单（管理端）──

// CreateAllowListEntryRequest 录入白名单条目
type CreateAllowListEntryRequest struct {
	Email    string `json:"email"  binding:"required,email"`
	Name     string `json:"name"   binding:"omitempty,max=100"`
	School   string `json:"school" binding:"omitempty,max=100"`
	BaseYear *int   `json:"base_year" binding:"omitempty,min=2000,max=2100"`
}

// AllowListEntryResponse 白名单条目详情
type AllowListEntryResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	School    string `json:"school,omitempty"`
	BaseYear  *int   `json:"base_year,omitempty"`
	CreatedAt string `json:"created_at"`
}
