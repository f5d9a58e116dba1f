package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jazz-17/reservation-system/config"
	"github.com/jazz-17/reservation-system/internal/dto"
	"github.com/jazz-17/reservation-system/internal/model"
	"github.com/jazz-17/reservation-system/internal/repository"
	"github.com/jazz-17/reservation-system/pkg/jwt"
)

func setupAuthService() (AuthService, *repository.Repository) {
	repo, _, _ := newMockRepository()
	authCfg := &config.AuthConfig{
		JWTSecret:               "test-secret-at-least-16-chars",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 7 * 24 * time.Hour,
	}
	// Redis 传 nil：拉黑走降级路径
	svc := NewAuthService(repo, jwt.NewManager(authCfg), nil, authCfg, zap.NewNop())
	return svc, repo
}

func seedAllowListEntry(repo *repository.Repository, email string) {
	base := 2024
	_ = repo.AllowList.Create(context.Background(), &model.AllowListEntry{
		Email:    email,
		Name:     "María Quispe",
		School:   "Ingeniería de Sistemas",
		BaseYear: &base,
	})
}

func TestAuth_Register_CopiesGroupFromAllowList(t *testing.T) {
	svc, repo := setupAuthService()
	seedAllowListEntry(repo, "maria@example.edu.pe")

	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "María Quispe",
		Email:    "  Maria@Example.edu.pe ", // 大小写与空白应归一化
		Password: "contraseña-segura",
	})
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	if resp.Email != "maria@example.edu.pe" {
		t.Errorf("邮箱应归一化为小写，实际=%s", resp.Email)
	}
	if resp.Role != "student" {
		t.Errorf("期望角色 student，实际=%s", resp.Role)
	}
	if resp.School != "Ingeniería de Sistemas" || resp.BaseYear == nil || *resp.BaseYear != 2024 {
		t.Errorf("分组信息应从白名单条目复制，实际 school=%s base=%v", resp.School, resp.BaseYear)
	}

	// 密码以 bcrypt 哈希落库
	user, _ := repo.User.GetByEmail(context.Background(), "maria@example.edu.pe")
	if user == nil {
		t.Fatal("用户未落库")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("contraseña-segura")); err != nil {
		t.Error("落库的密码哈希无法验证原密码")
	}
}

func TestAuth_Register_NotAllowed(t *testing.T) {
	svc, _ := setupAuthService()

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "Intruso",
		Email:    "intruso@example.com",
		Password: "contraseña-segura",
	})
	if err != ErrEmailNotAllowed {
		t.Errorf("期望 ErrEmailNotAllowed，实际=%v", err)
	}
}

func TestAuth_Register_EmailTaken(t *testing.T) {
	svc, repo := setupAuthService()
	seedAllowListEntry(repo, "maria@example.edu.pe")

	req := &dto.RegisterRequest{
		Name:     "María Quispe",
		Email:    "maria@example.edu.pe",
		Password: "contraseña-segura",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("首次注册失败: %v", err)
	}
	if _, err := svc.Register(context.Background(), req); err != ErrEmailTaken {
		t.Errorf("期望 ErrEmailTaken，实际=%v", err)
	}
}

func TestAuth_LoginAndRefresh(t *testing.T) {
	svc, repo := setupAuthService()
	seedAllowListEntry(repo, "maria@example.edu.pe")

	if _, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "María Quispe",
		Email:    "maria@example.edu.pe",
		Password: "contraseña-segura",
	}); err != nil {
		t.Fatalf("注册失败: %v", err)
	}

	tokens, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "maria@example.edu.pe",
		Password: "contraseña-segura",
	})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("期望签发 token 对")
	}
	if tokens.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("期望 ExpiresIn=900，实际=%d", tokens.ExpiresIn)
	}

	refreshed, err := svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.RefreshToken,
	})
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("刷新应签发新 access token")
	}
}

func TestAuth_Login_WrongPassword(t *testing.T) {
	svc, repo := setupAuthService()
	seedAllowListEntry(repo, "maria@example.edu.pe")

	if _, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "María Quispe",
		Email:    "maria@example.edu.pe",
		Password: "contraseña-segura",
	}); err != nil {
		t.Fatalf("注册失败: %v", err)
	}

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "maria@example.edu.pe",
		Password: "otra-contraseña",
	}); err != ErrInvalidCredentials {
		t.Errorf("期望 ErrInvalidCredentials，实际=%v", err)
	}
	// 用户不存在时返回同一错误，不泄露账号是否存在
	if _, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nadie@example.edu.pe",
		Password: "lo-que-sea",
	}); err != ErrInvalidCredentials {
		t.Errorf("期望 ErrInvalidCredentials，实际=%v", err)
	}
}

func TestAuth_RefreshToken_RejectsAccessToken(t *testing.T) {
	svc, repo := setupAuthService()
	seedAllowListEntry(repo, "maria@example.edu.pe")

	if _, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "María Quispe",
		Email:    "maria@example.edu.pe",
		Password: "contraseña-segura",
	}); err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	tokens, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "maria@example.edu.pe",
		Password: "contraseña-segura",
	})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	// access token 不能用于刷新
	if _, err := svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: tokens.AccessToken,
	}); err != ErrInvalidRefreshToken {
		t.Errorf("期望 ErrInvalidRefreshToken，实际=%v", err)
	}
	if _, err := svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: "basura",
	}); err != ErrInvalidRefreshToken {
		t.Errorf("期望 ErrInvalidRefreshToken，实际=%v", err)
	}
}

func TestAuth_Logout_RedisDegraded(t *testing.T) {
	svc, _ := setupAuthService()

	// Redis 为 nil 时拉黑降级为 no-op，不报错
	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Errorf("降级运行时注销不应报错: %v", err)
	}
}

func TestAuth_GetCurrentUser_NotFound(t *testing.T) {
	svc, _ := setupAuthService()

	if _, err := svc.GetCurrentUser(context.Background(), "no-existe"); err != ErrUserNotFound {
		t.Errorf("期望 ErrUserNotFound，实际=%v", err)
	}
}
