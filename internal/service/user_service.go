package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/config"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/repository"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
	pkgerrors "github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserSelfRoleChange   = errors.New("不能修改自己的角色")
	ErrUserSelfDelete       = errors.New("不能删除自己")
	ErrUsernameExists       = errors.New("用户名已存在")
	ErrIdentificationExists = errors.New("证件号已存在")
	ErrInvalidRole          = errors.New("角色无效")
	ErrUserFieldsRequired   = errors.New("证件号、用户名、密码和角色均为必填")
)

// UserService 用户业务接口，除 EnsureAdmin 外均要求调用者为 ADMIN
type UserService interface {
	CreateUser(ctx context.Context, caller *session.Identity, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, caller *session.Identity, id string) (*dto.UserResponse, error)
	List(ctx context.Context, caller *session.Identity, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	ListCandidates(ctx context.Context, caller *session.Identity) ([]dto.UserResponse, error)
	Update(ctx context.Context, caller *session.Identity, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	AssignRole(ctx context.Context, caller *session.Identity, id string, req *dto.AssignRoleRequest) error
	Delete(ctx context.Context, caller *session.Identity, id string) error
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportVoters(ctx context.Context, caller *session.Identity, rows []ImportUserRow) (*dto.ImportUserResponse, error)
	// EnsureAdmin 启动时创建初始管理员，已存在同名用户时跳过
	EnsureAdmin(ctx context.Context, seed config.SeedConfig) error
}

// ImportUserRow Excel 导入解析后的单行数据
type ImportUserRow struct {
	Row            int
	Identificacion string
	Username       string
	Password       string
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, caller *session.Identity, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Identificacion == "" || req.Username == "" || req.Password == "" || req.Role == "" {
		return nil, ErrUserFieldsRequired
	}
	if !model.ValidRole(req.Role) {
		return nil, ErrInvalidRole
	}

	if err := s.checkUnique(ctx, req.Username, req.Identificacion, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Identificacion: req.Identificacion,
		Username:       req.Username,
		PasswordHash:   string(hash),
		Role:           req.Role,
	}
	user.CreatedBy = &caller.UserID

	if err := s.repo.User.Create(ctx, user); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			// 并发创建同名用户
			return nil, ErrUsernameExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	return toUserResponse(user), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, caller *session.Identity, id string) (*dto.UserResponse, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, caller *session.Identity, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, 0, err
	}

	filters := &repository.UserListFilters{
		Role:    req.Role,
		Keyword: req.Keyword,
	}

	users, total, err := s.repo.User.ListWithFilters(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}

	return result, total, nil
}

// ────────────────────── ListCandidates ──────────────────────

func (s *userService) ListCandidates(ctx context.Context, caller *session.Identity) ([]dto.UserResponse, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.repo.User.ListByRole(ctx, model.RoleCandidato)
	if err != nil {
		s.logger.Error("列出候选人失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, caller *session.Identity, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if err := s.checkUnique(ctx, *req.Username, "", id); err != nil {
			return nil, err
		}
		user.Username = *req.Username
	}
	if req.Role != nil && *req.Role != user.Role {
		if id == caller.UserID {
			return nil, ErrUserSelfRoleChange
		}
		if !model.ValidRole(*req.Role) {
			return nil, ErrInvalidRole
		}
		user.Role = *req.Role
	}

	user.UpdatedBy = &caller.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrUsernameExists
		}
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toUserResponse(user), nil
}

// ────────────────────── AssignRole ──────────────────────

func (s *userService) AssignRole(ctx context.Context, caller *session.Identity, id string, req *dto.AssignRoleRequest) error {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return err
	}
	if id == caller.UserID {
		return ErrUserSelfRoleChange
	}
	if !model.ValidRole(req.Role) {
		return ErrInvalidRole
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	user.Role = req.Role
	user.UpdatedBy = &caller.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("分配角色失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, caller *session.Identity, id string) error {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return err
	}
	if id == caller.UserID {
		return ErrUserSelfDelete
	}

	if err := s.repo.User.Delete(ctx, id, caller.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（证件号/用户名/密码）")
)

// ParseImportFile 解析投票人导入 Excel 文件
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["identificacion"] < 0 || colIndex["username"] < 0 || colIndex["password"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportUserRow{Row: i + 1}

		if idx := colIndex["identificacion"]; idx < len(row) {
			item.Identificacion = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["username"]; idx < len(row) {
			item.Username = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["password"]; idx < len(row) {
			item.Password = strings.TrimSpace(row[idx])
		}

		// 跳过全空行
		if item.Identificacion == "" && item.Username == "" && item.Password == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"identificacion": -1,
		"username":       -1,
		"password":       -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch lower {
		case "证件号", "identificacion", "identificación", "id":
			idx["identificacion"] = i
		case "用户名", "username", "usuario":
			idx["username"] = i
		case "密码", "password", "contraseña", "contrasena":
			idx["password"] = i
		}
	}
	return idx
}

// ────────────────────── ImportVoters ──────────────────────

func (s *userService) ImportVoters(ctx context.Context, caller *session.Identity, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}

	resp := &dto.ImportUserResponse{Total: len(rows)}

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row  ImportUserRow
		hash []byte
	}
	var validRows []validatedRow
	seenUsername := make(map[string]bool)
	seenIdent := make(map[string]bool)

	for _, row := range rows {
		if row.Identificacion == "" || row.Username == "" || row.Password == "" {
			fail(row.Row, "必填字段为空")
			continue
		}
		if seenUsername[row.Username] {
			fail(row.Row, fmt.Sprintf("文件内用户名重复: %s", row.Username))
			continue
		}
		if seenIdent[row.Identificacion] {
			fail(row.Row, fmt.Sprintf("文件内证件号重复: %s", row.Identificacion))
			continue
		}
		if _, err := s.repo.User.GetByUsername(ctx, row.Username); err == nil {
			fail(row.Row, fmt.Sprintf("用户名已存在: %s", row.Username))
			continue
		}
		if _, err := s.repo.User.GetByIdentificacion(ctx, row.Identificacion); err == nil {
			fail(row.Row, fmt.Sprintf("证件号已存在: %s", row.Identificacion))
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(row.Password), bcrypt.DefaultCost)
		if err != nil {
			fail(row.Row, "密码哈希失败")
			continue
		}

		seenUsername[row.Username] = true
		seenIdent[row.Identificacion] = true
		validRows = append(validRows, validatedRow{row: row, hash: hash})
	}

	// 第二阶段：在事务中批量创建所有通过校验的投票人
	if len(validRows) > 0 {
		err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
			for _, vr := range validRows {
				user := &model.User{
					Identificacion: vr.row.Identificacion,
					Username:       vr.row.Username,
					PasswordHash:   string(vr.hash),
					Role:           model.RoleVotante,
				}
				user.CreatedBy = &caller.UserID

				if err := txRepo.User.Create(ctx, user); err != nil {
					s.logger.Error("导入投票人写入失败，事务回滚",
						zap.Int("row", vr.row.Row), zap.Error(err))
					return fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		resp.Success = len(validRows)
	}

	return resp, nil
}

// ────────────────────── EnsureAdmin ──────────────────────

func (s *userService) EnsureAdmin(ctx context.Context, seed config.SeedConfig) error {
	if seed.AdminUsername == "" {
		return nil
	}

	if _, err := s.repo.User.GetByUsername(ctx, seed.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询初始管理员失败", zap.Error(err))
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	ident := seed.AdminIdentificacion
	if ident == "" {
		ident = seed.AdminUsername
	}

	admin := &model.User{
		Identificacion: ident,
		Username:       seed.AdminUsername,
		PasswordHash:   string(hash),
		Role:           model.RoleAdmin,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			// 多实例同时启动
			return nil
		}
		s.logger.Error("创建初始管理员失败", zap.Error(err))
		return err
	}

	s.logger.Info("已创建初始管理员", zap.String("username", admin.Username))
	return nil
}

// ── 内部辅助方法 ──

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// checkUnique 检查用户名、证件号唯一性；空字符串跳过，excludeID 为被更新的用户
func (s *userService) checkUnique(ctx context.Context, username, identificacion, excludeID string) error {
	if username != "" {
		existing, err := s.repo.User.GetByUsername(ctx, username)
		if err == nil && existing.UserID != excludeID {
			return ErrUsernameExists
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if identificacion != "" {
		existing, err := s.repo.User.GetByIdentificacion(ctx, identificacion)
		if err == nil && existing.UserID != excludeID {
			return ErrIdentificationExists
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}

// toUserResponse 将 model.User 转换为 dto.UserResponse
func toUserResponse(user *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:             user.UserID,
		Identificacion: user.Identificacion,
		Username:       user.Username,
		Role:           user.Role,
	}
	if !user.CreatedAt.IsZero() {
		resp.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
