package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/auth"
	"github.com/parentmeet/parentmeet/internal/model"
)

// UserService отвечает за учётные записи и профили учителей и родителей
type UserService struct {
	users    UserRepo
	teachers TeacherRepo
	parents  ParentRepo
	auth     *auth.Manager
	logger   *zap.Logger
}

func NewUserService(users UserRepo, teachers TeacherRepo, parents ParentRepo, authManager *auth.Manager, logger *zap.Logger) *UserService {
	return &UserService{
		users:    users,
		teachers: teachers,
		parents:  parents,
		auth:     authManager,
		logger:   logger,
	}
}

// RegisterInput — данные регистрации. Профильные поля зависят от роли.
type RegisterInput struct {
	Email          string         `json:"email"`
	Password       string         `json:"password"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Role           model.UserRole `json:"role"`
	Phone          string         `json:"phone"`
	TelegramChatID *int64         `json:"telegram_chat_id,omitempty"`

	// Для роли teacher
	Subject string  `json:"subject,omitempty"`
	Office  *string `json:"office,omitempty"`

	// Для роли parent
	StudentName  string `json:"student_name,omitempty"`
	StudentClass string `json:"student_class,omitempty"`
}

// Register создаёт пользователя и профиль под его роль
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.Role != model.RoleAdmin && in.Role != model.RoleTeacher && in.Role != model.RoleParent {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:          in.Email,
		PasswordHash:   hash,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Role:           in.Role,
		Phone:          in.Phone,
		TelegramChatID: in.TelegramChatID,
		IsActive:       true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	switch in.Role {
	case model.RoleTeacher:
		teacher := &model.Teacher{UserID: user.ID, Subject: in.Subject, Office: in.Office}
		if err := s.teachers.Create(ctx, teacher); err != nil {
			return nil, err
		}
	case model.RoleParent:
		parent := &model.Parent{UserID: user.ID, StudentName: in.StudentName, StudentClass: in.StudentClass}
		if err := s.parents.Create(ctx, parent); err != nil {
			return nil, err
		}
	}

	s.logger.Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)

	return user, nil
}

// Login проверяет пароль и выдаёт access-токен
func (s *UserService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("account is deactivated: %w", ErrForbidden)
	}

	token, err := s.auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("User logged in", zap.Int64("user_id", user.ID))

	return token, user, nil
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return user, nil
}

// List получает пользователей постранично
func (s *UserService) List(ctx context.Context, skip, limit int) ([]*model.User, error) {
	return s.users.List(ctx, skip, limit)
}

// UserUpdateInput — изменяемые поля пользователя
type UserUpdateInput struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Phone          string `json:"phone"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
	IsActive       *bool  `json:"is_active,omitempty"`
}

// Update обновляет данные пользователя
func (s *UserService) Update(ctx context.Context, id int64, in UserUpdateInput) (*model.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != "" && in.Email != user.Email {
		existing, err := s.users.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if existing != nil {
			return nil, ErrEmailTaken
		}
		user.Email = in.Email
	}
	if in.FirstName != "" {
		user.FirstName = in.FirstName
	}
	if in.LastName != "" {
		user.LastName = in.LastName
	}
	if in.Phone != "" {
		user.Phone = in.Phone
	}
	if in.TelegramChatID != nil {
		user.TelegramChatID = in.TelegramChatID
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User updated", zap.Int64("user_id", id))

	return user, nil
}

// Delete удаляет пользователя
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("User deleted", zap.Int64("user_id", id))

	return nil
}

// GetTeacher получает профиль учителя
func (s *UserService) GetTeacher(ctx context.Context, id int64) (*model.Teacher, error) {
	teacher, err := s.teachers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, fmt.Errorf("teacher %d: %w", id, ErrNotFound)
	}
	return teacher, nil
}

// GetTeacherByUserID получает профиль учителя по пользователю
func (s *UserService) GetTeacherByUserID(ctx context.Context, userID int64) (*model.Teacher, error) {
	teacher, err := s.teachers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, fmt.Errorf("teacher profile for user %d: %w", userID, ErrNotFound)
	}
	return teacher, nil
}

// ListTeachers получает учителей, опционально по предмету
func (s *UserService) ListTeachers(ctx context.Context, subject string, skip, limit int) ([]*model.Teacher, error) {
	return s.teachers.List(ctx, subject, skip, limit)
}

// UpdateTeacher обновляет профиль учителя
func (s *UserService) UpdateTeacher(ctx context.Context, id int64, subject string, office *string) (*model.Teacher, error) {
	teacher, err := s.GetTeacher(ctx, id)
	if err != nil {
		return nil, err
	}

	if subject != "" {
		teacher.Subject = subject
	}
	if office != nil {
		teacher.Office = office
	}

	if err := s.teachers.Update(ctx, teacher); err != nil {
		return nil, err
	}

	return teacher, nil
}

// DeleteTeacher удаляет профиль учителя
func (s *UserService) DeleteTeacher(ctx context.Context, id int64) error {
	if _, err := s.GetTeacher(ctx, id); err != nil {
		return err
	}
	return s.teachers.Delete(ctx, id)
}

// GetParent получает профиль родителя
func (s *UserService) GetParent(ctx context.Context, id int64) (*model.Parent, error) {
	parent, err := s.parents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("parent %d: %w", id, ErrNotFound)
	}
	return parent, nil
}

// GetParentByUserID получает профиль родителя по пользователю
func (s *UserService) GetParentByUserID(ctx context.Context, userID int64) (*model.Parent, error) {
	parent, err := s.parents.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("parent profile for user %d: %w", userID, ErrNotFound)
	}
	return parent, nil
}

// ListParents получает родителей постранично
func (s *UserService) ListParents(ctx context.Context, skip, limit int) ([]*model.Parent, error) {
	return s.parents.List(ctx, skip, limit)
}

// UpdateParent обновляет профиль родителя
func (s *UserService) UpdateParent(ctx context.Context, id int64, studentName, studentClass string) (*model.Parent, error) {
	parent, err := s.GetParent(ctx, id)
	if err != nil {
		return nil, err
	}

	if studentName != "" {
		parent.StudentName = studentName
	}
	if studentClass != "" {
		parent.StudentClass = studentClass
	}

	if err := s.parents.Update(ctx, parent); err != nil {
		return nil, err
	}

	return parent, nil
}

// DeleteParent удаляет профиль родителя
func (s *UserService) DeleteParent(ctx context.Context, id int64) error {
	if _, err := s.GetParent(ctx, id); err != nil {
		return err
	}
	return s.parents.Delete(ctx, id)
}
