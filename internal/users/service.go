package users

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/RK2301/classify-backend/internal/apierr"
	"github.com/RK2301/classify-backend/internal/broker"
	"github.com/RK2301/classify-backend/internal/logger"
	"github.com/RK2301/classify-backend/internal/repos"
	"github.com/RK2301/classify-backend/internal/types"
	"github.com/RK2301/classify-backend/internal/uow"
)

var nationalIDPattern = regexp.MustCompile(`^\d{9}$`)

type CreateUserInput struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      string
}

// Service owns the user registry. Users are keyed by national id so every
// service's projection speaks about the same person.
type Service interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*types.User, error)
	UpdateUser(ctx context.Context, userID string, patch types.UserPatch) (*types.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

type service struct {
	db  *gorm.DB
	log *logger.Logger
	uow *uow.UnitOfWork

	userRepo repos.UserRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, pub broker.Publisher, userRepo repos.UserRepo) Service {
	serviceLog := baseLog.With("service", "UserService")
	return &service{
		db:       db,
		log:      serviceLog,
		uow:      uow.New(db, pub, serviceLog),
		userRepo: userRepo,
	}
}

func (s *service) CreateUser(ctx context.Context, in CreateUserInput) (*types.User, error) {
	if !nationalIDPattern.MatchString(in.ID) {
		return nil, apierr.NewValidation("bad_national_id", fmt.Errorf("user id must be a 9 digit national id"))
	}
	if in.FirstName == "" || in.LastName == "" {
		return nil, apierr.NewValidation("missing_name", fmt.Errorf("first and last name are required"))
	}
	if in.Email == "" {
		return nil, apierr.NewValidation("missing_email", fmt.Errorf("email is required"))
	}
	switch in.Role {
	case types.RoleTeacher, types.RoleStudent, types.RoleAdmin:
	default:
		return nil, apierr.NewValidation("bad_role", fmt.Errorf("unknown role %q", in.Role))
	}

	var user *types.User
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		existing, err := s.userRepo.GetByID(ctx, tx, in.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.NewValidation("duplicate_user", fmt.Errorf("user %s already exists", in.ID))
		}
		emailTaken, err := s.userRepo.EmailExists(ctx, tx, in.Email)
		if err != nil {
			return err
		}
		if emailTaken {
			return apierr.NewValidation("duplicate_email", fmt.Errorf("email %s already in use", in.Email))
		}
		user = &types.User{
			ID:        in.ID,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Email:     in.Email,
			Phone:     in.Phone,
			Role:      in.Role,
			Version:   1,
		}
		if _, err := s.userRepo.Create(ctx, tx, []*types.User{user}); err != nil {
			return err
		}
		events.Queue(broker.ExchangeUserCreated, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) UpdateUser(ctx context.Context, userID string, patch types.UserPatch) (*types.User, error) {
	var user *types.User
	err := s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		var err error
		user, err = s.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apierr.NewNotFound("user_not_found", fmt.Errorf("user %s unknown", userID))
		}
		if !types.ApplyMutation(user, func() bool { return user.Apply(patch) }) {
			return nil
		}
		if err := s.userRepo.Save(ctx, tx, user); err != nil {
			return err
		}
		events.Queue(broker.ExchangeUserUpdated, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) DeleteUser(ctx context.Context, userID string) error {
	return s.uow.Run(ctx, func(tx *gorm.DB, events *uow.Events) error {
		user, err := s.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apierr.NewNotFound("user_not_found", fmt.Errorf("user %s unknown", userID))
		}
		if err := s.userRepo.DeleteByID(ctx, tx, userID); err != nil {
			return err
		}
		events.Queue(broker.ExchangeUserDeleted, &types.UserDeletedEvent{ID: userID})
		return nil
	})
}
