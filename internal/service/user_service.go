package service

import (
	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	Repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{Repo: repo}
}

func (s *UserService) Get(id uint) (*model.User, error) {
	user, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	return user, nil
}

type ProfileUpdateRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func (s *UserService) UpdateProfile(id uint, req ProfileUpdateRequest) (*model.User, error) {
	user, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, util.ErrUserNotFound
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if err := s.Repo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ChangePassword(id uint, oldPassword, newPassword string) error {
	user, err := s.Repo.FindByID(id)
	if err != nil {
		return util.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return util.ErrPermissionDenied
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	return s.Repo.Update(user)
}

func (s *UserService) Touch(id uint) {
	s.Repo.UpdateLastSeen(id)
}
