// Package inmem provides map-backed repositories for tests and local
// development. Every repository serializes access with a mutex so the
// per-key atomicity contract matches the SQL implementations.
package inmem

import (
	"context"
	"sync"

	"github.com/dkamau/elimu/core/user"
)

type userRepository struct {
	mu    sync.RWMutex
	users map[string]user.User // by ID
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository() *userRepository {
	return &userRepository{users: make(map[string]user.User)}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}
	for _, usr := range repo.users {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	users := make([]user.User, 0, len(repo.users))
	for _, usr := range repo.users {
		users = append(users, usr)
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	usr, ok := repo.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, usr := range repo.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.users[usr.ID] = usr
	return usr, nil
}
