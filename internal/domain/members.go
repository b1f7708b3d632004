package domain

import (
	"errors"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrMembersLimitReached = errors.New("members limit reached")
)

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsHost      bool   `json:"is_host"`
}

// Members keeps users in join order. A limit of 0 means unlimited.
type Members struct {
	list  []User
	limit int
}

func NewMembers(limit int) *Members {
	return &Members{
		list:  make([]User, 0, 1),
		limit: limit,
	}
}

func (m Members) Length() int {
	return len(m.list)
}

func (m Members) AsList() []User {
	list := make([]User, len(m.list))
	copy(list, m.list)
	return list
}

func (m Members) GetByID(id string) (User, int, error) {
	for index, user := range m.list {
		if user.ID == id {
			return user, index, nil
		}
	}

	return User{}, 0, ErrUserNotFound
}

func (m *Members) Add(user User) error {
	if _, _, err := m.GetByID(user.ID); err == nil {
		return ErrUserAlreadyExists
	}

	if m.limit > 0 && m.Length() >= m.limit {
		return ErrMembersLimitReached
	}

	m.list = append(m.list, user)
	return nil
}

func (m *Members) RemoveByID(id string) (User, error) {
	user, index, err := m.GetByID(id)
	if err != nil {
		return User{}, err
	}

	m.list = append(m.list[:index], m.list[index+1:]...)
	return user, nil
}

func (m Members) Hosts() int {
	hosts := 0
	for _, user := range m.list {
		if user.IsHost {
			hosts++
		}
	}

	return hosts
}
