package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
)

const chatListLimit = 50

var ErrInvalidChat = errors.New("invalid chat")

// ChatService keeps assistant conversations, scoped to the client IP that created them.
type ChatService struct {
	repo *repository.ChatRepository
}

func NewChatService(repo *repository.ChatRepository) *ChatService {
	return &ChatService{repo: repo}
}

func (s *ChatService) List(ctx context.Context, ip string) ([]*model.Chat, error) {
	return s.repo.ListByIP(ctx, ip, chatListLimit)
}

// Save creates a chat, or renames it when id already exists. An empty id gets a fresh UUID.
func (s *ChatService) Save(ctx context.Context, ip, id, title string, messages json.RawMessage) (*model.Chat, error) {
	if id == "" {
		id = uuid.NewString()
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New chat"
	}
	if len(messages) == 0 {
		messages = json.RawMessage("[]")
	}
	if !json.Valid(messages) {
		return nil, ErrInvalidChat
	}
	c := &model.Chat{ID: id, IPAddress: ip, Title: title, Messages: string(messages)}
	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ChatService) Get(ctx context.Context, ip, id string) (*model.Chat, error) {
	return s.repo.Get(ctx, id, ip)
}

// Update replaces messages and/or title; nil leaves a field as is.
func (s *ChatService) Update(ctx context.Context, ip, id string, title *string, messages json.RawMessage) error {
	updates := map[string]interface{}{}
	if title != nil {
		updates["title"] = strings.TrimSpace(*title)
	}
	if len(messages) > 0 {
		if !json.Valid(messages) {
			return ErrInvalidChat
		}
		updates["messages"] = string(messages)
	}
	if len(updates) == 0 {
		return nil
	}
	if _, err := s.repo.Get(ctx, id, ip); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, ip, updates)
}

func (s *ChatService) Delete(ctx context.Context, ip, id string) error {
	return s.repo.Delete(ctx, id, ip)
}
