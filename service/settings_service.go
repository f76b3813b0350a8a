package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/utils"
)

var ErrInvalidSetting = errors.New("invalid setting")

// keys an admin may write; the *_contract ones must hold an address or nothing
var settingKeys = map[string]bool{
	SettingPrimaryToken: true,
	"staking_contract":  true,
	"twitter_url":       true,
	"telegram_url":      true,
	"github_url":        true,
	"discord_url":       true,
	"website_url":       true,
}

type SettingsService struct {
	repo *repository.SettingsRepository
}

func NewSettingsService(repo *repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) All(ctx context.Context) (map[string]string, error) {
	return s.repo.All(ctx)
}

// Update validates every entry before writing any of them.
func (s *SettingsService) Update(ctx context.Context, values map[string]string) error {
	clean := make(map[string]string, len(values))
	for k, v := range values {
		if !settingKeys[k] {
			return fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, k)
		}
		v = strings.TrimSpace(v)
		if strings.HasSuffix(k, "_contract") && v != "" {
			if !utils.IsAddress(v) {
				return fmt.Errorf("%w: %s must be a valid contract address", ErrInvalidSetting, k)
			}
			v = utils.NormalizeAddress(v)
		}
		clean[k] = v
	}
	for k, v := range clean {
		if err := s.repo.Upsert(ctx, k, v); err != nil {
			return fmt.Errorf("save setting %s: %w", k, err)
		}
	}
	return nil
}
