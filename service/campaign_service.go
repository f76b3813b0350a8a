package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ipSalt           = "tord_salt_2025"
	pointsMultiplier = 1000
)

var (
	ErrCampaignClosed  = errors.New("this campaign has ended, stay tuned for the next one")
	ErrAlreadyEntered  = errors.New("this IP address has already been registered for this campaign")
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidBanner   = errors.New("invalid banner image")
	dataURIPrefixRegex = regexp.MustCompile(`^data:image/\w+;base64,`)
	bannerExts         = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}
)

// TaskProgress is one entry of a participant's tasks_completed map.
type TaskProgress struct {
	Completed bool `json:"completed"`
	Points    int  `json:"points"`
}

type ParticipateRequest struct {
	CampaignID     uint                    `json:"campaign_id"`
	XUsername      string                  `json:"x_username"`
	WalletAddress  *string                 `json:"wallet_address"`
	TasksCompleted map[string]TaskProgress `json:"tasks_completed"`
}

type ParticipateResult struct {
	Updated bool
	Reward  int64
}

type CurrentCampaign struct {
	Campaign         *model.Campaign
	Tasks            []*model.CampaignTask
	ParticipantCount int64
}

type NewCampaignRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	TotalPrize    string `json:"total_prize"`
	MaxWinners    int    `json:"max_winners"`
	RewardPerUser int64  `json:"reward_per_user"`
	KeepTasks     bool   `json:"keep_tasks"`
}

// CampaignService runs the airdrop campaigns: one active campaign, its tasks, and
// participants deduplicated by a salted hash of their IP.
type CampaignService struct {
	repo      *repository.CampaignRepository
	publicDir string
	now       func() time.Time
	log       *zap.Logger
}

func NewCampaignService(repo *repository.CampaignRepository, publicDir string, log *zap.Logger) *CampaignService {
	return &CampaignService{repo: repo, publicDir: publicDir, now: time.Now, log: log}
}

func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + ipSalt))
	return hex.EncodeToString(sum[:])
}

// Reward is the sum of completed task points times 1000.
func Reward(tasks map[string]TaskProgress) int64 {
	var total int64
	for _, t := range tasks {
		if t.Completed && t.Points > 0 {
			total += int64(t.Points) * pointsMultiplier
		}
	}
	return total
}

// Current returns the newest campaign, or nil when none exists.
func (s *CampaignService) Current(ctx context.Context) (*CurrentCampaign, error) {
	c, err := s.repo.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.Tasks(ctx, c.ID, true)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.DistinctParticipants(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &CurrentCampaign{Campaign: c, Tasks: tasks, ParticipantCount: count}, nil
}

// Participate records or refreshes the entry for ip in the campaign.
func (s *CampaignService) Participate(ctx context.Context, ip string, req ParticipateRequest) (*ParticipateResult, error) {
	if strings.TrimSpace(req.XUsername) == "" || req.CampaignID == 0 {
		return nil, ErrMissingFields
	}
	c, err := s.repo.FindByID(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive || (c.EndDate != nil && c.EndDate.Before(s.now())) {
		return nil, ErrCampaignClosed
	}
	if req.WalletAddress != nil && strings.TrimSpace(*req.WalletAddress) == "" {
		req.WalletAddress = nil
	}

	tasksJSON, err := json.Marshal(req.TasksCompleted)
	if err != nil {
		return nil, err
	}
	reward := Reward(req.TasksCompleted)
	ipHash := HashIP(ip)

	existing, err := s.repo.FindParticipant(ctx, c.ID, ipHash)
	if err == nil {
		if err := s.repo.UpdateParticipant(ctx, existing.ID, req.WalletAddress, string(tasksJSON), reward); err != nil {
			return nil, err
		}
		return &ParticipateResult{Updated: true, Reward: reward}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	err = s.repo.CreateParticipant(ctx, &model.Participant{
		CampaignID:     c.ID,
		XUsername:      strings.TrimSpace(req.XUsername),
		WalletAddress:  req.WalletAddress,
		IPAddress:      ip,
		IPHash:         ipHash,
		TasksCompleted: string(tasksJSON),
		TotalReward:    reward,
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrAlreadyEntered
	}
	if err != nil {
		return nil, err
	}
	return &ParticipateResult{Reward: reward}, nil
}

// --- admin ---

func (s *CampaignService) List(ctx context.Context) ([]*repository.CampaignWithCount, error) {
	return s.repo.ListWithCounts(ctx)
}

func (s *CampaignService) Restore(ctx context.Context, id uint) (*model.Campaign, error) {
	return s.repo.Activate(ctx, id)
}

// Update applies the non-nil fields of updates.
func (s *CampaignService) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return s.repo.Update(ctx, id, updates)
}

func (s *CampaignService) Create(ctx context.Context, req NewCampaignRequest) (*model.Campaign, error) {
	c := &model.Campaign{
		Title:         req.Title,
		Description:   req.Description,
		TotalPrize:    req.TotalPrize,
		MaxWinners:    req.MaxWinners,
		RewardPerUser: req.RewardPerUser,
	}
	if c.Title == "" {
		c.Title = "TordLabs Airdrop, 200 Winners"
	}
	if c.Description == "" {
		c.Description = "Earn free $TORD tokens by completing simple tasks below."
	}
	if c.TotalPrize == "" {
		c.TotalPrize = "10,000,000 $TORD"
	}
	if c.MaxWinners <= 0 {
		c.MaxWinners = 200
	}
	if c.RewardPerUser <= 0 {
		c.RewardPerUser = 50000
	}
	if err := s.repo.CreateActive(ctx, c, req.KeepTasks); err != nil {
		return nil, err
	}
	s.log.Info("campaign created", zap.Uint("id", c.ID), zap.Bool("keep_tasks", req.KeepTasks))
	return c, nil
}

func (s *CampaignService) Tasks(ctx context.Context, campaignID uint) ([]*model.CampaignTask, error) {
	return s.repo.Tasks(ctx, campaignID, false)
}

func (s *CampaignService) CreateTask(ctx context.Context, t *model.CampaignTask) error {
	if t.CampaignID == 0 {
		return ErrMissingFields
	}
	if t.Points <= 0 {
		t.Points = 10
	}
	if t.TaskType == "" {
		t.TaskType = "action"
	}
	if t.IconType == "" {
		t.IconType = "wallet"
	}
	t.IsActive = true
	return s.repo.CreateTask(ctx, t)
}

func (s *CampaignService) UpdateTask(ctx context.Context, id uint, updates map[string]interface{}) error {
	return s.repo.UpdateTask(ctx, id, updates)
}

func (s *CampaignService) DeleteTask(ctx context.Context, id uint) error {
	return s.repo.DeleteTask(ctx, id)
}

func (s *CampaignService) Participants(ctx context.Context, campaignID uint, search string, page, size int) ([]*model.Participant, int64, error) {
	return s.repo.Participants(ctx, campaignID, search, page, size)
}

func (s *CampaignService) ClearParticipants(ctx context.Context, campaignID uint) error {
	return s.repo.ClearParticipants(ctx, campaignID)
}

// ExportCSV renders every participant of the campaign, newest first.
func (s *CampaignService) ExportCSV(ctx context.Context, campaignID uint) ([]byte, error) {
	list, err := s.repo.AllParticipants(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"X Username", "Wallet Address", "IP Address", "Tasks Completed", "Total Reward", "Joined At"})
	for _, p := range list {
		wallet := ""
		if p.WalletAddress != nil {
			wallet = *p.WalletAddress
		}
		_ = w.Write([]string{
			p.XUsername,
			wallet,
			p.IPAddress,
			strings.Join(completedTasks(p.TasksCompleted), ";"),
			strconv.FormatInt(p.TotalReward, 10),
			p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func completedTasks(raw string) []string {
	var tasks map[string]TaskProgress
	if raw == "" || json.Unmarshal([]byte(raw), &tasks) != nil {
		return nil
	}
	var keys []string
	for k, t := range tasks {
		if t.Completed {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// UploadBanner stores a base64 (optionally data-URI) image as the campaign banner and
// returns its public URL.
func (s *CampaignService) UploadBanner(ctx context.Context, campaignID uint, image, filename string) (string, error) {
	if image == "" || campaignID == 0 {
		return "", ErrMissingFields
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".png"
	}
	if !bannerExts[ext] {
		return "", ErrInvalidBanner
	}
	data, err := base64.StdEncoding.DecodeString(dataURIPrefixRegex.ReplaceAllString(image, ""))
	if err != nil || len(data) == 0 {
		return "", ErrInvalidBanner
	}
	if _, err := s.repo.FindByID(ctx, campaignID); err != nil {
		return "", err
	}

	name := "airdrop-banner" + ext
	if err := os.MkdirAll(s.publicDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.publicDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write banner: %w", err)
	}
	url := "/uploads/" + name
	if err := s.repo.SetBanner(ctx, campaignID, url); err != nil {
		return "", err
	}
	return url, nil
}
