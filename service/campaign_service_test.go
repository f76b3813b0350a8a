package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
)

func newCampaignFixture(t *testing.T) (*CampaignService, string) {
	t.Helper()
	dir := t.TempDir()
	return NewCampaignService(repository.NewCampaignRepository(newTestDB(t)), dir, testLogger()), dir
}

func TestReward(t *testing.T) {
	tasks := map[string]TaskProgress{
		"follow":  {Completed: true, Points: 10},
		"retweet": {Completed: true, Points: 5},
		"join":    {Completed: false, Points: 100},
	}
	assert.EqualValues(t, 15000, Reward(tasks))
	assert.Zero(t, Reward(nil))
}

func TestHashIPIsSaltedSHA256(t *testing.T) {
	h := HashIP("1.2.3.4")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashIP("1.2.3.4"))
	assert.NotEqual(t, h, HashIP("1.2.3.5"))
}

func TestCampaignCreateDefaults(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCampaignFixture(t)

	none, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	c, err := svc.Create(ctx, NewCampaignRequest{})
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.Equal(t, 200, c.MaxWinners)
	assert.EqualValues(t, 50000, c.RewardPerUser)
	assert.Equal(t, "10,000,000 $TORD", c.TotalPrize)

	task := &model.CampaignTask{CampaignID: c.ID, TaskKey: "follow", Label: "Follow us"}
	require.NoError(t, svc.CreateTask(ctx, task))
	assert.Equal(t, 10, task.Points)
	assert.Equal(t, "action", task.TaskType)
	assert.ErrorIs(t, svc.CreateTask(ctx, &model.CampaignTask{}), ErrMissingFields)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.ID, cur.Campaign.ID)
	require.Len(t, cur.Tasks, 1)
	assert.Zero(t, cur.ParticipantCount)
}

func TestParticipateInsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCampaignFixture(t)
	c, err := svc.Create(ctx, NewCampaignRequest{Title: "Drop"})
	require.NoError(t, err)

	req := ParticipateRequest{
		CampaignID:     c.ID,
		XUsername:      " alice ",
		TasksCompleted: map[string]TaskProgress{"follow": {Completed: true, Points: 10}},
	}
	res, err := svc.Participate(ctx, "1.1.1.1", req)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.EqualValues(t, 10000, res.Reward)

	wallet := walletA
	req.WalletAddress = &wallet
	req.TasksCompleted["wallet"] = TaskProgress{Completed: true, Points: 20}
	res, err = svc.Participate(ctx, "1.1.1.1", req)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.EqualValues(t, 30000, res.Reward)

	list, total, err := svc.Participants(ctx, c.ID, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "alice", list[0].XUsername)
	require.NotNil(t, list[0].WalletAddress)
	assert.Equal(t, walletA, *list[0].WalletAddress)
}

func TestParticipateRejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCampaignFixture(t)
	old, err := svc.Create(ctx, NewCampaignRequest{Title: "old"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewCampaignRequest{Title: "new"})
	require.NoError(t, err)

	_, err = svc.Participate(ctx, "1.1.1.1", ParticipateRequest{CampaignID: old.ID})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.Participate(ctx, "1.1.1.1", ParticipateRequest{CampaignID: old.ID, XUsername: "bob"})
	assert.ErrorIs(t, err, ErrCampaignClosed)

	past := time.Now().Add(-time.Hour)
	_, err = svc.Restore(ctx, old.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, old.ID, map[string]interface{}{"end_date": past}))
	_, err = svc.Participate(ctx, "1.1.1.1", ParticipateRequest{CampaignID: old.ID, XUsername: "bob"})
	assert.ErrorIs(t, err, ErrCampaignClosed)
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCampaignFixture(t)
	c, err := svc.Create(ctx, NewCampaignRequest{})
	require.NoError(t, err)
	_, err = svc.Participate(ctx, "1.1.1.1", ParticipateRequest{
		CampaignID: c.ID,
		XUsername:  "alice",
		TasksCompleted: map[string]TaskProgress{
			"wallet": {Completed: true, Points: 1},
			"follow": {Completed: true, Points: 1},
			"skip":   {Completed: false, Points: 1},
		},
	})
	require.NoError(t, err)

	out, err := svc.ExportCSV(ctx, c.ID)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "X Username", rows[0][0])
	assert.Equal(t, []string{"alice", "", "1.1.1.1", "follow;wallet", "2000"}, rows[1][:5])

	require.NoError(t, svc.ClearParticipants(ctx, c.ID))
	out, err = svc.ExportCSV(ctx, c.ID)
	require.NoError(t, err)
	rows, _ = csv.NewReader(bytes.NewReader(out)).ReadAll()
	assert.Len(t, rows, 1)
}

func TestUploadBanner(t *testing.T) {
	ctx := context.Background()
	svc, dir := newCampaignFixture(t)
	c, err := svc.Create(ctx, NewCampaignRequest{})
	require.NoError(t, err)

	img := []byte("\x89PNG fake")
	url, err := svc.UploadBanner(ctx, c.ID, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(img), "banner.PNG")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/airdrop-banner.png", url)

	written, err := os.ReadFile(filepath.Join(dir, "airdrop-banner.png"))
	require.NoError(t, err)
	assert.Equal(t, img, written)

	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, url, cur.Campaign.BannerURL)

	_, err = svc.UploadBanner(ctx, c.ID, "aGk=", "evil.svg")
	assert.ErrorIs(t, err, ErrInvalidBanner)
	_, err = svc.UploadBanner(ctx, c.ID, "%%%", "a.png")
	assert.ErrorIs(t, err, ErrInvalidBanner)
	_, err = svc.UploadBanner(ctx, 0, "aGk=", "a.png")
	assert.ErrorIs(t, err, ErrMissingFields)
}
