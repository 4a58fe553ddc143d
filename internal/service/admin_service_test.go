package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminFixture(t *testing.T) (AdminService, *swapFixture, *mockBanCache) {
	t.Helper()
	f := newSwapFixture(t)
	f.users.users["root"] = model.User{ID: "root", Name: "Root", Email: "root@example.com", Role: model.UserRoleAdmin}
	bans := new(mockBanCache)
	return NewAdminService(f.users, f.swaps, bans, nil), f, bans
}

func TestAdminStats(t *testing.T) {
	admin, f, _ := newAdminFixture(t)
	ctx := context.Background()
	f.propose(t)
	f.completed(t)

	st, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Users)
	assert.Equal(t, int64(2), st.TotalSwaps)
	assert.Equal(t, int64(1), st.PendingSwaps)
	assert.Equal(t, int64(1), st.ByStatus[model.SwapStatusCompleted])
}

func TestAdminToggleBan(t *testing.T) {
	admin, f, bans := newAdminFixture(t)
	ctx := context.Background()
	bans.On("Set", "u2", true).Return(nil).Once()
	bans.On("Set", "u2", false).Return(nil).Once()

	u, err := admin.ToggleBan(ctx, "root", "u2")
	require.NoError(t, err)
	assert.True(t, u.IsBanned)
	stored, _ := f.users.FindByID(ctx, "u2")
	assert.True(t, stored.IsBanned)

	u, err = admin.ToggleBan(ctx, "root", "u2")
	require.NoError(t, err)
	assert.False(t, u.IsBanned)
	bans.AssertExpectations(t)

	_, err = admin.ToggleBan(ctx, "root", "root")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = admin.ToggleBan(ctx, "root", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminCannotBanAdmin(t *testing.T) {
	admin, f, _ := newAdminFixture(t)
	f.users.users["root2"] = model.User{ID: "root2", Role: model.UserRoleAdmin}

	_, err := admin.ToggleBan(context.Background(), "root", "root2")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAdminListSwaps(t *testing.T) {
	admin, f, _ := newAdminFixture(t)
	ctx := context.Background()
	f.propose(t)
	f.completed(t)

	all, err := admin.ListSwaps(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := admin.ListSwaps(ctx, "completed")
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, model.SwapStatusCompleted, done[0].Status)

	_, err = admin.ListSwaps(ctx, "archived")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAdminCSVReports(t *testing.T) {
	admin, f, _ := newAdminFixture(t)
	ctx := context.Background()
	sw := f.completed(t)
	_, err := f.svc.SubmitFeedback(ctx, sw.ID, f.u1, 5, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, admin.WriteSwapsCSV(ctx, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, sw.ID, rows[1][0])
	assert.Equal(t, "completed", rows[1][5])
	assert.Equal(t, "5", rows[1][6])
	assert.Equal(t, "", rows[1][7])

	buf.Reset()
	require.NoError(t, admin.WriteUsersCSV(ctx, &buf))
	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}

func TestAdminCSVNeutralizesFormulas(t *testing.T) {
	admin, f, _ := newAdminFixture(t)
	ctx := context.Background()
	f.users.users["evil"] = model.User{
		ID:            "evil",
		Name:          `=HYPERLINK("http://x","y")`,
		Email:         "evil@example.com",
		Location:      "+1 Main St",
		SkillsOffered: []string{"@SUM(A1)"},
		Availability:  "-",
	}
	f.swaps.set(model.Swap{ID: "s-evil", RequesterID: "evil", RequestedID: f.u2, SkillOffered: "-2+3", SkillWanted: "Go", Status: model.SwapStatusPending})

	var buf bytes.Buffer
	require.NoError(t, admin.WriteUsersCSV(ctx, &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	var row []string
	for _, r := range rows {
		if r[0] == "evil" {
			row = r
		}
	}
	require.NotNil(t, row)
	assert.Equal(t, `'=HYPERLINK("http://x","y")`, row[1])
	assert.Equal(t, "evil@example.com", row[2])
	assert.Equal(t, "'+1 Main St", row[3])
	assert.Equal(t, "'@SUM(A1)", row[4])
	assert.Equal(t, "'-", row[6])

	buf.Reset()
	require.NoError(t, admin.WriteSwapsCSV(ctx, &buf))
	rows, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "'-2+3", rows[1][3])
	assert.Equal(t, "Go", rows[1][4])
}
