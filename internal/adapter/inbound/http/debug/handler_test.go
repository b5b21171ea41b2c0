package debughttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmob/onboard/internal/domain/invite"
	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type attributorStatus struct {
	attributor *invite.Attributor
}

func (s attributorStatus) InviteSnapshot(guildID model.Snowflake) ([]*model.Invite, error) {
	return s.attributor.Snapshot(guildID)
}
func (attributorStatus) ActiveInterviews() int { return 0 }
func (attributorStatus) Configured() map[string]bool { return nil }

func newRouter(t *testing.T) (*gin.Engine, *testutil.FakePlatform) {
	t.Helper()
	platform := testutil.NewFakePlatform()
	platform.AddMember(&model.Member{ID: 1, GuildID: 500})
	platform.SetRoles(500, &model.Role{ID: 901, Name: "Associate", Position: 2})
	platform.SetInvites(500, &model.Invite{Code: "abc", Uses: 4})

	attributor := invite.NewAttributor(platform, nil, nil, nil, nil, nil)
	require.NoError(t, attributor.Initialize(context.Background(), 500))

	router := gin.New()
	NewHandler(platform, attributorStatus{attributor}).RegisterRoutes(router.Group(""))
	return router, platform
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestListGuilds(t *testing.T) {
	router, _ := newRouter(t)

	w := get(router, "/debug/guilds")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Guilds []*model.Guild `json:"guilds"`
		Count  int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, model.Snowflake(500), body.Guilds[0].ID)
}

func TestListRoles(t *testing.T) {
	router, _ := newRouter(t)

	w := get(router, "/debug/guilds/500/roles")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Associate")
}

func TestListInvites(t *testing.T) {
	router, _ := newRouter(t)

	w := get(router, "/debug/guilds/500/invites")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"abc"`)
	assert.Contains(t, w.Body.String(), `"uses":4`)

	w = get(router, "/debug/guilds/501/invites")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestBadGuildID(t *testing.T) {
	router, _ := newRouter(t)

	w := get(router, "/debug/guilds/not-a-number/channels")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BAD_REQUEST")
}
