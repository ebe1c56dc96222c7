package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/accesscore/accessd/internal/access/api/server"
	"github.com/accesscore/accessd/internal/access/app"
	rr "github.com/accesscore/accessd/internal/access/repository/rolerepo/postgres"
	ur "github.com/accesscore/accessd/internal/access/repository/userrepo/postgres"
	"github.com/accesscore/accessd/internal/access/services/directoryservice"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/accesscore/accessd/pkg/logger"

	"github.com/stretchr/testify/suite"
)

type AccessSuite struct {
	suite.Suite
	app       app.AccessApp
	cancel    context.CancelFunc
	client    *http.Client
	baseURL   string
	directory *directoryservice.DirectoryService
	users     ur.UsersPostgresRepo
}

var (
	adminUsername = "root"
	adminPassword = "1234"
)

func (as *AccessSuite) SetupSuite() {
	cmd := exec.Command("docker", "compose", "-f", "./test-compose.yaml", "up", "--build")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		as.T().Fatalf("cannot start docker compose error: %v", err)
	}

	cfg, err := config.New("config_test.yaml")
	if err != nil {
		as.T().Fatalf("cannot get config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	a, err := app.New(ctx, cfg)
	if err != nil {
		cancel()
		as.T().Fatalf("cannot get app error: %v", err)
	}

	as.app = a
	as.cancel = cancel
	as.client = &http.Client{Timeout: time.Second * 5}
	as.baseURL = "http://" + cfg.Server.Addr

	// Дальше подключаемся к уже подготовленной базе.
	cfg.PostgresDB.Reload = false

	lg, err := logger.New(cfg.Logger)
	if err != nil {
		cancel()
		as.T().Fatalf("cannot get logger error: %v", err)
	}

	userRepo, err := ur.New(ctx, cfg.PostgresDB)
	if err != nil {
		cancel()
		as.T().Fatalf("cannot get user repo error: %v", err)
	}

	roleRepo, err := rr.New(ctx, cfg.PostgresDB)
	if err != nil {
		cancel()
		as.T().Fatalf("cannot get role repo error: %v", err)
	}

	as.directory = directoryservice.New(userRepo, roleRepo, cfg.Defaults, lg)
	as.users = userRepo

	if _, err := as.directory.RegisterUser(ctx, directoryservice.RegisterUserRequest{
		Username: adminUsername,
		Password: adminPassword,
	}); err != nil {
		cancel()
		as.T().Fatalf("cannot register admin error: %v", err)
	}

	if _, err := as.directory.AdminUpdateUser(ctx, adminUsername, directoryservice.AdminUpdateUserRequest{
		Roles: []string{cfg.Defaults.AdminRole.Name},
	}); err != nil {
		cancel()
		as.T().Fatalf("cannot grant admin role error: %v", err)
	}

	go a.Run(ctx)
	time.Sleep(time.Second * 2) // Время для запуска сервера и баз данных.
}

func (as *AccessSuite) TearDownSuite() {
	as.cancel()

	cmd := exec.Command("docker", "compose", "-f", "./test-compose.yaml", "down", "-v")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		as.T().Fatalf("cannot down docker conatainers error: %v", err)
	}
}

func (as *AccessSuite) register(username, password string) *http.Response {
	body := `{"username":"` + username + `","password":"` + password + `"}`

	resp, err := as.client.Post(as.baseURL+"/auth/register", "application/json", strings.NewReader(body))
	as.Require().NoError(err)

	return resp
}

func (as *AccessSuite) login(username, password string, scopes ...string) (string, int) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	if len(scopes) != 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	resp, err := as.client.Post(as.baseURL+"/auth/login",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	as.Require().NoError(err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode
	}

	var tok server.TokenResponse

	as.Require().NoError(json.NewDecoder(resp.Body).Decode(&tok))
	as.Require().Equal("bearer", tok.TokenType)

	return tok.AccessToken, resp.StatusCode
}

func (as *AccessSuite) do(method, path, token, body string) *http.Response {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, as.baseURL+path, reader)
	as.Require().NoError(err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := as.client.Do(req)
	as.Require().NoError(err)

	return resp
}

func (as *AccessSuite) TestEndToEndScenario() {
	resp := as.register("alice", "qwerty")
	as.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	token, code := as.login("alice", "qwerty")
	as.Require().Equal(http.StatusOK, code)

	// Регистрация выдала базовую роль, user:read разрешён.
	resp = as.do(http.MethodGet, "/users/me", token, "")
	as.Require().Equal(http.StatusOK, resp.StatusCode)

	var me server.UserResponse

	as.Require().NoError(json.NewDecoder(resp.Body).Decode(&me))
	resp.Body.Close()
	as.Require().Equal("alice", me.Username)

	// admin:read не входит в базовую роль.
	resp = as.do(http.MethodGet, "/users/", token, "")
	as.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
	as.Require().Contains(resp.Header.Get("WWW-Authenticate"), "admin:read")
	resp.Body.Close()

	adminToken, code := as.login(adminUsername, adminPassword)
	as.Require().Equal(http.StatusOK, code)

	resp = as.do(http.MethodGet, "/users/", adminToken, "")
	as.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Отключённый пользователь получает 400, а не 401.
	resp = as.do(http.MethodPatch, "/users/alice", adminToken, `{"disabled":true}`)
	as.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = as.do(http.MethodGet, "/users/me", token, "")
	as.Require().Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func (as *AccessSuite) TestNarrowedToken() {
	resp := as.register("bob", "qwerty")
	as.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	token, code := as.login("bob", "qwerty", "user:read")
	as.Require().Equal(http.StatusOK, code)

	resp = as.do(http.MethodGet, "/users/me", token, "")
	as.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// bob владеет user:update, но токен сужен до user:read.
	resp = as.do(http.MethodPatch, "/users/me", token, `{"first_name":"Bob"}`)
	as.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (as *AccessSuite) TestLoginFailures() {
	_, code := as.login("nobody", "qwerty")
	as.Require().Equal(http.StatusUnauthorized, code)

	resp := as.register("carol", "qwerty")
	as.Require().Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	_, code = as.login("carol", "wrong")
	as.Require().Equal(http.StatusUnauthorized, code)

	resp = as.do(http.MethodGet, "/users/me", "not-a-token", "")
	as.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (as *AccessSuite) TestBootstrapIdempotency() {
	ctx := context.Background()

	as.Require().NoError(as.directory.Bootstrap(ctx))

	roles, err := as.directory.ListRoles(ctx)
	as.Require().NoError(err)

	var basicCount, adminCount int

	for _, r := range roles {
		switch r.Name {
		case "basic":
			basicCount++
		case "admin":
			adminCount++
		}
	}

	as.Require().Equal(1, basicCount)
	as.Require().Equal(1, adminCount)

	scopes, err := as.directory.ListScopes(ctx)
	as.Require().NoError(err)

	seen := make(map[string]int, len(scopes))
	for _, s := range scopes {
		seen[s.Name]++
	}

	for name, count := range seen {
		as.Require().Equalf(1, count, "scope %s duplicated", name)
	}
}

func (as *AccessSuite) TestScopeUnionAcrossRoles() {
	ctx := context.Background()

	for _, name := range []string{"invoice:read", "invoice:write", "invoice:sign"} {
		_, err := as.directory.CreateScope(ctx, directoryservice.CreateScopeRequest{
			Name:        name,
			Description: name,
		})
		as.Require().NoError(err)
	}

	_, err := as.directory.CreateRole(ctx, directoryservice.CreateRoleRequest{
		Name:        "clerk",
		Description: "files invoices",
		Scopes:      []string{"invoice:read", "invoice:write"},
	})
	as.Require().NoError(err)

	_, err = as.directory.CreateRole(ctx, directoryservice.CreateRoleRequest{
		Name:        "signer",
		Description: "signs invoices",
		Scopes:      []string{"invoice:write", "invoice:sign"},
	})
	as.Require().NoError(err)

	_, err = as.directory.RegisterUser(ctx, directoryservice.RegisterUserRequest{
		Username: "dave",
		Password: "qwerty",
	})
	as.Require().NoError(err)

	_, err = as.directory.AdminUpdateUser(ctx, "dave", directoryservice.AdminUpdateUserRequest{
		Roles: []string{"clerk", "signer"},
	})
	as.Require().NoError(err)

	// Объединение скоупов по ролям без дубликатов.
	scopes, err := as.users.ScopesForUser(ctx, "dave")
	as.Require().NoError(err)

	seen := make(map[string]int, len(scopes))
	for _, s := range scopes {
		seen[s]++
	}

	as.Require().Equal(1, seen["invoice:read"])
	as.Require().Equal(1, seen["invoice:write"], "overlapping scope must resolve once")
	as.Require().Equal(1, seen["invoice:sign"])

	for name, count := range seen {
		as.Require().Equalf(1, count, "scope %s duplicated in live set", name)
	}
}

func (as *AccessSuite) TestRoleAndScopeCRUD() {
	adminToken, code := as.login(adminUsername, adminPassword)
	as.Require().Equal(http.StatusOK, code)

	resp := as.do(http.MethodPost, "/users/scopes/", adminToken,
		`{"name":"report:read","description":"can read reports"}`)
	as.Require().Equal(http.StatusCreated, resp.StatusCode)

	var scope server.ScopeResponse

	as.Require().NoError(json.NewDecoder(resp.Body).Decode(&scope))
	resp.Body.Close()

	resp = as.do(http.MethodPost, "/users/roles/", adminToken,
		`{"name":"reporter","description":"report viewer","scopes":["report:read"]}`)
	as.Require().Equal(http.StatusCreated, resp.StatusCode)

	var role server.RoleResponse

	as.Require().NoError(json.NewDecoder(resp.Body).Decode(&role))
	resp.Body.Close()
	as.Require().Len(role.Scopes, 1)
	as.Require().Equal("report:read", role.Scopes[0].Name)

	// Дубликат имени роли.
	resp = as.do(http.MethodPost, "/users/roles/", adminToken,
		`{"name":"reporter","description":"again"}`)
	as.Require().Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = as.do(http.MethodDelete, "/users/roles/"+strconv.Itoa(role.ID), adminToken, "")
	as.Require().Equal(http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = as.do(http.MethodGet, "/users/roles/"+strconv.Itoa(role.ID), adminToken, "")
	as.Require().Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = as.do(http.MethodDelete, "/users/scopes/"+strconv.Itoa(scope.ID), adminToken, "")
	as.Require().Equal(http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func TestAccessSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end suite")
	}

	suite.Run(t, new(AccessSuite))
}
