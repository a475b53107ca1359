package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/article/handler"
	articleservice "conduit/internal/article/service"
	"conduit/internal/events"
	jwttoken "conduit/internal/jwt_token"
	"conduit/internal/storage/memory"
	usermodel "conduit/internal/user/models"
	userservice "conduit/internal/user/service"
	"conduit/pkg/testutil"
)

type fixture struct {
	router *chi.Mux
	users  *userservice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	bus := events.NewBus(logger)
	mgr := memory.NewManager()
	tokens := jwttoken.NewService("test-key", "conduit-test", time.Hour)

	users := userservice.New(mgr, bus, tokens, logger)
	articles := articleservice.New(mgr, bus, logger)

	r := chi.NewRouter()
	handler.New(articles, logger, jwttoken.NewValidatorAdapter(tokens)).Register(r)
	return &fixture{router: r, users: users}
}

func (f *fixture) registerUser(t *testing.T, username string) string {
	t.Helper()
	auth, err := f.users.Register(context.Background(), usermodel.NewUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return auth.Token
}

func withToken(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Token "+token)
	return req
}

type articleJSON struct {
	Slug           string   `json:"slug"`
	Title          string   `json:"title"`
	TagList        []string `json:"tagList"`
	Favorited      bool     `json:"favorited"`
	FavoritesCount int      `json:"favoritesCount"`
	Author         struct {
		Username  string `json:"username"`
		Following bool   `json:"following"`
	} `json:"author"`
}

type articleResponse struct {
	Article articleJSON `json:"article"`
}

type articlesResponse struct {
	Articles      []articleJSON `json:"articles"`
	ArticlesCount int           `json:"articlesCount"`
}

const sampleArticle = `{"article":{"title":"Go Testing","description":"tips","body":"content","tagList":["go","testing"]}}`

func (f *fixture) createArticle(t *testing.T, token string) string {
	t.Helper()
	req := withToken(testutil.NewRequestWithBody(t, http.MethodPost, "/articles", sampleArticle), token)
	rr := testutil.DoRequest(f.router, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	return testutil.UnmarshalResponse[articleResponse](t, rr).Article.Slug
}

func TestCreateArticleEndpoint(t *testing.T) {
	f := newFixture(t)
	token := f.registerUser(t, "jake")

	req := withToken(testutil.NewRequestWithBody(t, http.MethodPost, "/articles", sampleArticle), token)
	rr := testutil.DoRequest(f.router, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	resp := testutil.UnmarshalResponse[articleResponse](t, rr)
	assert.Equal(t, "go-testing", resp.Article.Slug)
	assert.Equal(t, []string{"go", "testing"}, resp.Article.TagList)
	assert.Equal(t, "jake", resp.Article.Author.Username)
	assert.False(t, resp.Article.Favorited)
}

func TestCreateArticleEndpoint_Unauthorized(t *testing.T) {
	f := newFixture(t)

	rr := testutil.DoRequest(f.router, testutil.NewRequestWithBody(t, http.MethodPost, "/articles", sampleArticle))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "AUTHENTICATION")
}

func TestCreateArticleEndpoint_MissingTitle(t *testing.T) {
	f := newFixture(t)
	token := f.registerUser(t, "jake")

	body := `{"article":{"title":"","body":"content"}}`
	req := withToken(testutil.NewRequestWithBody(t, http.MethodPost, "/articles", body), token)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "MISSING_TITLE")
}

func TestGetArticleEndpoint(t *testing.T) {
	f := newFixture(t)
	slug := f.createArticle(t, f.registerUser(t, "jake"))

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/articles/"+slug))
	testutil.AssertStatusOK(t, rr)

	resp := testutil.UnmarshalResponse[articleResponse](t, rr)
	assert.Equal(t, "Go Testing", resp.Article.Title)
	assert.False(t, resp.Article.Author.Following)
}

func TestGetArticleEndpoint_NotFound(t *testing.T) {
	f := newFixture(t)

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/articles/nope"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestListArticlesEndpoint_TagFilter(t *testing.T) {
	f := newFixture(t)
	token := f.registerUser(t, "jake")
	f.createArticle(t, token)

	other := `{"article":{"title":"Untagged","description":"","body":"content"}}`
	rr := testutil.DoRequest(f.router, withToken(testutil.NewRequestWithBody(t, http.MethodPost, "/articles", other), token))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/articles?tag=go"))
	testutil.AssertStatusOK(t, rr)

	resp := testutil.UnmarshalResponse[articlesResponse](t, rr)
	require.Equal(t, 1, resp.ArticlesCount)
	assert.Equal(t, "go-testing", resp.Articles[0].Slug)
}

func TestFavoriteEndpoint(t *testing.T) {
	f := newFixture(t)
	author := f.registerUser(t, "jake")
	reader := f.registerUser(t, "anna")
	slug := f.createArticle(t, author)

	req := withToken(testutil.NewRequest(t, http.MethodPost, "/articles/"+slug+"/favorite"), reader)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatusOK(t, rr)

	resp := testutil.UnmarshalResponse[articleResponse](t, rr)
	assert.True(t, resp.Article.Favorited)
	assert.Equal(t, 1, resp.Article.FavoritesCount)

	req = withToken(testutil.NewRequest(t, http.MethodDelete, "/articles/"+slug+"/favorite"), reader)
	rr = testutil.DoRequest(f.router, req)
	testutil.AssertStatusOK(t, rr)
	assert.Equal(t, 0, testutil.UnmarshalResponse[articleResponse](t, rr).Article.FavoritesCount)
}

func TestDeleteArticleEndpoint_OnlyAuthor(t *testing.T) {
	f := newFixture(t)
	author := f.registerUser(t, "jake")
	intruder := f.registerUser(t, "anna")
	slug := f.createArticle(t, author)

	req := withToken(testutil.NewRequest(t, http.MethodDelete, "/articles/"+slug), intruder)
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "NOT_ARTICLE_AUTHOR")

	req = withToken(testutil.NewRequest(t, http.MethodDelete, "/articles/"+slug), author)
	rr = testutil.DoRequest(f.router, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
}
