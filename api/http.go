// Package api exposes the REST surface: account signup/login, project
// CRUD, notification reads and the read-side views (activity, search,
// message history). Everything real-time goes through the websocket
// endpoint instead.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"notifyhub/auth"
	"notifyhub/contract"
	"notifyhub/domain"
	"notifyhub/errors"
	"notifyhub/observability"
	"notifyhub/projection"
	"notifyhub/search"
)

type contextKey string

const userIDKey contextKey = "user_id"

const searchLimit = 20

type API struct {
	log      *slog.Logger
	store    contract.Store
	tokens   *auth.TokenManager
	feed     *projection.ActivityFeed
	index    *search.Index
	stats    *observability.Stats
	validate *validator.Validate
}

func New(log *slog.Logger, store contract.Store, tokens *auth.TokenManager,
	feed *projection.ActivityFeed, index *search.Index, stats *observability.Stats) *API {
	return &API{
		log:      log,
		store:    store,
		tokens:   tokens,
		feed:     feed,
		index:    index,
		stats:    stats,
		validate: validator.New(),
	}
}

// Router assembles the full HTTP surface. The websocket handler is passed
// in so transport and REST share one server.
func (a *API) Router(wsHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", a.handleSignup)
	r.Post("/login", a.handleLogin)
	r.Get("/healthz", a.handleHealth)
	r.Handle("/ws", wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)
		r.Get("/projects", a.handleListProjects)
		r.Post("/projects", a.handleCreateProject)
		r.Post("/projects/{projectID}/join", a.handleJoinProject)
		r.Post("/projects/{projectID}/members", a.handleAddMember)
		r.Get("/projects/{projectID}/messages", a.handleListMessages)
		r.Get("/projects/{projectID}/activity", a.handleActivity)
		r.Get("/projects/{projectID}/search", a.handleSearch)
		r.Get("/notifications", a.handleListNotifications)
		r.Post("/notifications/{notificationID}/read", a.handleMarkRead)
	})
	return r
}

// authenticate resolves the Bearer token into a user id on the context.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			a.writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.tokens.Validate(token)
		if err != nil {
			a.writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !a.decode(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	user, err := a.store.CreateUser(domain.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}

	user, err := a.store.GetUserByEmail(req.Email)
	if err != nil {
		a.writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	match, err := auth.ComparePassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		a.writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

type createProjectRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// handleCreateProject creates a project with the caller as its owner.
func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !a.decode(w, r, &req) {
		return
	}

	project, err := a.store.CreateProject(domain.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Members:     map[string]domain.Role{actorID(r): domain.RoleOwner},
	})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, project)
}

func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.store.ListProjectsFor(actorID(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, projects)
}

// handleJoinProject adds the caller as a member. Joining twice is a no-op.
func (a *API) handleJoinProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	project, err := a.store.GetProject(projectID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !project.IsMember(actorID(r)) {
		if err := a.store.AddMember(projectID, actorID(r), domain.RoleMember); err != nil {
			a.writeError(w, err)
			return
		}
	}
	project, err = a.store.GetProject(projectID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, project)
}

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=owner member"`
}

// handleAddMember grants membership. Only an owner of the project may do
// this.
func (a *API) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !a.decode(w, r, &req) {
		return
	}

	projectID := chi.URLParam(r, "projectID")
	project, err := a.store.GetProject(projectID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if project.Members[actorID(r)] != domain.RoleOwner {
		a.writeError(w, errors.Unauthorizedf("only owners can add members"))
		return
	}
	if _, err := a.store.GetUser(req.UserID); err != nil {
		a.writeError(w, err)
		return
	}

	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleMember
	}
	if err := a.store.AddMember(projectID, req.UserID, role); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request) {
	project, ok := a.memberProject(w, r)
	if !ok {
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := a.store.ListMessages(project.ID, cursor)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"cursor":   next,
	})
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	project, ok := a.memberProject(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, http.StatusOK, a.feed.Recent(project.ID))
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	project, ok := a.memberProject(w, r)
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		a.writeError(w, errors.Validationf("query parameter q is empty"))
		return
	}
	hits, err := a.index.Search(r.Context(), project.ID, query, searchLimit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, hits)
}

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := a.store.ListNotifications(actorID(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, notifications)
}

func (a *API) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "notificationID")
	if err := a.store.MarkNotificationRead(actorID(r), notificationID); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.stats.Snapshot())
}

// memberProject loads the project from the URL and checks the caller
// belongs to it.
func (a *API) memberProject(w http.ResponseWriter, r *http.Request) (domain.Project, bool) {
	project, err := a.store.GetProject(chi.URLParam(r, "projectID"))
	if err != nil {
		a.writeError(w, err)
		return domain.Project{}, false
	}
	if !project.IsMember(actorID(r)) {
		a.writeError(w, errors.Unauthorizedf("user is not a member of project %s", project.ID))
		return domain.Project{}, false
	}
	return project, true
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeError(w, errors.Validationf("malformed body: %v", err))
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		a.writeError(w, errors.Validationf("invalid body: %v", err))
		return false
	}
	return true
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	a.writeMessage(w, errors.HTTPStatus(err), err.Error())
}

func (a *API) writeMessage(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"message": message})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("failed to encode response", "error", err)
	}
}
