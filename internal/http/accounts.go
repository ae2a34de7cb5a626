package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/auth"
	"github.com/mrlokans/shelf/internal/database/audit"
	"github.com/mrlokans/shelf/internal/database/users"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/tasks"
	"github.com/mrlokans/shelf/internal/uploads"
	"github.com/mrlokans/shelf/internal/validation"
)

// UserResponse is the public representation of a user.
type UserResponse struct {
	*entities.User
	ProfilePicture string `json:"profile_picture"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// AccountsOptions carries the optional collaborators of AccountsController.
type AccountsOptions struct {
	Sessions *auth.SessionManager
	Limiter  *auth.LoginLimiter
	Uploads  *uploads.Store
	Audit    AuditLogger
	Events   AuditReader
	Tasks    TaskEnqueuer
}

// AccountsController serves registration, login, the caller's profile and
// the follower graph.
type AccountsController struct {
	service  *auth.Service
	follows  FollowStore
	sessions *auth.SessionManager
	limiter  *auth.LoginLimiter
	uploads  *uploads.Store
	audit    AuditLogger
	events   AuditReader
	tasks    TaskEnqueuer
}

func NewAccountsController(service *auth.Service, follows FollowStore, opts AccountsOptions) *AccountsController {
	return &AccountsController{
		service:  service,
		follows:  follows,
		sessions: opts.Sessions,
		limiter:  opts.Limiter,
		uploads:  opts.Uploads,
		audit:    auditOrDiscard(opts.Audit),
		events:   opts.Events,
		tasks:    opts.Tasks,
	}
}

// Register creates an account and returns its token.
// POST /api/accounts/register/
func (ac *AccountsController) Register(c *gin.Context) {
	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	errs := validation.New()
	in := auth.RegisterInput{
		Username:  deref(p.str("username", errs)),
		Email:     deref(p.str("email", errs)),
		Password:  deref(p.str("password", errs)),
		FirstName: deref(p.str("first_name", errs)),
		LastName:  deref(p.str("last_name", errs)),
		Bio:       deref(p.str("bio", errs)),
	}
	if !errs.Valid() {
		respondValidationError(c, errs)
		return
	}

	user, token, err := ac.service.Register(in)
	if err != nil {
		ac.respondAuthError(c, err, "register")
		return
	}

	ac.audit.LogAccount(user.ID, "register", fmt.Sprintf("Registered as %q", user.Username))
	ac.enqueueWelcome(c.Request.Context(), user)
	respondCreated(c, AuthResponse{Token: token, User: ac.userResponse(user)})
}

// Login exchanges credentials for the user's token. The same token is
// returned until the user logs out.
// POST /api/accounts/login/
func (ac *AccountsController) Login(c *gin.Context) {
	user, token, ok := ac.checkCredentials(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: ac.userResponse(user)})
}

// SessionLogin signs the user in with a session cookie for browser clients.
// POST /api/accounts/session/
func (ac *AccountsController) SessionLogin(c *gin.Context) {
	if ac.sessions == nil {
		respondNotFound(c, "session login")
		return
	}

	user, _, ok := ac.checkCredentials(c, false)
	if !ok {
		return
	}

	if err := ac.sessions.CreateSession(c.Request, user); err != nil {
		respondInternalError(c, err, "create session")
		return
	}
	c.JSON(http.StatusOK, ac.userResponse(user))
}

// SessionLogout ends the browser session.
// DELETE /api/accounts/session/
func (ac *AccountsController) SessionLogout(c *gin.Context) {
	if ac.sessions == nil {
		respondNotFound(c, "session login")
		return
	}
	if err := ac.sessions.DestroySession(c.Request); err != nil {
		respondInternalError(c, err, "destroy session")
		return
	}
	respondNoContent(c)
}

// checkCredentials runs the shared login flow: throttling, credential check
// and audit. When issueToken is set the user's API token is returned too.
// On failure the response has been written.
func (ac *AccountsController) checkCredentials(c *gin.Context, issueToken bool) (*entities.User, string, bool) {
	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return nil, "", false
	}

	errs := validation.New()
	in := auth.LoginInput{
		Username: deref(p.str("username", errs)),
		Password: deref(p.str("password", errs)),
	}
	if !errs.Valid() {
		respondValidationError(c, errs)
		return nil, "", false
	}

	ip := c.ClientIP()
	if ac.limiter != nil && ac.limiter.Reject(c, in.Username) {
		ac.audit.LogAuth(0, "login_throttled", ip, c.Request.UserAgent(), false)
		return nil, "", false
	}

	var (
		user  *entities.User
		token string
	)
	if issueToken {
		user, token, err = ac.service.Login(in)
	} else {
		user, err = ac.service.CheckCredentials(in)
	}
	if err != nil {
		var fieldErrs validation.Errors
		if !errors.As(err, &fieldErrs) {
			respondInternalError(c, err, "login")
			return nil, "", false
		}
		if _, rejected := fieldErrs[validation.NonFieldErrors]; rejected {
			if ac.limiter != nil && ac.limiter.RecordFailure(ip, in.Username) {
				log.Printf("Login attempts for %q from %s locked out", in.Username, ip)
			}
			ac.audit.LogAuth(0, "login", ip, c.Request.UserAgent(), false)
		}
		respondValidationError(c, fieldErrs)
		return nil, "", false
	}

	if ac.limiter != nil {
		ac.limiter.RecordSuccess(ip, in.Username)
	}
	ac.audit.LogAuth(user.ID, "login", ip, c.Request.UserAgent(), true)
	return user, token, true
}

// Logout deletes the caller's token and ends any session. The next login
// issues a new token.
// POST /api/accounts/logout/
func (ac *AccountsController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if err := ac.service.Logout(userID); err != nil {
		respondInternalError(c, err, "logout")
		return
	}
	if ac.sessions != nil && auth.GetAuthType(c) == auth.AuthTypeSession {
		if err := ac.sessions.DestroySession(c.Request); err != nil {
			log.Printf("Failed to destroy session for user %d: %v", userID, err)
		}
	}

	ac.audit.LogAuth(userID, "logout", c.ClientIP(), c.Request.UserAgent(), true)
	respondSuccess(c, "logged out")
}

// CSRFToken hands browser clients the token to echo in X-CSRF-Token.
// GET /api/accounts/csrf/
func (ac *AccountsController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrf_token": auth.GetCSRFToken(c)})
}

// Profile returns the caller's profile.
// GET /api/accounts/profile/
func (ac *AccountsController) Profile(c *gin.Context) {
	user, err := ac.service.GetUserByID(GetUserID(c))
	if err != nil {
		ac.respondAuthError(c, err, "get profile")
		return
	}
	c.JSON(http.StatusOK, ac.userResponse(user))
}

// UpdateProfile replaces (PUT) or merges (PATCH) the caller's profile.
// Accepts JSON, urlencoded and multipart bodies; a multipart body may carry
// a profile_picture file.
// PUT|PATCH /api/accounts/profile/
func (ac *AccountsController) UpdateProfile(c *gin.Context) {
	userID := GetUserID(c)
	current, err := ac.service.GetUserByID(userID)
	if err != nil {
		ac.respondAuthError(c, err, "get profile")
		return
	}
	oldPicture := current.ProfilePicture

	p, err := readPayload(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	errs := validation.New()
	in := auth.ProfileInput{
		Username:  p.str("username", errs),
		Email:     p.str("email", errs),
		FirstName: p.str("first_name", errs),
		LastName:  p.str("last_name", errs),
		Bio:       p.str("bio", errs),
	}

	var saved string
	if header, ok := p.file("profile_picture"); ok {
		saved, err = ac.savePicture(userID, header)
		switch {
		case errors.Is(err, uploads.ErrTooLarge), errors.Is(err, uploads.ErrUnsupportedType):
			errs.Add("profile_picture", err.Error())
		case err != nil:
			respondInternalError(c, err, "save profile picture")
			return
		default:
			in.ProfilePicture = &saved
		}
	}
	if !errs.Valid() {
		ac.discardPicture(saved)
		respondValidationError(c, errs)
		return
	}

	user, err := ac.service.UpdateProfile(userID, in, c.Request.Method == http.MethodPatch)
	if err != nil {
		ac.discardPicture(saved)
		ac.respondAuthError(c, err, "update profile")
		return
	}
	if saved != "" && oldPicture != "" {
		ac.discardPicture(oldPicture)
	}

	ac.audit.LogAccount(userID, "profile_update", "Updated profile")
	c.JSON(http.StatusOK, ac.userResponse(user))
}

// User returns another user's public profile.
// GET /api/accounts/users/:id/
func (ac *AccountsController) User(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := ac.follows.GetUserByID(id)
	if err != nil {
		ac.respondAuthError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, ac.userResponse(user))
}

// Followers lists the users following :id.
// GET /api/accounts/users/:id/followers/
func (ac *AccountsController) Followers(c *gin.Context) {
	ac.listRelated(c, ac.follows.Followers, "followers")
}

// Following lists the users :id follows.
// GET /api/accounts/users/:id/following/
func (ac *AccountsController) Following(c *gin.Context) {
	ac.listRelated(c, ac.follows.Following, "following")
}

func (ac *AccountsController) listRelated(c *gin.Context, load func(uint) ([]entities.User, error), context string) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := ac.follows.GetUserByID(id); err != nil {
		ac.respondAuthError(c, err, "get user")
		return
	}

	related, err := load(id)
	if err != nil {
		respondInternalError(c, err, context)
		return
	}
	out := make([]UserResponse, 0, len(related))
	for i := range related {
		out = append(out, ac.userResponse(&related[i]))
	}
	c.JSON(http.StatusOK, out)
}

// Follow makes the caller follow :id. Following twice is a no-op.
// POST /api/accounts/users/:id/follow/
func (ac *AccountsController) Follow(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := ac.follows.GetUserByID(id); err != nil {
		ac.respondAuthError(c, err, "get user")
		return
	}

	userID := GetUserID(c)
	if err := ac.follows.Follow(id, userID); err != nil {
		ac.respondFollowError(c, err, "follow")
		return
	}

	ac.audit.LogAccount(userID, "follow", fmt.Sprintf("Followed user %d", id))
	ac.respondFollowState(c, id)
}

// Unfollow removes the caller from :id's followers.
// DELETE /api/accounts/users/:id/follow/
func (ac *AccountsController) Unfollow(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := ac.follows.GetUserByID(id); err != nil {
		ac.respondAuthError(c, err, "get user")
		return
	}

	userID := GetUserID(c)
	if err := ac.follows.Unfollow(id, userID); err != nil {
		ac.respondFollowError(c, err, "unfollow")
		return
	}

	ac.audit.LogAccount(userID, "unfollow", fmt.Sprintf("Unfollowed user %d", id))
	ac.respondFollowState(c, id)
}

func (ac *AccountsController) respondFollowState(c *gin.Context, id uint) {
	following, err := ac.follows.IsFollowing(id, GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "follow state")
		return
	}
	followers, _, err := ac.follows.FollowCounts(id)
	if err != nil {
		respondInternalError(c, err, "follow counts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following, "followers_count": followers})
}

func (ac *AccountsController) respondFollowError(c *gin.Context, err error, context string) {
	if errors.Is(err, users.ErrSelfFollow) {
		respondBadRequest(c, "You cannot follow yourself.")
		return
	}
	ac.respondAuthError(c, err, context)
}

// Events returns the caller's own audit trail, newest first.
// GET /api/accounts/events/?page=&limit=&type=
func (ac *AccountsController) Events(c *gin.Context) {
	if ac.events == nil {
		respondNotFound(c, "audit log")
		return
	}

	page, limit := parsePagination(c, 25, 100)
	offset := (page - 1) * limit
	filter := audit.EventFilter{
		UserID:    GetUserID(c),
		EventType: entities.AuditEventType(c.Query("type")),
	}

	events, total, err := ac.events.ListEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       events,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+len(events)) < total,
		TotalPages: totalPages,
	})
}

func (ac *AccountsController) userResponse(user *entities.User) UserResponse {
	resp := UserResponse{User: user, ProfilePicture: uploads.URL(user.ProfilePicture)}
	if ac.follows == nil {
		return resp
	}
	followers, following, err := ac.follows.FollowCounts(user.ID)
	if err != nil {
		log.Printf("Failed to count followers of user %d: %v", user.ID, err)
		return resp
	}
	resp.FollowersCount = followers
	resp.FollowingCount = following
	return resp
}

func (ac *AccountsController) savePicture(userID uint, header *multipart.FileHeader) (string, error) {
	if ac.uploads == nil {
		return "", errors.New("uploads are not configured")
	}
	if header.Size > ac.uploads.MaxSize() {
		return "", uploads.ErrTooLarge
	}
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ac.uploads.SaveProfilePicture(userID, f)
}

func (ac *AccountsController) discardPicture(rel string) {
	if rel == "" || ac.uploads == nil {
		return
	}
	if err := ac.uploads.Remove(rel); err != nil {
		log.Printf("Failed to remove profile picture %s: %v", rel, err)
	}
}

// enqueueWelcome schedules the welcome email. Failure never blocks signup.
func (ac *AccountsController) enqueueWelcome(ctx context.Context, user *entities.User) {
	if ac.tasks == nil || user.Email == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := ac.tasks.Enqueue(ctx, tasks.SendWelcomeEmailTask{UserID: user.ID}); err != nil {
		log.Printf("Failed to enqueue welcome email for user %d: %v", user.ID, err)
	}
}

func (ac *AccountsController) respondAuthError(c *gin.Context, err error, context string) {
	var fieldErrs validation.Errors
	switch {
	case errors.As(err, &fieldErrs):
		respondValidationError(c, fieldErrs)
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, users.ErrUserNotFound):
		respondNotFound(c, "user")
	default:
		respondInternalError(c, err, context)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
