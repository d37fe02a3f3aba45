package server

import (
	"context"
	"errors"
	"net/http"

	"tailscale.com/client/tailscale/apitype"

	"github.com/claude/wotracker/internal/api"
)

// WhoIser resolves the Tailscale identity behind a remote address.
// *local.Client satisfies it.
type WhoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// UserInfo is the identity of the caller.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

type contextKey int

const (
	userIDKey contextKey = iota
	userInfoKey
)

const devDisplayName = "Local Dev User"

var errNoIdentity = errors.New("no identity")

// identity resolves the caller and stores its user ID in the request
// context. Tailscale wins when attached; otherwise the dev login is used.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := s.whoIs(r)
		if err != nil {
			s.log.Warn("identity lookup failed", "remote_addr", r.RemoteAddr, "error", err)
			writeJSON(w, http.StatusUnauthorized, api.Error{Error: "unauthorized"})
			return
		}
		uid, err := s.db.GetOrCreateUser(r.Context(), info.Login, info.DisplayName)
		if err != nil {
			s.log.Error("resolving user", "login", info.Login, "error", err)
			writeJSON(w, http.StatusInternalServerError, api.Error{Error: "resolving user"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, uid)
		ctx = context.WithValue(ctx, userInfoKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) whoIs(r *http.Request) (UserInfo, error) {
	if s.tailscale != nil {
		who, err := s.tailscale.WhoIs(r.Context(), r.RemoteAddr)
		if err != nil {
			return UserInfo{}, err
		}
		if who.UserProfile == nil || who.UserProfile.LoginName == "" {
			return UserInfo{}, errNoIdentity
		}
		return UserInfo{Login: who.UserProfile.LoginName, DisplayName: who.UserProfile.DisplayName}, nil
	}
	if s.devLogin != "" {
		return UserInfo{Login: s.devLogin, DisplayName: devDisplayName}, nil
	}
	return UserInfo{}, errNoIdentity
}

// UserIDFromContext returns the user ID stored by the identity middleware.
func UserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok && id > 0
}

func userIDFromContext(r *http.Request) int {
	id, _ := UserIDFromContext(r.Context())
	return id
}

func userInfoFromContext(r *http.Request) UserInfo {
	info, _ := r.Context().Value(userInfoKey).(UserInfo)
	return info
}

// mustUserID writes a 401 when the request carries no user.
func mustUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	uid := userIDFromContext(r)
	if uid == 0 {
		writeJSON(w, http.StatusUnauthorized, api.Error{Error: "unauthorized"})
		return 0, false
	}
	return uid, true
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	info := userInfoFromContext(r)
	writeJSON(w, http.StatusOK, api.Me{UserID: uid, Login: info.Login, DisplayName: info.DisplayName})
}
