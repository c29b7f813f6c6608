// controllers/webauthn_controller.go
package controllers

import (
	"context"
	"net/http"

	"Gin_postgres_redis_tool_ledger/app"
	"Gin_postgres_redis_tool_ledger/models"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ===== Add credential (signed in) =====

func (s *Srv) BeginAddCredential(c *gin.Context) {
	a, _ := app.ActorFrom(c)
	ctx := c.Request.Context()

	wUser, err := s.loadWAUserByID(ctx, a.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}

	// exclude credentials already bound so one device cannot register twice
	exclude := make([]protocol.CredentialDescriptor, 0, len(wUser.creds))
	for _, cr := range wUser.creds {
		exclude = append(exclude, cr.Descriptor())
	}
	opts, sd, err := s.WA.BeginRegistration(
		wUser,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
		webauthn.WithExclusions(exclude),
	)
	if err != nil {
		respondError(c, s.Log, err)
		return
	}

	if err := s.Sess.SaveReg(ctx, wUser.user.ID, sd); err != nil {
		respondError(c, s.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"opts": opts})
}

func (s *Srv) FinishAddCredential(c *gin.Context) {
	a, _ := app.ActorFrom(c)
	ctx := c.Request.Context()

	wUser, err := s.loadWAUserByID(ctx, a.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}

	sd, err := s.Sess.LoadReg(ctx, wUser.user.ID)
	if err != nil {
		badRequest(c, "session expired or invalid")
		return
	}

	cred, err := s.WA.FinishRegistration(wUser, *sd, c.Request)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := s.Repo.AddCredential(ctx, &models.Credential{
		UserID:          wUser.user.ID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}); err != nil {
		respondError(c, s.Log, err)
		return
	}
	s.Sess.DelReg(ctx, wUser.user.ID)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// ===== Login =====

type loginBeginReq struct {
	Username     string `json:"username"`
	Discoverable bool   `json:"discoverable"`
}
type loginBeginResp struct {
	Options   *protocol.CredentialAssertion `json:"options"`
	SessionID string                        `json:"sessionId"`
}

func (s *Srv) BeginLogin(c *gin.Context) {
	var req loginBeginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}
	if !req.Discoverable && req.Username == "" {
		badRequest(c, "username is required unless discoverable")
		return
	}
	ctx := c.Request.Context()

	var (
		opts *protocol.CredentialAssertion
		sd   *webauthn.SessionData
		err  error
	)
	if req.Discoverable {
		opts, sd, err = s.WA.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationRequired))
	} else {
		wUser, err2 := s.loadWAUserByUsername(ctx, req.Username)
		if err2 != nil {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		opts, sd, err = s.WA.BeginLogin(wUser, webauthn.WithUserVerification(protocol.VerificationRequired))
	}
	if err != nil {
		respondError(c, s.Log, err)
		return
	}

	sid := uuid.NewString()
	if err := s.Sess.SaveAuth(ctx, sid, sd); err != nil {
		respondError(c, s.Log, err)
		return
	}
	c.JSON(http.StatusOK, loginBeginResp{Options: opts, SessionID: sid})
}

func (s *Srv) FinishLogin(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		badRequest(c, "missing sessionId")
		return
	}
	ctx := c.Request.Context()
	sd, err := s.Sess.LoadAuth(ctx, sid)
	if err != nil {
		badRequest(c, "session expired or invalid")
		return
	}

	var (
		user *waUser
		cred *webauthn.Credential
	)
	if username := c.Query("username"); username != "" {
		if user, err = s.loadWAUserByUsername(ctx, username); err != nil {
			c.JSON(http.StatusNotFound, app.H{"error": "user not found"})
			return
		}
		if cred, err = s.WA.FinishLogin(user, *sd, c.Request); err != nil {
			c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
			return
		}
	} else {
		var found webauthn.User
		found, cred, err = s.WA.FinishPasskeyLogin(s.discoverableUser(ctx), *sd, c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
			return
		}
		user = found.(*waUser)
	}
	if err := s.Repo.UpdateCredentialCounter(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning); err != nil {
		s.Log.Warn("update credential counter failed", zap.Uint("user_id", user.user.ID), zap.Error(err))
	}
	s.Sess.DelAuth(ctx, sid)

	token, err := s.issueSession(ctx, c.Writer, &user.user)
	if err != nil {
		respondError(c, s.Log, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"token":    token,
		"userId":   user.user.ID,
		"username": user.user.Username,
		"role":     user.user.Role,
		"fullName": user.user.FullName,
	})
}

func (s *Srv) discoverableUser(ctx context.Context) webauthn.DiscoverableUserHandler {
	return func(rawID, _ []byte) (webauthn.User, error) {
		u, _, err := s.Repo.FindUserByCredentialID(ctx, rawID)
		if err != nil {
			return nil, protocol.ErrBadRequest.WithDetails("credential not found")
		}
		w, err := s.waUserFor(ctx, u)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}
