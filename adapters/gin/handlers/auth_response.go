package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	core "github.com/PaulFidika/moodkit/core"
	"github.com/PaulFidika/moodkit/identity"
)

type userJSON struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

func userView(u *identity.User) userJSON {
	return userJSON{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Name:     u.FullName(),
	}
}

func sessionView(s *core.Session) gin.H {
	return gin.H{
		"token":      s.Token,
		"expires_at": s.ExpiresAt.UTC().Format(time.RFC3339),
		"user":       userView(s.User),
	}
}
