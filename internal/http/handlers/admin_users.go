package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmendes/authsystem/internal/config"
	"github.com/rmendes/authsystem/internal/domain/user"
	"github.com/rmendes/authsystem/internal/repo"
)

type UserAdminStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// AdminUsersHandler serves the admin panel. Every route behind it is
// guarded by RequireAuth + RequireAdmin in the router; the handlers assume
// an admin identity is already on the context.
type AdminUsersHandler struct {
	users UserAdminStore
}

func NewAdminUsersHandler(users UserAdminStore) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// VerifyToken only runs once the middleware chain has accepted the token,
// so all that is left to report is success.
func (h *AdminUsersHandler) VerifyToken(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *AdminUsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.users.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Failed to load users")
		return
	}

	// User's JSON marshalling already omits the password hash.
	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AdminUsersHandler) GetUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Failed to load user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *AdminUsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.users.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// Second delete of the same id lands here.
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Failed to delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
