package admin

import (
	"log"

	"proofofcrab/config"
	"proofofcrab/middleware"
	"proofofcrab/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Handler serves the operator API under /api/admin.
type Handler struct {
	cfg        *config.Config
	frames     services.FrameStore
	items      services.ItemStore
	users      services.IdentityResolver
	minting    *services.MintingService
	reconciler *services.ItemReconciler
	validate   *validator.Validate
}

func NewHandler(
	cfg *config.Config,
	frames services.FrameStore,
	items services.ItemStore,
	users services.IdentityResolver,
	minting *services.MintingService,
	reconciler *services.ItemReconciler,
) *Handler {
	return &Handler{
		cfg:        cfg,
		frames:     frames,
		items:      items,
		users:      users,
		minting:    minting,
		reconciler: reconciler,
		validate:   validator.New(),
	}
}

// Register mounts the admin routes on router.
func (h *Handler) Register(router fiber.Router) {
	adminGroup := router.Group("/admin")
	adminGroup.Post("/login", h.Login)
	adminGroup.Post("/logout", h.Logout)

	adminProtected := adminGroup.Group("")
	adminProtected.Use(middleware.AdminAuth(h.cfg.JWTSecret))
	adminProtected.Get("/verify", h.VerifyToken)
	adminProtected.Post("/frames/:frameId/item", h.ProvisionItem)
	adminProtected.Get("/frames/:frameId/item", h.FrameItem)
	adminProtected.Get("/items/orphaned", h.ListOrphanedItems)
	adminProtected.Post("/items/reconcile", h.ReconcileItems)
	adminProtected.Get("/challenges/:challengeId/transaction", h.ChallengeTransaction)
}

func respondError(c *fiber.Ctx, err error) error {
	status := middleware.StatusFor(err)
	log.Printf("[ADMIN] %s %s failed (%d): %v", c.Method(), c.Path(), status, err)
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
