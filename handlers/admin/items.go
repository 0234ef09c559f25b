package admin

import (
	"fmt"

	"proofofcrab/models"

	"github.com/gofiber/fiber/v2"
)

type ProvisionItemRequest struct {
	// Credential overrides the frame's stored issuance key.
	Credential string `json:"credential"`
	OwnerFid   string `json:"owner_fid" validate:"omitempty,numeric"`
	ArtworkURL string `json:"artwork_url" validate:"required,url"`
}

// ProvisionItem creates and locks the proof item of a frame. A lock failure
// answers 502 with the orphaned saga record.
func (h *Handler) ProvisionItem(c *fiber.Ctx) error {
	var req ProvisionItemRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.ErrBadRequest)
	}
	if err := h.validate.Struct(&req); err != nil {
		return respondError(c, fmt.Errorf("%v: %w", err, models.ErrValidation))
	}

	ctx := c.UserContext()
	frame, err := h.frames.GetFrame(ctx, c.Params("frameId"))
	if err != nil {
		return respondError(c, err)
	}

	ownerFid := req.OwnerFid
	if ownerFid == "" {
		ownerFid = frame.AccountFid
	}
	profile, err := h.users.ResolveUser(ctx, ownerFid)
	if err != nil {
		return respondError(c, err)
	}

	item, err := h.minting.ProvisionItem(ctx, frame, req.Credential, ownerFid, req.ArtworkURL, profile)
	if err != nil {
		if item != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
				"item":    item,
			})
		}
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"item":    item,
	})
}

// ListOrphanedItems lists items created but never locked.
func (h *Handler) ListOrphanedItems(c *fiber.Ctx) error {
	items, err := h.items.ListProvisionedItems(c.UserContext(), models.ItemStatusOrphaned)
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []models.ProvisionedItem{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"items":   items,
	})
}

// ReconcileItems runs a reconciliation pass now. A pass cut short by its
// timeout still reports what it did.
func (h *Handler) ReconcileItems(c *fiber.Ctx) error {
	report, err := h.reconciler.RunOnce(c.UserContext())
	if err != nil && report == nil {
		return respondError(c, err)
	}
	resp := fiber.Map{
		"success": err == nil,
		"report":  report,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(resp)
}
