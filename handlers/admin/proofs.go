package admin

import (
	"github.com/gofiber/fiber/v2"
)

// ChallengeTransaction returns the issuance transaction of a minted challenge.
func (h *Handler) ChallengeTransaction(c *fiber.Ctx) error {
	tx, err := h.minting.ChallengeTransaction(c.UserContext(), c.Params("challengeId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"transaction": tx,
	})
}

// FrameItem returns the issuance item linked to a frame.
func (h *Handler) FrameItem(c *fiber.Ctx) error {
	ctx := c.UserContext()
	frame, err := h.frames.GetFrame(ctx, c.Params("frameId"))
	if err != nil {
		return respondError(c, err)
	}
	item, err := h.minting.FrameItem(ctx, frame)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"item":    item,
	})
}
