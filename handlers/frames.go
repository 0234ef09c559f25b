// handlers/frames.go - Proof-of-Crab frame endpoints
package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"proofofcrab/config"
	"proofofcrab/identity"
	"proofofcrab/middleware"
	"proofofcrab/models"
	"proofofcrab/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// FrameRequest is the body a frame client posts on every interaction.
type FrameRequest struct {
	Fid         string       `json:"fid" validate:"omitempty,numeric,max=20"`
	ButtonValue string       `json:"button_value" validate:"max=200"`
	InputText   string       `json:"input_text" validate:"max=200"`
	Address     string       `json:"address" validate:"omitempty,eth_addr"`
	TrustedData *TrustedData `json:"trustedData,omitempty"`
}

// TrustedData carries the signed frame message.
type TrustedData struct {
	MessageBytes string `json:"messageBytes" validate:"max=4096"`
}

// FrameVerifier validates signed frame messages.
type FrameVerifier interface {
	ValidateFrameAction(ctx context.Context, messageBytes string) (*identity.FrameAction, error)
}

// Handler serves the frame routes.
type Handler struct {
	cfg      *config.Config
	frames   services.FrameStore
	users    services.IdentityResolver
	verifier FrameVerifier
	flow     *services.ChallengeFlow
	engine   *services.ProgressionEngine
	minting  *services.MintingService
	cloner   *services.FrameCloner
	validate *validator.Validate
}

func NewHandler(
	cfg *config.Config,
	frames services.FrameStore,
	users services.IdentityResolver,
	verifier FrameVerifier,
	flow *services.ChallengeFlow,
	engine *services.ProgressionEngine,
	minting *services.MintingService,
	cloner *services.FrameCloner,
) *Handler {
	return &Handler{
		cfg:      cfg,
		frames:   frames,
		users:    users,
		verifier: verifier,
		flow:     flow,
		engine:   engine,
		minting:  minting,
		cloner:   cloner,
		validate: validator.New(),
	}
}

func (h *Handler) parse(c *fiber.Ctx) (*FrameRequest, error) {
	req := &FrameRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", models.ErrValidation)
		}
	}
	req.Fid = strings.TrimSpace(req.Fid)
	req.Address = strings.TrimSpace(req.Address)
	if err := h.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrValidation)
	}
	if h.cfg.VerifyBody {
		if err := h.verify(c.UserContext(), req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// verify replaces the self-reported user of req with the interactor of the
// signed message. The typed text input is taken from the message too.
func (h *Handler) verify(ctx context.Context, req *FrameRequest) error {
	if req.TrustedData == nil || req.TrustedData.MessageBytes == "" {
		return fmt.Errorf("missing signed frame message: %w", identity.ErrInvalidFrameMessage)
	}
	action, err := h.verifier.ValidateFrameAction(ctx, req.TrustedData.MessageBytes)
	if err != nil {
		return err
	}
	if req.Fid != "" && req.Fid != action.Interactor.FidString() {
		log.Printf("[FRAME] Body fid %s replaced by signed fid %d", req.Fid, action.Interactor.Fid)
	}
	req.Fid = action.Interactor.FidString()
	req.Address = ""
	if action.Input.Text != "" {
		req.InputText = action.Input.Text
	}
	return nil
}

// renderError logs err and answers with the generic error directive.
func (h *Handler) renderError(c *fiber.Ctx, err error, frameID string) error {
	status := middleware.StatusFor(err)
	log.Printf("[FRAME] %s %s failed (%d): %v", c.Method(), c.Path(), status, err)
	return c.Status(status).JSON(Directive{
		Kind:    KindError,
		Image:   h.image(imageError),
		FrameID: frameID,
		Buttons: []Button{{Label: "Back to Home", Action: homePath(frameID)}},
	})
}

// Home renders the landing directive of a frame, or of the default frame.
func (h *Handler) Home(c *fiber.Ctx) error {
	frameID := c.Params("frameId")
	if frameID == "" {
		frameID = h.cfg.DefaultFrameID
	}

	frame, err := h.frames.GetFrame(c.UserContext(), frameID)
	if err != nil {
		return h.renderError(c, err, frameID)
	}

	buttons := []Button{{Label: "▶️ Start", Action: newChallengePath(frame.ID)}}
	if h.cfg.AppBaseURL != "" {
		buttons = append(buttons, Button{
			Label: "View Crabs",
			Href:  strings.TrimRight(h.cfg.AppBaseURL, "/") + "/" + frame.ID,
		})
	}
	return c.JSON(Directive{
		Kind:    KindHome,
		Image:   h.image(imageHome),
		FrameID: frame.ID,
		Buttons: buttons,
	})
}

// NewChallenge checks ownership and starts a challenge at step 1.
func (h *Handler) NewChallenge(c *fiber.Ctx) error {
	frameID := c.Params("frameId")
	req, err := h.parse(c)
	if err != nil {
		return h.renderError(c, err, frameID)
	}

	var addresses []string
	if req.Address != "" {
		addresses = append(addresses, req.Address)
	}
	res, err := h.flow.Start(c.UserContext(), frameID, req.Fid, addresses...)
	if err != nil {
		return h.renderError(c, err, frameID)
	}

	if res.AlreadyOwned {
		buttons := []Button{{Label: "Back to Home", Action: homePath(res.Frame.ID)}}
		if res.Frame.ProofURL != "" {
			buttons = append(buttons, Button{Label: "View my 🦀 Proof", Href: res.Frame.ProofURL})
		}
		return c.JSON(Directive{
			Kind:    KindAlreadyOwned,
			Image:   h.image(imageHome),
			Text:    "You already own this 🦀 proof !",
			FrameID: res.Frame.ID,
			Buttons: buttons,
		})
	}
	return c.JSON(h.progressDirective(res.Progress))
}

// SubmitAnswer grades the clicked button against the current step.
func (h *Handler) SubmitAnswer(c *fiber.Ctx) error {
	challengeID := c.Params("challengeId")
	req, err := h.parse(c)
	if err != nil {
		return h.renderError(c, err, "")
	}

	progress, err := h.engine.SubmitAnswer(c.UserContext(), challengeID, req.ButtonValue)
	if err != nil {
		return h.renderError(c, err, "")
	}
	return c.JSON(h.progressDirective(progress))
}

// CurrentStep re-renders a challenge without answering.
func (h *Handler) CurrentStep(c *fiber.Ctx) error {
	progress, err := h.engine.Current(c.UserContext(), c.Params("challengeId"))
	if err != nil {
		return h.renderError(c, err, "")
	}
	return c.JSON(h.progressDirective(progress))
}

func (h *Handler) progressDirective(p *services.Progress) Directive {
	challenge := p.Challenge
	total := challenge.Steps.Data().TotalSteps

	switch p.State {
	case services.StatePassed:
		return Directive{
			Kind:        KindPassed,
			Image:       h.image(imagePass),
			TextInput:   "Enter external wallet...",
			FrameID:     challenge.FrameID,
			ChallengeID: challenge.ID,
			TotalSteps:  total,
			Buttons:     []Button{{Label: "Mint your 🦀 Proof", Value: "mint", Action: proofPath(challenge.ID)}},
		}
	case services.StateFailed:
		return Directive{
			Kind:        KindFailed,
			Image:       h.image(imageFail),
			FrameID:     challenge.FrameID,
			ChallengeID: challenge.ID,
			TotalSteps:  total,
			Buttons:     []Button{{Label: "Try again", Value: "retry", Action: newChallengePath(challenge.FrameID)}},
		}
	}

	q := p.Question
	buttons := make([]Button, 0, len(q.ProposedAnswers))
	for _, answer := range q.ProposedAnswers {
		buttons = append(buttons, Button{Label: answer, Value: answer})
	}
	return Directive{
		Kind:        KindQuestion,
		Image:       q.ImageURL,
		Text:        q.Prompt,
		Action:      challengePath(challenge.ID),
		FrameID:     challenge.FrameID,
		ChallengeID: challenge.ID,
		Step:        p.Step,
		TotalSteps:  total,
		Buttons:     buttons,
	}
}

// MintProof mints the proof of a passed challenge to the wallet typed in the
// text input, or to the user's custody address.
func (h *Handler) MintProof(c *fiber.Ctx) error {
	challengeID := c.Params("challengeId")
	req, err := h.parse(c)
	if err != nil {
		return h.renderError(c, err, "")
	}

	destination := strings.TrimSpace(req.InputText)
	if destination == "" {
		destination = req.Address
	}
	res, err := h.minting.MintChallengeProof(c.UserContext(), challengeID, destination)
	if err != nil {
		return h.renderError(c, err, "")
	}

	var buttons []Button
	if res.Frame.ProofURL != "" {
		buttons = append(buttons, Button{Label: "View my 🦀 Proof", Href: res.Frame.ProofURL})
	}
	return c.JSON(Directive{
		Kind:          KindMinted,
		Image:         h.image(imagePass),
		Text:          fmt.Sprintf("Proof minted - tx hash: %s", res.TransactionID),
		FrameID:       res.Frame.ID,
		ChallengeID:   res.Challenge.ID,
		TransactionID: res.TransactionID,
		Buttons:       buttons,
	})
}

// ================== FRAME PROVISIONING ==================

// AddFrame offers the default frame or a custom clone.
func (h *Handler) AddFrame(c *fiber.Ctx) error {
	return c.JSON(Directive{
		Kind:  KindAddFrame,
		Image: h.image(imageHome),
		Buttons: []Button{
			{Label: "Use 🦀 with my account", Href: shareLink(h.cfg.BaseURL, apiBase)},
			{Label: "Setup a custom 🦀", Action: apiBase + "/add-frame-to-account/clone"},
		},
	})
}

// CloneFrame provisions a frame for the requesting user from the default template.
func (h *Handler) CloneFrame(c *fiber.Ctx) error {
	req, err := h.parse(c)
	if err != nil {
		return h.renderError(c, err, "")
	}
	if req.Fid == "" {
		return h.renderError(c, fmt.Errorf("fid is required: %w", models.ErrValidation), "")
	}
	ctx := c.UserContext()

	template, err := h.frames.GetFrame(ctx, h.cfg.DefaultFrameID)
	if err != nil {
		return h.renderError(c, err, "")
	}

	profile, err := h.users.ResolveUser(ctx, req.Fid)
	if err != nil {
		return h.renderError(c, err, "")
	}
	ownerAddress := req.Address
	if ownerAddress == "" && profile != nil {
		ownerAddress = profile.CustodyAddress
	}

	frame, err := h.cloner.Clone(ctx, template, req.Fid, ownerAddress, profile)
	if err != nil {
		return h.renderError(c, err, "")
	}

	return c.Status(fiber.StatusCreated).JSON(Directive{
		Kind:    KindFrameCloned,
		Image:   h.image(imageHome),
		FrameID: frame.ID,
		Buttons: []Button{{Label: "Activate 🦀 on my account", Href: shareLink(h.cfg.BaseURL, homePath(frame.ID))}},
	})
}
