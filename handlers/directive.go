// handlers/directive.go - Rendering directives returned to the frame client
package handlers

import (
	"fmt"
	"net/url"
	"strings"
)

// Directive kinds.
const (
	KindHome         = "home"
	KindQuestion     = "question"
	KindAlreadyOwned = "already_owned"
	KindPassed       = "passed"
	KindFailed       = "failed"
	KindMinted       = "minted"
	KindError        = "error"
	KindAddFrame     = "add_frame"
	KindFrameCloned  = "frame_cloned"
)

// Directive tells the client which image, text input and buttons to present.
// Button actions are paths posted back to this service; hrefs are links.
type Directive struct {
	Kind          string   `json:"kind"`
	Image         string   `json:"image"`
	Text          string   `json:"text,omitempty"`
	Action        string   `json:"action,omitempty"`
	TextInput     string   `json:"text_input,omitempty"`
	Buttons       []Button `json:"buttons"`
	FrameID       string   `json:"frame_id,omitempty"`
	ChallengeID   string   `json:"challenge_id,omitempty"`
	Step          int      `json:"step,omitempty"`
	TotalSteps    int      `json:"total_steps,omitempty"`
	TransactionID string   `json:"transaction_id,omitempty"`
}

type Button struct {
	Label  string `json:"label"`
	Value  string `json:"value,omitempty"`
	Action string `json:"action,omitempty"`
	Href   string `json:"href,omitempty"`
}

// Frame images served from the assets bucket.
const (
	imageHome  = "GrabHome.png"
	imagePass  = "CrabPass.png"
	imageFail  = "CrabFail.png"
	imageError = "CrabError.png"
)

const apiBase = "/api"

func homePath(frameID string) string {
	if frameID == "" {
		return apiBase + "/proof-of-crab"
	}
	return apiBase + "/proof-of-crab/" + url.PathEscape(frameID)
}

func newChallengePath(frameID string) string {
	return homePath(frameID) + "/new-challenge"
}

func challengePath(challengeID string) string {
	return apiBase + "/proof-of-crab/challenge/" + url.PathEscape(challengeID)
}

func proofPath(challengeID string) string {
	return challengePath(challengeID) + "/proof"
}

// shareLink composes a cast embedding the frame served at path.
func shareLink(baseURL, path string) string {
	return "https://warpcast.com/~/compose?embeds[]=" + strings.TrimRight(baseURL, "/") + path
}

func (h *Handler) image(name string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(h.cfg.AssetsBaseURL, "/"), name)
}
