// services/ownership.go - Checks whether a user already holds a frame's proof
package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"proofofcrab/issuance"
	"proofofcrab/models"
)

// OwnershipGate walks the paginated holders of a frame's proof item looking
// for any of a user's addresses.
type OwnershipGate struct {
	owners      OwnersLister
	minQuantity issuance.Quantity
}

func NewOwnershipGate(owners OwnersLister, minQuantity int) *OwnershipGate {
	if minQuantity < 1 {
		minQuantity = 1
	}
	return &OwnershipGate{owners: owners, minQuantity: issuance.Quantity(minQuantity)}
}

// Check returns true as soon as a page holds one of addresses with at least
// the minimum quantity. Empty input returns false without calling the service.
func (g *OwnershipGate) Check(ctx context.Context, frame *models.Frame, addresses ...string) (bool, error) {
	wanted := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			wanted[a] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return false, nil
	}
	if frame == nil || frame.ProofItemID == "" {
		log.Printf("[OWNERSHIP] Frame has no proof item, nobody owns it yet")
		return false, nil
	}

	cursor := ""
	seen := map[string]bool{}
	for pages := 1; ; pages++ {
		page, err := g.owners.ListOwners(ctx, frame.ProofItemID, cursor)
		if err != nil {
			return false, fmt.Errorf("list owners of item %s: %w", frame.ProofItemID, err)
		}

		for _, owner := range page.Results {
			if _, ok := wanted[strings.ToLower(owner.Address)]; !ok {
				continue
			}
			if owner.Quantity >= g.minQuantity {
				log.Printf("[OWNERSHIP] Found holder of item %s on page %d", frame.ProofItemID, pages)
				return true, nil
			}
		}

		if !page.HasMore {
			return false, nil
		}
		if page.Cursor == "" || seen[page.Cursor] {
			log.Printf("[OWNERSHIP] Owners of item %s report more pages without a new cursor, stopping after %d pages", frame.ProofItemID, pages)
			return false, nil
		}
		seen[page.Cursor] = true
		cursor = page.Cursor
	}
}
