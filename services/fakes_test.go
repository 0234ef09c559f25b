package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"proofofcrab/identity"
	"proofofcrab/issuance"
	"proofofcrab/models"

	"gorm.io/datatypes"
)

// memStore is an in-memory FrameStore, QuestionStore, ChallengeStore and ItemStore.
type memStore struct {
	mu         sync.Mutex
	frames     map[string]models.Frame
	questions  []models.Question
	challenges map[string]models.Challenge
	items      map[uint]models.ProvisionedItem
	nextItemID uint

	failUpdates    error
	failItemCreate error
	// beforeStepsWrite runs once, ahead of the next UpdateChallengeSteps.
	beforeStepsWrite func()
}

func newMemStore() *memStore {
	return &memStore{
		frames:     map[string]models.Frame{},
		challenges: map[string]models.Challenge{},
		items:      map[uint]models.ProvisionedItem{},
	}
}

// cloneChallenge deep-copies through JSON so callers never share step slices.
func cloneChallenge(c models.Challenge) models.Challenge {
	b, err := json.Marshal(c)
	if err != nil {
		panic(err)
	}
	var out models.Challenge
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

func (m *memStore) GetFrame(_ context.Context, id string) (*models.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames[id]
	if !ok || id == "" {
		return nil, fmt.Errorf("frame %q: %w", id, models.ErrNotFound)
	}
	f.IssuanceAPIKey = ""
	return &f, nil
}

func (m *memStore) GetFrameAPIKey(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames[id]
	if !ok {
		return "", fmt.Errorf("frame %q: %w", id, models.ErrNotFound)
	}
	return f.IssuanceAPIKey, nil
}

func (m *memStore) CreateFrame(_ context.Context, frame *models.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[frame.ID] = *frame
	return nil
}

func (m *memStore) CountFramesForAccount(_ context.Context, fid string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, f := range m.frames {
		if f.AccountFid == fid {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdateFrameItem(_ context.Context, frameID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.frames[frameID]
	if !ok {
		return models.ErrNotFound
	}
	f.ProofItemID = itemID
	m.frames[frameID] = f
	return nil
}

func (m *memStore) GetQuestions(context.Context) ([]models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Question(nil), m.questions...), nil
}

func (m *memStore) CreateChallenge(_ context.Context, c *models.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[c.ID] = cloneChallenge(*c)
	return nil
}

func (m *memStore) GetChallenge(_ context.Context, id string) (*models.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return nil, fmt.Errorf("challenge %q: %w", id, models.ErrNotFound)
	}
	out := cloneChallenge(c)
	return &out, nil
}

func (m *memStore) cas(c *models.Challenge, apply func(stored *models.Challenge) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdates != nil {
		return m.failUpdates
	}
	stored, ok := m.challenges[c.ID]
	if !ok {
		return models.ErrNotFound
	}
	if stored.Version != c.Version {
		return models.ErrConflict
	}
	if err := apply(&stored); err != nil {
		return err
	}
	stored.Version++
	m.challenges[c.ID] = cloneChallenge(stored)
	c.Version = stored.Version
	return nil
}

func (m *memStore) UpdateChallengeSteps(_ context.Context, c *models.Challenge) error {
	m.mu.Lock()
	hook := m.beforeStepsWrite
	m.beforeStepsWrite = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	steps := cloneChallenge(*c).Steps
	return m.cas(c, func(stored *models.Challenge) error {
		stored.Steps = steps
		stored.Score = c.Score
		return nil
	})
}

func (m *memStore) ReserveChallengeMint(_ context.Context, c *models.Challenge) error {
	return m.cas(c, func(stored *models.Challenge) error {
		if stored.HasMintedProof || stored.MintRequestedAt != nil {
			return models.ErrConflict
		}
		stored.MintRequestedAt = c.MintRequestedAt
		return nil
	})
}

func (m *memStore) UpdateChallengeProof(_ context.Context, c *models.Challenge) error {
	return m.cas(c, func(stored *models.Challenge) error {
		if stored.HasMintedProof {
			return models.ErrConflict
		}
		stored.HasMintedProof = c.HasMintedProof
		stored.MintTxID = c.MintTxID
		stored.MintDestination = c.MintDestination
		stored.MintRequestedAt = c.MintRequestedAt
		return nil
	})
}

func (m *memStore) CreateProvisionedItem(_ context.Context, item *models.ProvisionedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failItemCreate != nil {
		return m.failItemCreate
	}
	m.nextItemID++
	item.ID = m.nextItemID
	m.items[item.ID] = *item
	return nil
}

func (m *memStore) UpdateProvisionedItem(_ context.Context, item *models.ProvisionedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = *item
	return nil
}

func (m *memStore) ListProvisionedItems(_ context.Context, status models.ItemStatus) ([]models.ProvisionedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProvisionedItem
	for id := uint(1); id <= m.nextItemID; id++ {
		if it, ok := m.items[id]; ok && it.Status == status {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) challenge(id string) models.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneChallenge(m.challenges[id])
}

// fakeIssuer records calls and answers from its fields.
type fakeIssuer struct {
	mu       sync.Mutex
	mints    []issuance.MintRequest
	mintKeys []string
	created  []issuance.CreateItemRequest
	locks    []string
	lockKeys []string
	supplies []int
	mintErr  error
	lockErr  error
	remote   map[string]issuance.Item
	nextTx   int
	nextItem int

	// mintStarted and mintGate, when set, let a test hold CreateMintRequest open.
	mintStarted chan struct{}
	mintGate    chan struct{}
}

func (f *fakeIssuer) CreateItem(_ context.Context, _ string, req issuance.CreateItemRequest) (*issuance.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	f.nextItem++
	return &issuance.Item{ID: "item-" + strconv.Itoa(f.nextItem), CollectionID: req.CollectionID, Attributes: req.Attributes}, nil
}

func (f *fakeIssuer) LockItem(_ context.Context, apiKey, itemID string, maxSupply int) (*issuance.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks = append(f.locks, itemID)
	f.lockKeys = append(f.lockKeys, apiKey)
	f.supplies = append(f.supplies, maxSupply)
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	q := issuance.Quantity(maxSupply)
	return &issuance.Item{ID: itemID, Locked: true, MaxSupply: &q}, nil
}

func (f *fakeIssuer) CreateMintRequest(_ context.Context, apiKey string, req issuance.MintRequest) (*issuance.MintResponse, error) {
	if f.mintStarted != nil {
		f.mintStarted <- struct{}{}
	}
	if f.mintGate != nil {
		<-f.mintGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mintErr != nil {
		return nil, f.mintErr
	}
	f.mints = append(f.mints, req)
	f.mintKeys = append(f.mintKeys, apiKey)
	f.nextTx++
	return &issuance.MintResponse{MintRequests: []issuance.CreatedMintRequest{
		{ID: "mr-" + strconv.Itoa(f.nextTx), TransactionID: "tx-" + strconv.Itoa(f.nextTx)},
	}}, nil
}

func (f *fakeIssuer) GetTransaction(_ context.Context, _ string, transactionID string) (*issuance.Transaction, error) {
	return &issuance.Transaction{ID: transactionID, State: "COMPLETED"}, nil
}

func (f *fakeIssuer) GetItem(_ context.Context, _ string, itemID string) (*issuance.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.remote[itemID]; ok {
		return &it, nil
	}
	return &issuance.Item{ID: itemID}, nil
}

// pagedOwners serves a fixed sequence of pages keyed by the cursor that requests them.
type pagedOwners struct {
	pages   map[string]issuance.OwnersPage
	fetched []string
	err     error
}

func (p *pagedOwners) ListOwners(_ context.Context, _ string, cursor string) (*issuance.OwnersPage, error) {
	p.fetched = append(p.fetched, cursor)
	if p.err != nil {
		return nil, p.err
	}
	page, ok := p.pages[cursor]
	if !ok {
		return nil, fmt.Errorf("unexpected cursor %q", cursor)
	}
	return &page, nil
}

type fakeUsers map[string]*identity.Profile

func (f fakeUsers) ResolveUser(_ context.Context, fid string) (*identity.Profile, error) {
	return f[fid], nil
}

func validQuestion(id uint, frameID string, position int, correct string) models.Question {
	return models.Question{
		ID:              id,
		FrameID:         frameID,
		Position:        position,
		Prompt:          "Question " + strconv.Itoa(int(id)),
		ProposedAnswers: datatypes.NewJSONType([]string{"wrong-1", correct, "wrong-2", "wrong-3"}),
		CorrectAnswer:   correct,
	}
}

func datatypesOf(steps models.ChallengeSteps) datatypes.JSONType[models.ChallengeSteps] {
	return datatypes.NewJSONType(steps)
}
