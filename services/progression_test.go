package services

import (
	"context"
	"errors"
	"testing"

	"proofofcrab/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *memStore
	issuer  *fakeIssuer
	users   fakeUsers
	bank    *QuestionBank
	builder *ChallengeBuilder
	engine  *ProgressionEngine
	minting *MintingService
	frameID string
}

func newFixture(t *testing.T, questions ...models.Question) *fixture {
	t.Helper()
	store := newMemStore()
	store.questions = questions
	require.NoError(t, store.CreateFrame(context.Background(), &models.Frame{
		ID:                "frame-1",
		Name:              "Crabs",
		ProofItemID:       "proof-item",
		ProofCollectionID: "collection-1",
		IssuanceAPIKey:    "frame-key",
	}))

	issuer := &fakeIssuer{}
	users := fakeUsers{}
	bank := NewQuestionBank(store, 0, false)
	return &fixture{
		store:   store,
		issuer:  issuer,
		users:   users,
		bank:    bank,
		builder: NewChallengeBuilder(store, store, bank),
		engine:  NewProgressionEngine(store),
		minting: NewMintingService(store, store, store, issuer, users, 1000),
		frameID: "frame-1",
	}
}

func (f *fixture) build(t *testing.T) *models.Challenge {
	t.Helper()
	ch, err := f.builder.Build(context.Background(), f.frameID, "42")
	require.NoError(t, err)
	return ch
}

func TestBuildCreatesUnansweredSteps(t *testing.T) {
	f := newFixture(t,
		validQuestion(1, "", 1, "a"),
		validQuestion(2, "", 2, "b"),
		validQuestion(3, "", 3, "c"),
	)
	ch := f.build(t)

	steps := ch.Steps.Data()
	require.Equal(t, 3, steps.TotalSteps)
	require.Len(t, steps.Questions, 3)
	for i, s := range steps.Questions {
		assert.Equal(t, i+1, s.Position)
		assert.False(t, s.Answered())
		assert.Nil(t, s.IsValidAnswer)
	}
	assert.Equal(t, models.ScoreNotCompleted, ch.Score)
	assert.Equal(t, 1, ch.Version)

	progress, err := f.engine.Current(context.Background(), ch.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingStep, progress.State)
	assert.Equal(t, 1, progress.Step)
}

func TestBuildUnknownFrame(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "a"))
	_, err := f.builder.Build(context.Background(), "missing", "42")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestThreeStepChallengeWithOneWrongAnswerFails(t *testing.T) {
	f := newFixture(t,
		validQuestion(1, "", 1, "a"),
		validQuestion(2, "", 2, "b"),
		validQuestion(3, "", 3, "c"),
	)
	ch := f.build(t)
	ctx := context.Background()

	p, err := f.engine.SubmitAnswer(ctx, ch.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingStep, p.State)
	assert.Equal(t, 2, p.Step)
	assert.True(t, p.Graded.Valid())

	p, err = f.engine.SubmitAnswer(ctx, ch.ID, "wrong-1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingStep, p.State)
	assert.Equal(t, 3, p.Step)
	assert.False(t, p.Graded.Valid())

	p, err = f.engine.SubmitAnswer(ctx, ch.ID, "c")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, p.State)

	stored := f.store.challenge(ch.ID)
	assert.Equal(t, models.ScoreFailed, stored.Score)
	assert.Equal(t, 3, stored.Steps.Data().AnsweredCount())
	assert.Equal(t, 4, stored.Version)
}

func TestSingleStepChallengePassesThenMints(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "Paris"))
	ch := f.build(t)
	ctx := context.Background()

	p, err := f.engine.SubmitAnswer(ctx, ch.ID, "paris")
	require.NoError(t, err)
	assert.Equal(t, StatePassed, p.State)

	res, err := f.minting.MintChallengeProof(ctx, ch.ID, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", res.TransactionID)
	assert.False(t, res.Cached)

	stored := f.store.challenge(ch.ID)
	assert.True(t, stored.HasMintedProof)
	assert.Equal(t, "tx-1", stored.MintTxID)

	require.Len(t, f.issuer.mints, 1)
	assert.Equal(t, "proof-item", f.issuer.mints[0].ItemID)
	assert.EqualValues(t, 1, f.issuer.mints[0].Quantity)
	assert.Equal(t, "frame-key", f.issuer.mintKeys[0])
}

func TestGradingIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "paris"))
	ch := f.build(t)

	p, err := f.engine.SubmitAnswer(context.Background(), ch.ID, "PARIS")
	require.NoError(t, err)
	assert.Equal(t, StatePassed, p.State)
	require.NotNil(t, p.Graded.AnsweredAt)
}

func TestAnswerOnTerminalChallengeIsNoOp(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "a"))
	ch := f.build(t)
	ctx := context.Background()

	_, err := f.engine.SubmitAnswer(ctx, ch.ID, "wrong-2")
	require.NoError(t, err)
	before := f.store.challenge(ch.ID)

	p, err := f.engine.SubmitAnswer(ctx, ch.ID, "a")
	require.NoError(t, err)
	assert.True(t, p.Replayed)
	assert.Equal(t, StateFailed, p.State)

	after := f.store.challenge(ch.ID)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, models.ScoreFailed, after.Score)
	assert.Equal(t, "wrong-2", *after.Steps.Data().Questions[0].SelectedAnswer)
}

func TestSubmitGradesFirstUnansweredStepRegardlessOfStorageOrder(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "a"), validQuestion(2, "", 2, "b"))
	ch := f.build(t)

	// store the steps out of order
	stored := f.store.challenge(ch.ID)
	steps := stored.Steps.Data()
	steps.Questions[0], steps.Questions[1] = steps.Questions[1], steps.Questions[0]
	stored.Steps = datatypesOf(steps)
	f.store.challenges[ch.ID] = stored

	p, err := f.engine.SubmitAnswer(context.Background(), ch.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Graded.Position)
	assert.True(t, p.Graded.Valid())
	assert.Equal(t, 2, p.Step)
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "a"))
	ch := f.build(t)
	ctx := context.Background()

	_, err := f.engine.SubmitAnswer(ctx, "", "a")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.engine.SubmitAnswer(ctx, "missing", "a")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.engine.SubmitAnswer(ctx, ch.ID, "  ")
	assert.ErrorIs(t, err, models.ErrValidation)

	boom := errors.New("disk full")
	f.store.failUpdates = boom
	_, err = f.engine.SubmitAnswer(ctx, ch.ID, "a")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, models.ScoreNotCompleted, f.store.challenge(ch.ID).Score)
}

func TestStaleStepsWriteIsRejectedByStore(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "a"), validQuestion(2, "", 2, "b"))
	ch := f.build(t)
	ctx := context.Background()

	// a second request loaded the same version and wrote first
	stale, err := f.store.GetChallenge(ctx, ch.ID)
	require.NoError(t, err)
	_, err = f.engine.SubmitAnswer(ctx, ch.ID, "a")
	require.NoError(t, err)

	steps := stale.Steps.Data()
	steps.Questions[0].Grade("wrong-1", f.engine.now())
	stale.Steps = datatypesOf(steps)
	err = f.store.UpdateChallengeSteps(ctx, stale)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.True(t, f.store.challenge(ch.ID).Steps.Data().Questions[0].Valid())
}

func TestSubmitLosingRaceReturnsConflict(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "a"), validQuestion(2, "", 2, "b"))
	ch := f.build(t)
	ctx := context.Background()

	// another request answers step 1 between this request's read and write
	var competing *Progress
	f.store.beforeStepsWrite = func() {
		var err error
		competing, err = f.engine.SubmitAnswer(ctx, ch.ID, "a")
		require.NoError(t, err)
	}

	_, err := f.engine.SubmitAnswer(ctx, ch.ID, "wrong-1")
	assert.ErrorIs(t, err, models.ErrConflict)

	require.NotNil(t, competing)
	assert.Equal(t, 2, competing.Step)
	stored := f.store.challenge(ch.ID)
	steps := stored.Steps.Data()
	assert.Equal(t, 1, steps.AnsweredCount())
	assert.True(t, steps.Questions[0].Valid())
	assert.Equal(t, models.ScoreNotCompleted, stored.Score)
	assert.Equal(t, ch.Version+1, stored.Version)
}

func TestAnsweredNeverExceedsTotal(t *testing.T) {
	f := newFixture(t, validQuestion(1, "", 1, "a"), validQuestion(2, "", 2, "b"))
	ch := f.build(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.engine.SubmitAnswer(ctx, ch.ID, "b")
		require.NoError(t, err)

		stored := f.store.challenge(ch.ID)
		steps := stored.Steps.Data()
		assert.LessOrEqual(t, steps.AnsweredCount(), steps.TotalSteps)
		assert.Equal(t, steps.AnsweredCount() == steps.TotalSteps, stored.Completed())
	}
}
