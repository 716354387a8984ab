package qna

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

func contextFixture() (*ContextBuilder, *fakeSportsData) {
	_, data := routerFixture()
	store := &fakeTeamStore{teams: []model.Team{
		{ID: "sf", Sport: "nfl", Abbreviation: "SF", FullName: "San Francisco 49ers"},
		{ID: "kc", Sport: "nfl", Abbreviation: "KC", FullName: "Kansas City Chiefs"},
	}}
	return NewContextBuilder(store, data, data, data, data, zap.NewNop()), data
}

func TestBuildForGameRendersBriefing(t *testing.T) {
	b, _ := contextFixture()

	got := b.BuildForGame(context.Background(), "g1")
	require.NotEmpty(t, got)
	assert.Contains(t, got, "Matchup: Kansas City Chiefs at San Francisco 49ers")
	assert.Contains(t, got, "Kickoff: Sunday, Sep 13 2026")
	assert.Contains(t, got, "draftkings: spread -2.5")
	// No roster or injury rows in the fixture; those sections degrade.
	assert.Contains(t, got, "San Francisco 49ers roster:\nN/A")
	assert.Contains(t, got, "Injury report:\nN/A")
}

func TestBuildForGameUnknownGameIsEmpty(t *testing.T) {
	b, _ := contextFixture()

	assert.Empty(t, b.BuildForGame(context.Background(), "nope"))
	assert.Empty(t, b.BuildForGame(context.Background(), "  "))
}

type erroringGameStore struct{ *fakeSportsData }

func (erroringGameStore) GetByID(context.Context, string) (*model.Game, error) {
	return nil, errors.New("store down")
}

func TestBuildForGameNilLoggerDegrades(t *testing.T) {
	_, data := routerFixture()
	store := &fakeTeamStore{}
	b := NewContextBuilder(store, data, erroringGameStore{data}, data, data, nil)

	assert.Empty(t, b.BuildForGame(context.Background(), "g1"))
}
