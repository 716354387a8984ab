package teams

import (
	"context"
	"strings"
	"testing"

	"github.com/samson623/sports-buddy/internal/domain/model"
)

var fixtureTeams = []model.Team{
	{ID: "t-sf", Abbreviation: "SF", FullName: "San Francisco 49ers"},
	{ID: "t-kc", Abbreviation: "KC", FullName: "Kansas City Chiefs"},
	{ID: "t-dal", Abbreviation: "DAL", FullName: "Dallas Cowboys"},
}

type fakeTeamStore struct{}

func (fakeTeamStore) FindByName(_ context.Context, name string) (*model.Team, error) {
	for _, t := range fixtureTeams {
		if strings.Contains(strings.ToLower(t.FullName), strings.ToLower(name)) {
			team := t
			return &team, nil
		}
	}
	return nil, nil
}

func (fakeTeamStore) FindByAbbreviation(_ context.Context, abbrev string) (*model.Team, error) {
	for _, t := range fixtureTeams {
		if strings.EqualFold(t.Abbreviation, abbrev) {
			team := t
			return &team, nil
		}
	}
	return nil, nil
}

func TestResolveAlias(t *testing.T) {
	r := NewResolver(fakeTeamStore{})

	team, err := r.Resolve(context.Background(), "Niners")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if team == nil || team.ID != "t-sf" {
		t.Fatalf("expected 49ers, got %+v", team)
	}
}

func TestResolveSubstringCaseInsensitive(t *testing.T) {
	r := NewResolver(fakeTeamStore{})

	team, err := r.Resolve(context.Background(), "cowboys")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if team == nil || team.ID != "t-dal" {
		t.Fatalf("expected Cowboys, got %+v", team)
	}
}

func TestResolveFallsBackToAbbreviation(t *testing.T) {
	r := NewResolver(fakeTeamStore{})

	team, err := r.Resolve(context.Background(), "DAL")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if team == nil || team.ID != "t-dal" {
		t.Fatalf("expected Cowboys via abbreviation, got %+v", team)
	}
}

func TestResolveUnknownReturnsNil(t *testing.T) {
	r := NewResolver(fakeTeamStore{})

	team, err := r.Resolve(context.Background(), "cricket club")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if team != nil {
		t.Fatalf("expected no match, got %+v", team)
	}
}
