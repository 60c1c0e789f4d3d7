package services

import (
	"testing"
)

func TestContentOverview(t *testing.T) {
	f := newFixture(t, 12, "")
	overviews := NewOverviewService(f.store, f.brackets(), f.groups(), f.common.Logger)

	if _, err := f.groups().DrawGroups(f.ctx, f.content.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.groups().RankGroup(f.ctx, f.content.ID, nil); err != nil {
		t.Fatal(err)
	}

	overview, err := overviews.GetContentOverview(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	if overview.Content.ID != f.content.ID || len(overview.Groups) != 4 || len(overview.Matches) != 12 {
		t.Fatalf("unexpected overview: %d groups, %d matches", len(overview.Groups), len(overview.Matches))
	}
	if overview.Bracket != nil {
		t.Fatal("no bracket was built")
	}

	if _, err := f.brackets().BuildKnockoutFromGroups(f.ctx, f.content.ID); err != nil {
		t.Fatal(err)
	}
	overview, err = overviews.GetContentOverview(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	if overview.Bracket == nil || overview.Bracket.Size != 8 {
		t.Fatalf("bracket missing from overview: %+v", overview.Bracket)
	}

	_, err = overviews.GetContentOverview(f.ctx, f.content.ID+1)
	expectErr(t, err, ErrContentNotFound)
}
