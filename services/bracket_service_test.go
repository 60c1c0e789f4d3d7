package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-progression/brackets"
	"github.com/Dosada05/tournament-progression/models"
)

type recordingArchiver struct {
	mu        sync.Mutex
	snapshots map[int][]byte
}

func (a *recordingArchiver) ArchiveBracket(_ context.Context, contentID int, snapshot []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.snapshots == nil {
		a.snapshots = make(map[int][]byte)
	}
	a.snapshots[contentID] = snapshot
	return "memory://brackets", nil
}

func checkReadyNodesHaveMatches(t *testing.T, f *fixture, view *BracketView) {
	t.Helper()
	for _, n := range view.Nodes {
		if n.Status != models.NodeReady {
			continue
		}
		if n.MatchID == nil {
			t.Fatalf("ready node %d has no match", n.ID)
		}
		m, err := f.matches().GetMatch(f.ctx, *n.MatchID)
		if err != nil {
			t.Fatal(err)
		}
		if m.Entry1ID != *n.EntryAID || m.Entry2ID != *n.EntryBID || m.Status != models.StatusScheduled {
			t.Fatalf("node %d and match %+v disagree", n.ID, m)
		}
	}
}

func TestBuildKnockout(t *testing.T) {
	f := newFixture(t, 12, "")
	archiver := &recordingArchiver{}
	svc := NewBracketService(f.store, archiver, f.common)

	view, err := svc.BuildKnockout(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Size != 16 || view.Rounds != 4 || len(view.Nodes) != 15 {
		t.Fatalf("unexpected bracket %d/%d/%d", view.Size, view.Rounds, len(view.Nodes))
	}
	byes := 0
	for _, n := range view.Nodes {
		if n.IsBye {
			byes++
			if n.Status != models.NodeCompleted || n.WinnerEntryID == nil {
				t.Fatalf("bye node %d not decided: %+v", n.ID, n)
			}
		}
	}
	if byes != 4 {
		t.Fatalf("expected 4 byes, got %d", byes)
	}
	checkReadyNodesHaveMatches(t, f, view)

	var archived BracketView
	if err := json.Unmarshal(archiver.snapshots[f.content.ID], &archived); err != nil {
		t.Fatal(err)
	}
	if archived.Size != 16 {
		t.Fatalf("archived snapshot has size %d", archived.Size)
	}
	if f.notifier.count(brackets.EventBracketUpdated) != 1 {
		t.Fatal("bracket event not sent")
	}

	got, err := svc.GetBracket(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Nodes) != 15 {
		t.Fatalf("stored bracket has %d nodes", len(got.Nodes))
	}
}

func TestBuildKnockoutTwiceReseedsInPlace(t *testing.T) {
	f := newFixture(t, 16, "")
	svc := f.brackets()

	first, err := svc.BuildKnockout(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	oldMatch := *first.Nodes[0].MatchID
	ids := make(map[int]bool)
	for _, n := range first.Nodes {
		ids[n.ID] = true
	}

	second, err := svc.BuildKnockout(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range second.Nodes {
		if !ids[n.ID] {
			t.Fatalf("node %d is new, expected the tree to be reseeded in place", n.ID)
		}
	}
	if _, err := f.matches().GetMatch(f.ctx, oldMatch); err == nil {
		t.Fatal("match of the previous build still exists")
	}
	if got := len(f.scheduled(models.StageKnockout)); got != 8 {
		t.Fatalf("expected 8 first round matches, got %d", got)
	}
	checkReadyNodesHaveMatches(t, f, second)
}

func TestBuildKnockoutRefusedOnceStarted(t *testing.T) {
	f := newFixture(t, 16, "")
	svc := f.brackets()

	if _, err := svc.BuildKnockout(f.ctx, f.content.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.matches().StartMatch(f.ctx, f.scheduled(models.StageKnockout)[0].ID); err != nil {
		t.Fatal(err)
	}
	_, err := svc.BuildKnockout(f.ctx, f.content.ID)
	expectErr(t, err, ErrKnockoutStarted, ErrState)
}

func TestBuildKnockoutErrors(t *testing.T) {
	f := newFixture(t, 11, "")
	svc := f.brackets()

	_, err := svc.BuildKnockout(f.ctx, f.content.ID)
	expectErr(t, err, ErrBracketTooSmall, ErrCapacity)

	_, err = svc.BuildKnockoutFromGroups(f.ctx, f.content.ID)
	expectErr(t, err, ErrNoGroups, ErrState)

	_, err = svc.GetBracket(f.ctx, f.content.ID)
	expectErr(t, err, ErrBracketNotFound, ErrNotFound)
}

func TestKnockoutPlaysToFinal(t *testing.T) {
	f := newFixture(t, 12, "")
	svc := f.brackets()

	if _, err := svc.BuildKnockout(f.ctx, f.content.ID); err != nil {
		t.Fatal(err)
	}
	played := 0
	for {
		pending := f.scheduled(models.StageKnockout)
		if len(pending) == 0 {
			break
		}
		for _, m := range pending {
			f.play(m.ID, [2]int{11, 5}, [2]int{11, 7})
			played++
		}
	}
	// one match eliminates one entry
	if played != 11 {
		t.Fatalf("expected 11 matches, played %d", played)
	}

	view, err := svc.GetBracket(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	final := view.Nodes[len(view.Nodes)-1]
	if final.Round != 4 || final.Status != models.NodeCompleted || final.WinnerEntryID == nil {
		t.Fatalf("final not decided: %+v", final)
	}
	tree, err := brackets.NewTree(f.content.ID, view.Nodes)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestConcurrentFinalizeCreatesOneNextMatch(t *testing.T) {
	f := newFixture(t, 16, "")
	view, err := f.brackets().BuildKnockout(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}

	var next *models.BracketNode
	for _, n := range view.Nodes {
		if n.Round == 2 {
			next = n
			break
		}
	}
	nodes := make(map[int]*models.BracketNode)
	for _, n := range view.Nodes {
		nodes[n.ID] = n
	}
	feeders := []*models.BracketNode{nodes[*next.PrevNodeAID], nodes[*next.PrevNodeBID]}

	svc := f.matches()
	for _, n := range feeders {
		if _, err := svc.StartMatch(f.ctx, *n.MatchID); err != nil {
			t.Fatal(err)
		}
		for _, s := range [][2]int{{11, 4}, {11, 6}} {
			if _, err := svc.RecordSet(f.ctx, *n.MatchID, s[0], s[1]); err != nil {
				t.Fatal(err)
			}
		}
	}

	var wg sync.WaitGroup
	results := make([]*FinalizeResult, len(feeders))
	errs := make([]error, len(feeders))
	for i, n := range feeders {
		wg.Add(1)
		go func(i, matchID int) {
			defer wg.Done()
			results[i], errs[i] = svc.FinalizeMatch(f.ctx, matchID)
		}(i, *n.MatchID)
	}
	wg.Wait()

	created := 0
	for i := range feeders {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if results[i].Advance.NextMatch != nil {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one next match, got %d", created)
	}

	stored, err := f.store.Repositories().Brackets.GetByID(f.ctx, next.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.NodeReady || stored.MatchID == nil {
		t.Fatalf("next node not ready: %+v", stored)
	}
	count := 0
	for _, m := range f.scheduled(models.StageKnockout) {
		if m.HasEntry(*stored.EntryAID) && m.HasEntry(*stored.EntryBID) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one match for the next node, found %d", count)
	}
}

func TestAdvanceWinnerManually(t *testing.T) {
	f := newFixture(t, 16, "")
	svc := f.brackets()
	view, err := svc.BuildKnockout(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	walkover, running := view.Nodes[0], view.Nodes[1]

	res, err := svc.AdvanceWinner(f.ctx, walkover.ID, *walkover.EntryAID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Advancement.Changed || res.Advancement.Node.Status != models.NodeCompleted {
		t.Fatalf("node not decided: %+v", res.Advancement)
	}
	m, err := f.matches().GetMatch(f.ctx, *walkover.MatchID)
	if err != nil {
		t.Fatal(err)
	}
	if m.Status != models.MatchStatusCancelled {
		t.Fatalf("walkover match is %s", m.Status)
	}

	again, err := svc.AdvanceWinner(f.ctx, walkover.ID, *walkover.EntryAID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Advancement.Changed {
		t.Fatal("repeating the winner changed the node")
	}
	_, err = svc.AdvanceWinner(f.ctx, walkover.ID, *walkover.EntryBID)
	expectErr(t, err, ErrNodeAlreadyDecided, ErrState)
	_, err = svc.AdvanceWinner(f.ctx, running.ID, *walkover.EntryAID)
	expectErr(t, err, ErrInvalidWinner, ErrValidation)
	_, err = svc.AdvanceWinner(f.ctx, 9999, 1)
	expectErr(t, err, ErrNodeNotFound, ErrNotFound)

	if _, err := f.matches().StartMatch(f.ctx, *running.MatchID); err != nil {
		t.Fatal(err)
	}
	node, err := f.store.Repositories().Brackets.GetByID(f.ctx, running.ID)
	if err != nil {
		t.Fatal(err)
	}
	if node.Status != models.NodeInProgress {
		t.Fatalf("node of a running match is %s", node.Status)
	}
	_, err = svc.AdvanceWinner(f.ctx, running.ID, *running.EntryAID)
	expectErr(t, err, ErrNodeMatchActive, ErrState)

	if _, err := f.matches().CancelMatch(f.ctx, *running.MatchID); err != nil {
		t.Fatal(err)
	}
	res, err = svc.AdvanceWinner(f.ctx, running.ID, *running.EntryBID)
	if err != nil {
		t.Fatal(err)
	}
	if res.NextMatch == nil {
		t.Fatal("both walkovers decided, expected the next match to be scheduled")
	}
}

func TestAdvanceWinnerRefusesHalfFilledNode(t *testing.T) {
	f := newFixture(t, 16, "")
	svc := f.brackets()
	view, err := svc.BuildKnockout(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	first, second := view.Nodes[0], view.Nodes[1]

	res, err := svc.AdvanceWinner(f.ctx, first.ID, *first.EntryAID)
	if err != nil {
		t.Fatal(err)
	}
	next := res.Advancement.Next
	_, err = svc.AdvanceWinner(f.ctx, next.ID, *first.EntryAID)
	expectErr(t, err, ErrNodeNotReady, ErrState)

	res, err = svc.AdvanceWinner(f.ctx, second.ID, *second.EntryBID)
	if err != nil {
		t.Fatal(err)
	}
	if res.NextMatch == nil {
		t.Fatal("expected a match once both entries are known")
	}
	stored, err := f.store.Repositories().Brackets.GetByID(f.ctx, next.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.WinnerEntryID != nil || stored.Status != models.NodeReady {
		t.Fatalf("next node should be undecided and ready: %+v", stored)
	}

	// The scheduled match can be played out either way.
	fin := f.play(res.NextMatch.ID, [2]int{3, 11}, [2]int{3, 11})
	if *fin.Match.WinnerEntryID != *second.EntryBID {
		t.Fatalf("winner %d, want %d", *fin.Match.WinnerEntryID, *second.EntryBID)
	}
}

func TestBuildKnockoutFromGroups(t *testing.T) {
	f := newFixture(t, 12, `{"max_sets":3,"separate_group_qualifiers":true}`)
	if _, err := f.groups().DrawGroups(f.ctx, f.content.ID); err != nil {
		t.Fatal(err)
	}
	for _, m := range f.scheduled(models.StageGroup) {
		f.play(m.ID, [2]int{11, 8}, [2]int{11, 8})
	}

	view, err := f.brackets().BuildKnockoutFromGroups(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Size != 8 {
		t.Fatalf("expected 8 qualifiers, got size %d", view.Size)
	}

	standings, err := f.groups().GetStandings(f.ctx, f.content.ID)
	if err != nil {
		t.Fatal(err)
	}
	qualified := make(map[int]bool)
	for _, g := range standings {
		qualified[g.Standings[0].EntryID] = true
		qualified[g.Standings[1].EntryID] = true
	}
	seated := 0
	for _, n := range view.Nodes {
		if n.Round != 1 {
			continue
		}
		for _, id := range []*int{n.EntryAID, n.EntryBID} {
			if id == nil || !qualified[*id] {
				t.Fatalf("node %d seats a non-qualifier: %+v", n.ID, n)
			}
			seated++
		}
	}
	if seated != 8 {
		t.Fatalf("expected 8 seated qualifiers, got %d", seated)
	}
	checkReadyNodesHaveMatches(t, f, view)
}
