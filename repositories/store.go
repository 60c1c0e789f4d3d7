package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-progression/models"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	ErrContentNotFound        = errors.New("content not found")
	ErrEntryNotFound          = errors.New("entry not found")
	ErrScheduleNotFound       = errors.New("schedule not found")
	ErrMatchNotFound          = errors.New("match not found")
	ErrBracketNodeNotFound    = errors.New("bracket node not found")
	ErrStandingNotFound       = errors.New("group standing not found")
	ErrOfficialNotFound       = errors.New("official not found")
	ErrNodeMatchAssigned      = errors.New("bracket node already has a match")
	ErrDuplicateScheduleMatch = errors.New("schedule slot already has a match")
	ErrDuplicateSetNumber     = errors.New("set number already recorded for match")
)

type ContentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	GetByID(ctx context.Context, id int) (*models.Content, error)
}

type EntryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	GetByID(ctx context.Context, id int) (*models.Entry, error)
	ListByContent(ctx context.Context, contentID int) ([]*models.Entry, error)
}

type GroupRepository interface {
	ReplaceAssignments(ctx context.Context, contentID int, assignments []models.GroupAssignment) error
	ListAssignments(ctx context.Context, contentID int) ([]models.GroupAssignment, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	GetByID(ctx context.Context, id int) (*models.Schedule, error)
	GetByBracketNode(ctx context.Context, nodeID int) (*models.Schedule, error)
	DeleteByContentStage(ctx context.Context, contentID int, stage models.Stage) error
}

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	Update(ctx context.Context, match *models.Match) error
	// ListByContent returns the matches of a content, optionally only those of one stage.
	ListByContent(ctx context.Context, contentID int, stage *models.Stage) ([]*models.Match, error)
	ListByGroup(ctx context.Context, contentID int, groupName string) ([]*models.Match, error)
	ListInProgressByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type MatchSetRepository interface {
	Create(ctx context.Context, set *models.MatchSet) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchSet, error)
}

type StandingRepository interface {
	// ListByGroup returns rows in creation order.
	ListByGroup(ctx context.Context, contentID int, groupName string) ([]*models.GroupStanding, error)
	ListByContent(ctx context.Context, contentID int) ([]*models.GroupStanding, error)
	Upsert(ctx context.Context, standing *models.GroupStanding) error
	DeleteByContent(ctx context.Context, contentID int) error
}

type BracketRepository interface {
	Create(ctx context.Context, node *models.BracketNode) error
	UpdateLinks(ctx context.Context, node *models.BracketNode) error
	Update(ctx context.Context, node *models.BracketNode) error
	GetByID(ctx context.Context, id int) (*models.BracketNode, error)
	GetByMatch(ctx context.Context, matchID int) (*models.BracketNode, error)
	ListByContent(ctx context.Context, contentID int) ([]*models.BracketNode, error)
	// AssignMatch links a match to a node that has none yet.
	AssignMatch(ctx context.Context, nodeID, matchID int) error
	DeleteByContent(ctx context.Context, contentID int) error
}

type OfficialRepository interface {
	Create(ctx context.Context, official *models.Official) error
	ListAvailable(ctx context.Context, tournamentID int) ([]*models.Official, error)
}

type RatingRepository interface {
	// GetRatings returns the stored ratings of the given players; unknown players are absent.
	GetRatings(ctx context.Context, playerIDs []int) (map[int]int, error)
	Upsert(ctx context.Context, record *models.RatingRecord) error
	AddHistory(ctx context.Context, entry *models.RatingHistoryEntry) error
	ListHistoryByMatch(ctx context.Context, matchID int) ([]*models.RatingHistoryEntry, error)
}

// Repositories bundles every repository bound to one executor.
type Repositories struct {
	Contents  ContentRepository
	Entries   EntryRepository
	Groups    GroupRepository
	Schedules ScheduleRepository
	Matches   MatchRepository
	Sets      MatchSetRepository
	Standings StandingRepository
	Brackets  BracketRepository
	Officials OfficialRepository
	Ratings   RatingRepository
}

// Store hands out repositories. Work passed to RunInTx is applied completely
// or not at all.
type Store interface {
	Repositories() Repositories
	RunInTx(ctx context.Context, fn func(r Repositories) error) error
}

type postgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func newPostgresRepositories(exec SQLExecutor) Repositories {
	return Repositories{
		Contents:  &postgresContentRepository{exec: exec},
		Entries:   &postgresEntryRepository{exec: exec},
		Groups:    &postgresGroupRepository{exec: exec},
		Schedules: &postgresScheduleRepository{exec: exec},
		Matches:   &postgresMatchRepository{exec: exec},
		Sets:      &postgresMatchSetRepository{exec: exec},
		Standings: &postgresStandingRepository{exec: exec},
		Brackets:  &postgresBracketRepository{exec: exec},
		Officials: &postgresOfficialRepository{exec: exec},
		Ratings:   &postgresRatingRepository{exec: exec},
	}
}

func (s *postgresStore) Repositories() Repositories {
	return newPostgresRepositories(s.db)
}

func (s *postgresStore) RunInTx(ctx context.Context, fn func(r Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(newPostgresRepositories(tx))
}
