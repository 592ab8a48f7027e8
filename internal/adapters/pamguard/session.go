package pamguard

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"sealhits/internal/application"
	"sealhits/internal/ports"
)

// SessionReader reads track groups from a PAMGuard annotation database
type SessionReader struct {
	logger *zap.Logger
}

// Ensure SessionReader implements ports.SessionReader
var _ ports.SessionReader = (*SessionReader)(nil)

// NewSessionReader creates a new SessionReader
func NewSessionReader(logger *zap.Logger) *SessionReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionReader{logger: logger.Named("pamguard")}
}

type groupRow struct {
	ID          int64          `db:"ID"`
	UID         int64          `db:"UID"`
	UTC         sql.NullString `db:"UTC"`
	EndTime     sql.NullString `db:"EndTime"`
	TrackType   sql.NullString `db:"Track_Type"`
	Mammal      sql.NullString `db:"Marine_Mammal"`
	Fish        sql.NullString `db:"Fish"`
	Bird        sql.NullString `db:"Bird"`
	Interaction sql.NullString `db:"Interaction_with_blades"`
	Comment     sql.NullString `db:"Comment"`
}

type childRow struct {
	UID        int64          `db:"UID"`
	UTC        sql.NullString `db:"UTC"`
	ParentID   int64          `db:"parentID"`
	ParentUID  int64          `db:"parentUID"`
	BinaryFile sql.NullString `db:"BinaryFile"`
}

type parentKey struct {
	id  int64
	uid int64
}

// ReadSession loads every track group and the children that reference a
// binary file
func (r *SessionReader) ReadSession(ctx context.Context, path string) (*ports.SessionData, error) {
	db, err := sqlx.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	defer db.Close()

	gsb := sqlbuilder.SQLite.NewSelectBuilder()
	gsb.Select("ID", "UID", "UTC", "EndTime", "Track_Type", "Marine_Mammal", "Fish", "Bird",
		"Interaction_with_blades", "Comment").From("Track_Groups")
	gsb.OrderBy("ID")
	query, args := gsb.Build()

	var groups []groupRow
	if err := db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("cannot read Track_Groups: %v", err)}
	}

	csb := sqlbuilder.SQLite.NewSelectBuilder()
	csb.Select("UID", "UTC", "parentID", "parentUID", "BinaryFile").From("Track_Groups_Children")
	csb.Where(csb.IsNotNull("BinaryFile"))
	csb.OrderBy("UID")
	query, args = csb.Build()

	var children []childRow
	if err := db.SelectContext(ctx, &children, query, args...); err != nil {
		return nil, &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("cannot read Track_Groups_Children: %v", err)}
	}

	data := &ports.SessionData{Groups: make([]ports.SessionGroup, 0, len(groups))}
	index := make(map[parentKey]int, len(groups))
	for _, g := range groups {
		start, err := parseTime(g.UTC.String)
		if err != nil {
			return nil, &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("group %d: bad UTC: %v", g.UID, err)}
		}
		end, err := parseTime(g.EndTime.String)
		if err != nil {
			return nil, &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("group %d: bad EndTime: %v", g.UID, err)}
		}
		index[parentKey{g.ID, g.UID}] = len(data.Groups)
		data.Groups = append(data.Groups, ports.SessionGroup{
			ID:        g.ID,
			UID:       g.UID,
			Start:     start,
			End:       end,
			TrackType: strings.TrimSpace(g.TrackType.String),
			Comment:   g.Comment.String,
			Mammal:    parseTally(g.Mammal),
			Fish:      parseTally(g.Fish),
			Bird:      parseTally(g.Bird),
			Interact:  parseInteraction(g.Interaction),
		})
	}

	for _, c := range children {
		i, ok := index[parentKey{c.ParentID, c.ParentUID}]
		if !ok {
			r.logger.Warn("child track without parent group",
				zap.Int64("uid", c.UID), zap.Int64("parent_id", c.ParentID), zap.Int64("parent_uid", c.ParentUID))
			continue
		}
		start, _ := parseTime(c.UTC.String)
		data.Groups[i].Children = append(data.Groups[i].Children, ports.SessionChild{
			UID:        c.UID,
			Start:      start,
			BinaryFile: c.BinaryFile.String,
		})
	}

	r.logger.Debug("session read", zap.String("path", path), zap.Int("groups", len(data.Groups)), zap.Int("children", len(children)))
	return data, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTime reads PAMGuard timestamps, which are UTC without a zone.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// parseTally maps the free-form tally columns onto a count; anything
// non-numeric becomes -1.
func parseTally(v sql.NullString) int {
	if !v.Valid {
		return -1
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
	if err != nil {
		return -1
	}
	return int(f)
}

// parseInteraction is true only for a numeric value containing a 1 and no 0.
func parseInteraction(v sql.NullString) bool {
	if !v.Valid {
		return false
	}
	s := strings.TrimSpace(v.String)
	if strings.Contains(s, "0") || !strings.Contains(s, "1") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
