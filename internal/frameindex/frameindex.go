// Package frameindex persists a record of every frame FRAMER emits, keyed by
// picture number and by presentation timestamp, so a consumer can seek to a
// random-access point or inspect frame metadata without re-scanning the
// elementary stream. Backed by sqlite via database/sql and
// modernc.org/sqlite.
package frameindex

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// FrameRecord is one emitted frame's index entry.
type FrameRecord struct {
	PictureNumber int64
	CodingType    string // "I", "P", or "B"
	HasPTSOrig    bool
	PTSOrig       uint64
	HasDTSOrig    bool
	DTSOrig       uint64
	RandomAccess  bool
	HasDuration   bool
	Duration      uint64
	ByteOffset    int64
	ByteLength    int64
}

// Store is a sqlite-backed frame index for one elementary stream session.
type Store struct {
	db        *sql.DB
	sessionID string
}

// Open opens (creating if necessary) the sqlite database at path and
// prepares its schema. Each Store carries a fresh session UUID so records
// from successive runs against the same path never collide.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("frameindex: open %s: %w", path, err)
	}
	s := &Store{db: db, sessionID: uuid.NewString()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS frames (
	session_id     TEXT NOT NULL,
	picture_number INTEGER NOT NULL,
	coding_type    TEXT NOT NULL,
	pts_orig       INTEGER,
	dts_orig       INTEGER,
	random_access  INTEGER NOT NULL DEFAULT 0,
	duration       INTEGER,
	byte_offset    INTEGER NOT NULL,
	byte_length    INTEGER NOT NULL,
	PRIMARY KEY (session_id, picture_number)
);
CREATE INDEX IF NOT EXISTS frames_pts_orig_idx ON frames (session_id, pts_orig);
`)
	if err != nil {
		return fmt.Errorf("frameindex: migrate: %w", err)
	}
	return nil
}

// SessionID identifies the current run; stable for the lifetime of the Store.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullableInt(has bool, v uint64) interface{} {
	if !has {
		return nil
	}
	return int64(v)
}

// Record inserts or replaces one frame's index entry.
func (s *Store) Record(f FrameRecord) error {
	_, err := s.db.Exec(`
INSERT INTO frames (session_id, picture_number, coding_type, pts_orig, dts_orig, random_access, duration, byte_offset, byte_length)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, picture_number) DO UPDATE SET
	coding_type=excluded.coding_type, pts_orig=excluded.pts_orig, dts_orig=excluded.dts_orig,
	random_access=excluded.random_access, duration=excluded.duration,
	byte_offset=excluded.byte_offset, byte_length=excluded.byte_length
`,
		s.sessionID, f.PictureNumber, f.CodingType,
		nullableInt(f.HasPTSOrig, f.PTSOrig), nullableInt(f.HasDTSOrig, f.DTSOrig),
		boolToInt(f.RandomAccess), nullableInt(f.HasDuration, f.Duration),
		f.ByteOffset, f.ByteLength,
	)
	if err != nil {
		return fmt.Errorf("frameindex: record picture %d: %w", f.PictureNumber, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Lookup fetches one frame's record by exact picture number.
func (s *Store) Lookup(pictureNumber int64) (FrameRecord, bool, error) {
	row := s.db.QueryRow(`
SELECT picture_number, coding_type, pts_orig, dts_orig, random_access, duration, byte_offset, byte_length
FROM frames WHERE session_id = ? AND picture_number = ?`, s.sessionID, pictureNumber)
	return scanFrame(row)
}

// Nearest returns the random-access frame with the greatest pts_orig not
// exceeding pts, for seeking to the closest preceding key frame.
func (s *Store) Nearest(pts uint64) (FrameRecord, bool, error) {
	row := s.db.QueryRow(`
SELECT picture_number, coding_type, pts_orig, dts_orig, random_access, duration, byte_offset, byte_length
FROM frames
WHERE session_id = ? AND random_access = 1 AND pts_orig IS NOT NULL AND pts_orig <= ?
ORDER BY pts_orig DESC LIMIT 1`, s.sessionID, int64(pts))
	return scanFrame(row)
}

func scanFrame(row *sql.Row) (FrameRecord, bool, error) {
	var f FrameRecord
	var pts, dts, dur sql.NullInt64
	var randomAccess int
	err := row.Scan(&f.PictureNumber, &f.CodingType, &pts, &dts, &randomAccess, &dur, &f.ByteOffset, &f.ByteLength)
	if err == sql.ErrNoRows {
		return FrameRecord{}, false, nil
	}
	if err != nil {
		return FrameRecord{}, false, fmt.Errorf("frameindex: scan: %w", err)
	}
	f.HasPTSOrig = pts.Valid
	f.PTSOrig = uint64(pts.Int64)
	f.HasDTSOrig = dts.Valid
	f.DTSOrig = uint64(dts.Int64)
	f.RandomAccess = randomAccess != 0
	f.HasDuration = dur.Valid
	f.Duration = uint64(dur.Int64)
	return f, true, nil
}

// Count returns the number of indexed frames for the current session.
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM frames WHERE session_id = ?`, s.sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("frameindex: count: %w", err)
	}
	return n, nil
}
