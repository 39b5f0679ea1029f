package dataset

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"
)

var (
	// ErrDuplicateDemo reports two source episodes mapping to the same
	// demo index.
	ErrDuplicateDemo = errors.New("dataset: duplicate demo index")

	// ErrEmptyDataset reports a split request over zero demos.
	ErrEmptyDataset = errors.New("dataset: no demos to split")
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is an open output container.
type Store struct {
	db   *sql.DB
	path string
}

// Create opens a fresh container at path, truncating any previous file,
// and applies the schema migrations. A conversion id is written to meta so
// every container is traceable to one run.
func Create(path string) (*Store, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("dataset: remove stale container: %w", err)
	}
	s, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := s.migrateUp(); err != nil {
		s.db.Close()
		return nil, err
	}
	if err := s.setMeta("conversion_id", uuid.New().String()); err != nil {
		s.db.Close()
		return nil, err
	}
	if err := s.setMeta("created_at", fmt.Sprint(time.Now().Unix())); err != nil {
		s.db.Close()
		return nil, err
	}
	return s, nil
}

// Open opens an existing container read/write without migrating.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset: open container: %w", err)
	}
	return open(path)
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open container: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the container's file path.
func (s *Store) Path() string { return s.path }

// Destroy closes the store and removes the container file. Used by the
// pipeline's failure path so an aborted run leaves no partial output.
func (s *Store) Destroy() error {
	s.db.Close()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("dataset: remove container: %w", err)
	}
	return nil
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("dataset: load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("dataset: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("dataset: build migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("dataset: migrate up: %w", err)
	}
	return nil
}

// SetEnvArgs stores the opaque environment-arguments metadata consumed by
// the training framework.
func (s *Store) SetEnvArgs(envArgs string) error {
	return s.setMeta("env_args", envArgs)
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("dataset: write meta %s: %w", key, err)
	}
	return nil
}

// Meta reads one metadata value.
func (s *Store) Meta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("dataset: read meta %s: %w", key, err)
	}
	return value, nil
}

// DemoIndices returns all demo indices in ascending order.
func (s *Store) DemoIndices() ([]int, error) {
	rows, err := s.db.Query(`SELECT demo_index FROM demos ORDER BY demo_index`)
	if err != nil {
		return nil, fmt.Errorf("dataset: list demos: %w", err)
	}
	defer rows.Close()

	var indices []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, rows.Err()
}

// DemoData is a decoded demo record.
type DemoData struct {
	Index          int
	Label          string
	NumSamples     int
	JointPositions *mat.Dense
	EEPose         *mat.Dense
	Actions        *mat.Dense
	ActionsJoints  *mat.Dense
	ActionsXYZ     *mat.Dense
}

// ReadDemo decodes one demo's numeric arrays.
func (s *Store) ReadDemo(index int) (*DemoData, error) {
	row := s.db.QueryRow(`
		SELECT label, num_samples, joint_positions, ee_pose, actions, actions_joints, actions_xyz
		FROM demos WHERE demo_index = ?`, index)

	d := &DemoData{Index: index}
	var jp, ee, act, aj, axyz []byte
	if err := row.Scan(&d.Label, &d.NumSamples, &jp, &ee, &act, &aj, &axyz); err != nil {
		return nil, fmt.Errorf("dataset: read demo %d: %w", index, err)
	}
	for _, blob := range []struct {
		data []byte
		dst  **mat.Dense
	}{
		{jp, &d.JointPositions},
		{ee, &d.EEPose},
		{act, &d.Actions},
		{aj, &d.ActionsJoints},
		{axyz, &d.ActionsXYZ},
	} {
		m, err := decodeMatrix(blob.data)
		if err != nil {
			return nil, fmt.Errorf("dataset: demo %d: %w", index, err)
		}
		*blob.dst = m
	}
	return d, nil
}

// ReadFrame fetches one camera frame's raw pixels. This touches a single
// row; the rest of the stream stays on disk.
func (s *Store) ReadFrame(index int, camera string, frame int) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM frames
		WHERE demo_index = ? AND camera = ? AND frame_index = ?`,
		index, camera, frame).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("dataset: read demo %d %s frame %d: %w", index, camera, frame, err)
	}
	return data, nil
}

// Split reads a persisted filter key's demo indices in ascending order.
func (s *Store) Split(name string) ([]int, error) {
	rows, err := s.db.Query(`SELECT demo_index FROM splits WHERE name = ? ORDER BY demo_index`, name)
	if err != nil {
		return nil, fmt.Errorf("dataset: read split %s: %w", name, err)
	}
	defer rows.Close()

	var indices []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, rows.Err()
}

func encodeMatrix(m *mat.Dense) ([]byte, error) {
	var buf bytes.Buffer
	if err := npyio.Write(&buf, m); err != nil {
		return nil, fmt.Errorf("encode array: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeMatrix(data []byte) (*mat.Dense, error) {
	var m mat.Dense
	if err := npyio.Read(bytes.NewReader(data), &m); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	return &m, nil
}
