package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx"
	medipix "github.com/next-exp/medipix_go/pkg"
	_ "modernc.org/sqlite"
)

var ErrUnknownRun = errors.New("unknown run")

// Store keeps scan results and the i_krum calibration in a SQL database,
// MySQL for shared installations or a local SQLite file.
type Store struct {
	db *sqlx.DB
}

type Run struct {
	RunID   string `db:"RunID"`
	Kind    string `db:"Kind"`
	Mode    string `db:"Mode"`
	Timed   bool   `db:"Timed"`
	Config  string `db:"Config"`
	Created int64  `db:"Created"`
}

// ScanPoint is one step of a scan: the scanned parameter value and the
// photons and counts of the frame taken there.
type ScanPoint struct {
	RunID       string  `db:"RunID"`
	Step        int     `db:"Step"`
	Parameter   string  `db:"Parameter"`
	Value       float64 `db:"Value"`
	RealPhotons int64   `db:"RealPhotons"`
	TotalCounts int64   `db:"TotalCounts"`
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS Runs (
		RunID VARCHAR(36) NOT NULL PRIMARY KEY,
		Kind VARCHAR(32) NOT NULL,
		Mode VARCHAR(8) NOT NULL,
		Timed BOOLEAN NOT NULL,
		Config TEXT NOT NULL,
		Created BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ScanPoints (
		RunID VARCHAR(36) NOT NULL,
		Step INTEGER NOT NULL,
		Parameter VARCHAR(32) NOT NULL,
		Value DOUBLE NOT NULL,
		RealPhotons BIGINT NOT NULL,
		TotalCounts BIGINT NOT NULL,
		PRIMARY KEY (RunID, Step)
	)`,
	`CREATE TABLE IF NOT EXISTS IKrumCalibration (
		IKrum INTEGER NOT NULL PRIMARY KEY,
		NaturalFrequency DOUBLE NOT NULL,
		Damping DOUBLE NOT NULL,
		DampedFrequency DOUBLE NOT NULL
	)`,
}

// MySQLDSN builds the data source name of a MySQL server on port 3306.
func MySQLDSN(user, pass, host, dbname string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = host + ":3306"
	cfg.DBName = dbname
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Connect opens the database and creates the tables if needed. driver is
// "mysql" or "sqlite".
func Connect(driver, dsn string) (*Store, error) {
	switch driver {
	case "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ConnectFromConfig connects with the database settings of a configuration.
// A MySQL connection without dsn is built from host, user and dbname.
func ConnectFromConfig(c medipix.Configuration) (*Store, error) {
	dsn := c.DSN
	if c.Driver == "mysql" && dsn == "" {
		dsn = MySQLDSN(c.User, c.Passwd, c.Host, c.DBName)
	}
	return Connect(c.Driver, dsn)
}

func (s *Store) migrate() error {
	for _, query := range schema {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error creating tables: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewRun registers a run of the given kind ("threshold", "flux", ...) with
// a fresh id. The configuration is stored without the database password.
func (s *Store) NewRun(kind string, c medipix.Configuration) (Run, error) {
	// Database credentials are not part of the run.
	c.Passwd = ""
	config, err := json.Marshal(c)
	if err != nil {
		return Run{}, fmt.Errorf("error encoding configuration: %w", err)
	}
	run := Run{
		RunID:   uuid.NewString(),
		Kind:    kind,
		Mode:    c.Mode.String(),
		Timed:   c.Timed,
		Config:  string(config),
		Created: time.Now().Unix(),
	}
	query := `INSERT INTO Runs (RunID, Kind, Mode, Timed, Config, Created)
		VALUES (:RunID, :Kind, :Mode, :Timed, :Config, :Created)`
	if _, err := s.db.NamedExec(query, run); err != nil {
		return Run{}, fmt.Errorf("error inserting run: %w", err)
	}
	if medipix.GetConfiguration().Verbosity > 0 {
		medipix.GetLogger().Info(fmt.Sprintf("Registered %s run %s", kind, run.RunID), "database")
	}
	return run, nil
}

func (s *Store) Run(runID string) (Run, error) {
	var runs []Run
	if err := s.db.Select(&runs, "SELECT * FROM Runs WHERE RunID = ?", runID); err != nil {
		return Run{}, fmt.Errorf("error querying run: %w", err)
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return runs[0], nil
}

// Configuration decodes the configuration a run was taken with.
func (r Run) Configuration() (medipix.Configuration, error) {
	var c medipix.Configuration
	err := json.Unmarshal([]byte(r.Config), &c)
	return c, err
}

func (s *Store) Runs() ([]Run, error) {
	runs := []Run{}
	if err := s.db.Select(&runs, "SELECT * FROM Runs ORDER BY Created, RunID"); err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	return runs, nil
}

func (s *Store) AddScanPoints(points []ScanPoint) error {
	if len(points) == 0 {
		return nil
	}
	query := `INSERT INTO ScanPoints (RunID, Step, Parameter, Value, RealPhotons, TotalCounts)
		VALUES (:RunID, :Step, :Parameter, :Value, :RealPhotons, :TotalCounts)`
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	for _, p := range points {
		if _, err := tx.NamedExec(query, p); err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting scan point %d: %w", p.Step, err)
		}
	}
	return tx.Commit()
}

// ScanPoints returns the points of a run ordered by step.
func (s *Store) ScanPoints(runID string) ([]ScanPoint, error) {
	points := []ScanPoint{}
	query := "SELECT * FROM ScanPoints WHERE RunID = ? ORDER BY Step"
	if medipix.GetConfiguration().Verbosity > 2 {
		medipix.GetLogger().Info(fmt.Sprintf("Query: %s", query), "database")
	}
	if err := s.db.Select(&points, query, runID); err != nil {
		return nil, fmt.Errorf("error querying scan points: %w", err)
	}
	return points, nil
}

// SaveCalibration replaces the stored i_krum calibration.
func (s *Store) SaveCalibration(table []medipix.CalibrationPoint) error {
	if err := medipix.ValidateCalibration(table); err != nil {
		return err
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM IKrumCalibration"); err != nil {
		tx.Rollback()
		return fmt.Errorf("error clearing calibration: %w", err)
	}
	query := `INSERT INTO IKrumCalibration (IKrum, NaturalFrequency, Damping, DampedFrequency)
		VALUES (:IKrum, :NaturalFrequency, :Damping, :DampedFrequency)`
	for _, p := range table {
		if _, err := tx.NamedExec(query, p); err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting calibration point %d: %w", p.IKrum, err)
		}
	}
	return tx.Commit()
}

// LoadCalibration reads the i_krum calibration. An empty table gives the
// built-in calibration.
func (s *Store) LoadCalibration() ([]medipix.CalibrationPoint, error) {
	table := []medipix.CalibrationPoint{}
	query := "SELECT IKrum, NaturalFrequency, Damping, DampedFrequency FROM IKrumCalibration ORDER BY IKrum"
	rows, err := s.db.Queryx(query)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		point := medipix.CalibrationPoint{}
		if err := rows.StructScan(&point); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		table = append(table, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(table) == 0 {
		if medipix.GetConfiguration().Verbosity > 0 {
			medipix.GetLogger().Info("No i_krum calibration in database, using defaults", "database")
		}
		return medipix.DefaultCalibration(), nil
	}
	if err := medipix.ValidateCalibration(table); err != nil {
		return nil, fmt.Errorf("invalid calibration in database: %w", err)
	}
	return table, nil
}
