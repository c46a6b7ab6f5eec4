package relational

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/certops/rdscert/pkg/ledger"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	_ "github.com/lib/pq"
)

// relationalDB keeps an append-only history of exported certificates. The
// JSON metadata file stays authoritative; this sink exists for auditing
// across hosts.
type relationalDB struct {
	db     *sql.DB
	logger log.Logger
}

// A batch run cannot wait on the database forever, so the liveness probe
// gives up after a few paced attempts instead of spinning.
var (
	dialAttempts = 5
	dialInterval = 2 * time.Second
)

func NewDB(driverName string, dataSourceName string, logger log.Logger) (ledger.Ledger, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	err = checkDBAlive(db)
	for attempt := 1; err != nil; attempt++ {
		if attempt >= dialAttempts {
			return nil, fmt.Errorf("certificate history database is unreachable after %d attempts: %v", attempt, err)
		}
		level.Warn(logger).Log("msg", "Trying to connect to certificate history database")
		time.Sleep(dialInterval)
		err = checkDBAlive(db)
	}

	return &relationalDB{db: db, logger: logger}, nil
}

func checkDBAlive(db *sql.DB) error {
	sqlStatement := `
	SELECT WHERE 1=0`
	_, err := db.Query(sqlStatement)
	return err
}

func (r *relationalDB) Get() (*ledger.Record, error) {
	sqlStatement := `
	SELECT domain, valid_from, valid_to, fingerprint
	FROM certificate_history
	ORDER BY exported_at DESC
	LIMIT 1;
	`
	row := r.db.QueryRow(sqlStatement)

	var rec ledger.Record
	err := row.Scan(&rec.Domain, &rec.ValidFrom, &rec.ValidTo, &rec.Fingerprint)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		level.Error(r.logger).Log("err", err, "msg", "Could not read latest record from certificate history database")
		return nil, err
	}
	level.Info(r.logger).Log("msg", "Latest history record loaded", "fingerprint", rec.Fingerprint)
	return &rec, nil
}

func (r *relationalDB) Put(rec ledger.Record) error {
	sqlStatement := `
	INSERT INTO certificate_history(domain, valid_from, valid_to, fingerprint, exported_at)
	VALUES($1, $2, $3, $4, NOW())
	RETURNING fingerprint;
	`

	var fingerprint string
	err := r.db.QueryRow(sqlStatement, rec.Domain, rec.ValidFrom, rec.ValidTo, rec.Fingerprint).Scan(&fingerprint)
	if err != nil {
		level.Error(r.logger).Log("err", err, "msg", "Could not insert record with fingerprint "+rec.Fingerprint+" in certificate history database")
		return err
	}
	level.Info(r.logger).Log("msg", "Record with fingerprint "+rec.Fingerprint+" inserted in certificate history database")
	return nil
}
