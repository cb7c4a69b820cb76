package objectstore

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

// OpenMySQL opens the metadata database for an objectstore Storage and
// ensures the schema exists.
func OpenMySQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
