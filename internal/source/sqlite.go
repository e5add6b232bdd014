package source

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/conneroisu/shelfsearch/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// openSQLite opens an existing database file read-only.
func openSQLite(path string) (*gorm.DB, error) {
	dsn := "file:" + path + "?mode=ro"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// loadSQLite reads every row of table. Column names become the header.
func loadSQLite(ctx context.Context, path, table string) ([]string, [][]string, error) {
	if table == "" {
		return nil, nil, errors.NewInvalidArgument("a table name is required for SQLite sources").
			WithPath(path)
	}
	if !tableName.MatchString(table) {
		return nil, nil, errors.NewInvalidArgument("invalid table name").
			WithContext("table", table)
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, nil, errors.WrapSource(err, path, "open database")
	}
	defer closeDB(db)

	if !db.WithContext(ctx).Migrator().HasTable(table) {
		return nil, nil, errors.ErrTableNotFound(table).WithPath(path)
	}

	rows, err := db.WithContext(ctx).Table(table).Rows()
	if err != nil {
		return nil, nil, errors.WrapSource(err, path, "query table "+table)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.WrapSource(err, path, "read columns")
	}

	var records [][]string
	values := make([]interface{}, len(header))
	ptrs := make([]interface{}, len(header))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.WrapSource(err, path, "scan row")
		}
		rec := make([]string, len(values))
		for i, v := range values {
			rec[i] = sqlValue(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.WrapSource(err, path, "iterate rows")
	}

	return header, records, nil
}

// ListTables returns the user tables of a SQLite database.
func ListTables(ctx context.Context, path string) ([]string, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, errors.WrapSource(err, path, "open database")
	}
	defer closeDB(db)

	var names []string
	err = db.WithContext(ctx).
		Raw("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name").
		Scan(&names).Error
	if err != nil {
		return nil, errors.WrapSource(err, path, "list tables")
	}
	return names, nil
}

func sqlValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}
