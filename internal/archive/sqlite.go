package archive

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	// registers the "sqlite" driver
	_ "github.com/glebarez/go-sqlite"
)

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func sqlType(t series.Type) string {
	switch t {
	case series.Int, series.Bool:
		return "INTEGER"
	case series.Float:
		return "REAL"
	default:
		return "TEXT"
	}
}

// writeSQLite stores df as a single table.  Missing cells become NULL.
func writeSQLite(df dataframe.DataFrame, path, table string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	names := df.Names()
	types := df.Types()
	cols := make([]string, len(names))
	marks := make([]string, len(names))
	for i, name := range names {
		cols[i] = quote(name) + " " + sqlType(types[i])
		marks[i] = "?"
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quote(table), strings.Join(cols, ", "))); err != nil {
		return err
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s VALUES (%s)", quote(table), strings.Join(marks, ", ")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	columns := make([]series.Series, len(names))
	for j, name := range names {
		columns[j] = df.Col(name)
	}
	row := make([]interface{}, len(names))
	for i := 0; i < df.Nrow(); i++ {
		for j, s := range columns {
			row[j] = s.Elem(i).Val()
		}
		if _, err := stmt.Exec(row...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// readSQLite loads the first table of the database at path.
func readSQLite(path string) (dataframe.DataFrame, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer db.Close()

	var table string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY rowid LIMIT 1").Scan(&table)
	if err == sql.ErrNoRows {
		return dataframe.DataFrame{}, fmt.Errorf("no tables")
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s", quote(table)))
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	types := make([]series.Type, len(colTypes))
	for i, ct := range colTypes {
		switch strings.ToUpper(ct.DatabaseTypeName()) {
		case "INTEGER", "INT", "BIGINT":
			types[i] = series.Int
		case "REAL", "FLOAT", "DOUBLE":
			types[i] = series.Float
		default:
			types[i] = series.String
		}
	}

	values := make([][]interface{}, len(colTypes))
	scan := make([]interface{}, len(colTypes))
	for rows.Next() {
		cells := make([]interface{}, len(colTypes))
		for i := range cells {
			scan[i] = &cells[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return dataframe.DataFrame{}, err
		}
		for i, c := range cells {
			values[i] = append(values[i], cellValue(c))
		}
	}
	if err := rows.Err(); err != nil {
		return dataframe.DataFrame{}, err
	}

	cols := make([]series.Series, len(colTypes))
	for i, ct := range colTypes {
		cols[i] = series.New(values[i], types[i], ct.Name())
	}
	return dataframe.New(cols...), nil
}

// cellValue converts a scanned value into one series.New understands.
func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		return int(x)
	case []byte:
		return string(x)
	default:
		return x
	}
}
