package sql

import (
	"database/sql"
	"embed"
	"fmt"
	"math"
	"strconv"
	"strings"

	county "github.com/khslmr/covid-county-corr"
)

// All code writing the unified table to a database is here

//go:embed skeletons
var skeletons embed.FS

const (
	CH   = "clickhouse"
	PG   = "postgres"
	Duck = "duckdb"
)

// column types of a saved table, mapped to database types by types.txt
const (
	dtString = "string"
	dtFloat  = "float"
)

// Dialect carries the SQL skeletons of one database. Placeholders of the form ?Name are
// replaced when a statement is built.
type Dialect struct {
	db      *sql.DB
	dialect string

	dtTypes []string
	dbTypes []string

	create string
	fields string
	dropIf string

	bufSize int // in MB
}

func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	dialect = strings.ToLower(dialect)
	if dialect != CH && dialect != PG && dialect != Duck {
		return nil, fmt.Errorf("no skeletons for database %s", dialect)
	}

	d := &Dialect{db: db, dialect: dialect, bufSize: 1}

	var (
		types string
		e     error
	)
	for _, sk := range []struct {
		file string
		dest *string
	}{
		{"create.txt", &d.create},
		{"fields.txt", &d.fields},
		{"dropIf.txt", &d.dropIf},
		{"types.txt", &types},
	} {
		var b []byte
		if b, e = skeletons.ReadFile("skeletons/" + dialect + "/" + sk.file); e != nil {
			return nil, e
		}

		*sk.dest = string(b)
	}

	for _, lm := range strings.Split(types, "\n") {
		if strings.TrimSpace(lm) == "" {
			continue
		}

		t := strings.Split(lm, ",")
		if len(t) != 2 {
			return nil, fmt.Errorf("bad line in %s types: %s", dialect, lm)
		}

		if t[0] != dtString && t[0] != dtFloat {
			return nil, fmt.Errorf("unknown data type %s in NewDialect", t[0])
		}

		d.dtTypes = append(d.dtTypes, t[0])
		d.dbTypes = append(d.dbTypes, strings.TrimSpace(t[1]))
	}

	return d, nil
}

// ***************** Methods *****************

// SetBufSize sets the size, in MB, at which Save flushes an INSERT. Zero sends everything in one statement.
func (d *Dialect) SetBufSize(mb int) {
	d.bufSize = mb
}

func (d *Dialect) Close() error {
	return d.db.Close()
}

func (d *Dialect) DB() *sql.DB {
	return d.db
}

// DialectName is the lower-cased backend name: clickhouse, postgres or duckdb.
func (d *Dialect) DialectName() string {
	return d.dialect
}

// Create builds a table from create.txt. types are "string" or "float"; orderBy defaults to the first field.
func (d *Dialect) Create(tableName, orderBy string, fields, types []string, overwrite bool) error {
	if len(fields) == 0 || len(fields) != len(types) {
		return fmt.Errorf("fields and types must be non-empty and the same length in Dialect.Create")
	}

	var (
		exists bool
		e      error
	)
	if exists, e = d.Exists(tableName); e != nil {
		return e
	}

	if exists && !overwrite {
		return fmt.Errorf("table %s exists", tableName)
	}

	if exists {
		if e := d.DropTable(tableName); e != nil {
			return e
		}
	}

	if orderBy == "" {
		orderBy = fields[0]
	}

	create := strings.ReplaceAll(d.create, "?TableName", tableName)
	create = strings.Replace(create, "?OrderBy", orderBy, 1)

	var flds []string
	for ind := 0; ind < len(fields); ind++ {
		var dbType string
		if dbType, e = d.dbtype(types[ind]); e != nil {
			return e
		}

		field := strings.ReplaceAll(d.fields, "?Field", fields[ind])
		field = strings.ReplaceAll(field, "?Type", dbType)
		flds = append(flds, field)
	}

	create = strings.Replace(create, "?fields", strings.Join(flds, ",\n"), 1)
	if strings.Contains(create, "?") {
		return fmt.Errorf("create still has placeholders: %s", create)
	}

	_, e = d.db.Exec(create)

	return e
}

func (d *Dialect) DropTable(tableName string) error {
	qry := strings.ReplaceAll(d.dropIf, "?TableName", tableName)
	_, e := d.db.Exec(qry)

	return e
}

func (d *Dialect) Exists(tableName string) (bool, error) {
	var (
		qry  string
		args []any
	)
	switch d.dialect {
	case CH:
		qry = "EXISTS TABLE " + tableName
	case PG:
		qry = fmt.Sprintf("SELECT to_regclass(%s) IS NOT NULL", d.quote(tableName))
	case Duck:
		schema, table := "main", tableName
		if ind := strings.LastIndex(tableName, "."); ind >= 0 {
			schema, table = tableName[:ind], tableName[ind+1:]
		}

		qry = "SELECT count(*) > 0 FROM information_schema.tables WHERE table_schema = ? AND table_name = ?"
		args = []any{schema, table}
	}

	var exist any
	if e := d.db.QueryRow(qry, args...).Scan(&exist); e != nil {
		return false, e
	}

	switch x := exist.(type) {
	case bool:
		return x, nil
	case uint8:
		return x == 1, nil
	}

	return false, fmt.Errorf("unexpected EXISTS result %v", exist)
}

// InsertValues sends rows already formatted as (v1,v2,...),(...)
func (d *Dialect) InsertValues(tableName string, values []byte) error {
	qry := fmt.Sprintf("INSERT INTO %s VALUES ", tableName) + string(values)
	_, e := d.db.Exec(qry)

	return e
}

// Save writes u to tableName: fips, state, name and weight, then the label columns, then the
// value columns in table order. Missing values are saved as NULL.
func (d *Dialect) Save(tableName string, u *county.Unified, overwrite bool) error {
	var (
		exists bool
		e      error
	)
	if exists, e = d.Exists(tableName); e != nil {
		return e
	}

	if exists && !overwrite {
		return fmt.Errorf("table %s exists", tableName)
	}

	fields, types := Fields(u)
	if e := d.Create(tableName, county.ColFIPS, fields, types, overwrite); e != nil {
		return e
	}

	return d.iterSave(tableName, u)
}

func (d *Dialect) iterSave(tableName string, u *county.Unified) error {
	const (
		bSep   = byte(',')
		bOpen  = byte('(')
		bClose = byte(')')
	)

	var buffer []byte
	bsize := d.bufSize * 1024 * 1024

	labels, values := u.LabelColumns(), u.Columns()
	for _, row := range u.Rows() {
		if buffer != nil {
			buffer = append(buffer, bSep)
		}

		buffer = append(buffer, bOpen)
		for _, s := range []string{county.FormatID(row.ID), row.State, row.Name} {
			buffer = append(append(buffer, d.quote(s)...), bSep)
		}

		buffer = append(append(buffer, d.ToString(county.KnownOrMissing(row.Weight))...), bSep)
		for _, col := range labels {
			buffer = append(append(buffer, d.quote(row.Label(col))...), bSep)
		}

		for _, col := range values {
			buffer = append(append(buffer, d.ToString(row.Value(col))...), bSep)
		}

		buffer[len(buffer)-1] = bClose

		if bsize > 0 && len(buffer) >= bsize {
			if e := d.InsertValues(tableName, buffer); e != nil {
				return e
			}

			buffer = nil
		}
	}

	if buffer != nil {
		return d.InsertValues(tableName, buffer)
	}

	return nil
}

// Load runs qry and returns its column names and rows. Numbers come back as float64, text as
// string and NULL as nil.
func (d *Dialect) Load(qry string) ([]string, [][]any, error) {
	var (
		rows *sql.Rows
		e    error
	)
	if rows, e = d.db.Query(qry); e != nil {
		return nil, nil, e
	}
	defer func() { _ = rows.Close() }()

	var names []string
	if names, e = rows.Columns(); e != nil {
		return nil, nil, e
	}

	var out [][]any
	for rows.Next() {
		row2read := make([]any, len(names))
		for ind := range row2read {
			var x any
			row2read[ind] = &x
		}

		if e := rows.Scan(row2read...); e != nil {
			return nil, nil, e
		}

		row := make([]any, len(names))
		for ind := range row {
			if row[ind], e = normalize(*row2read[ind].(*any)); e != nil {
				return nil, nil, fmt.Errorf("column %s: %w", names[ind], e)
			}
		}

		out = append(out, row)
	}

	return names, out, rows.Err()
}

// ToString returns v as it is placed into SQL
func (d *Dialect) ToString(v county.Value) string {
	if v.IsMissing() || math.IsNaN(v.F) || math.IsInf(v.F, 0) {
		return "NULL"
	}

	return strconv.FormatFloat(v.F, 'g', -1, 64)
}

func (d *Dialect) quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *Dialect) dbtype(dt string) (string, error) {
	for ind, t := range d.dtTypes {
		if t == dt {
			return d.dbTypes[ind], nil
		}
	}

	return "", fmt.Errorf("cannot find type %s to map to DB type", dt)
}

// Fields lists the columns Save writes and their types.
func Fields(u *county.Unified) (fields, types []string) {
	fields = []string{county.ColFIPS, county.ColState, county.ColName, county.ColWeight}
	types = []string{dtString, dtString, dtString, dtFloat}
	for _, col := range u.LabelColumns() {
		fields, types = append(fields, col), append(types, dtString)
	}

	for _, col := range u.Columns() {
		fields, types = append(fields, col), append(types, dtFloat)
	}

	return fields, types
}

// normalize maps what a driver scans into any onto float64, string or nil.
func normalize(val any) (any, error) {
	switch x := val.(type) {
	case nil:
		return nil, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case *float64:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *string:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	}

	return nil, fmt.Errorf("unsupported data type %T in Dialect.Load", val)
}
