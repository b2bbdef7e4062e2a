package stdlib

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"lyng/internal/modules"
	"lyng/internal/object"
)

var drivers = map[string]bool{"sqlite3": true, "mysql": true, "postgres": true}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ObjDatabase is an open connection pool, or a transaction on one while a
// transaction block runs.
type ObjDatabase struct {
	Driver string
	db     *sql.DB
	tx     *sql.Tx
	closed bool
}

var DatabaseClass = object.NewClass("Database")

func (d *ObjDatabase) Class() *object.ObjClass { return DatabaseClass }
func (d *ObjDatabase) Inspect() string {
	switch {
	case d.closed:
		return "Database(" + d.Driver + ", closed)"
	case d.tx != nil:
		return "Database(" + d.Driver + ", transaction)"
	}
	return "Database(" + d.Driver + ")"
}

func OpenDatabase(ctx context.Context, driver, dsn string) (*ObjDatabase, error) {
	if !drivers[driver] {
		return nil, fmt.Errorf("unsupported database driver %s", driver)
	}
	if driver == "mysql" {
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return nil, fmt.Errorf("invalid mysql DSN: %w", err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if driver == "sqlite3" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &ObjDatabase{Driver: driver, db: db}, nil
}

func (d *ObjDatabase) conn(s *object.Scope) (querier, error) {
	if d.closed {
		return nil, s.Raise(object.IllegalStateExceptionClass, "database is closed")
	}
	if d.tx != nil {
		return d.tx, nil
	}
	return d.db, nil
}

// toNative converts a Lyng value to a database/sql argument.
func toNative(o object.Obj) any {
	switch v := o.(type) {
	case *object.ObjInt:
		return v.Value
	case *object.ObjReal:
		return v.Value
	case *object.ObjBool:
		return v.Value
	case *object.ObjString:
		return v.Value
	case *object.ObjChar:
		return string(v.Value)
	case *object.ObjNull:
		return nil
	}
	return o.Inspect()
}

func fromNative(v any, dbType string) object.Obj {
	switch x := v.(type) {
	case nil:
		return object.NULL
	case int64:
		return object.NewInt(x)
	case float64:
		return object.NewReal(x)
	case bool:
		return object.NewBool(x)
	case string:
		return object.NewString(x)
	case []byte:
		switch dbType {
		case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "INT4", "INT8":
			if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
				return object.NewInt(n)
			}
		case "DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL", "FLOAT8":
			if f, err := strconv.ParseFloat(string(x), 64); err == nil {
				return object.NewReal(f)
			}
		}
		return object.NewString(string(x))
	case time.Time:
		return object.NewString(x.Format(time.RFC3339))
	}
	return object.NewString(fmt.Sprintf("%v", v))
}

func renderRows(rows *sql.Rows) (*object.ObjList, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	var out []object.Obj
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := object.NewMap()
		for i, col := range columns {
			var typeName string
			if i < len(types) {
				typeName = types[i].DatabaseTypeName()
			}
			row.Put(object.NewString(col), fromNative(values[i], typeName))
		}
		out = append(out, row)
	}
	return object.NewList(out), rows.Err()
}

// statement splits the arguments of query and exec into the SQL text and its
// parameters.
func statement(s *object.Scope, name string, args *object.Arguments) (string, []any, error) {
	if err := expectArgs(s, name, args, 1, -1); err != nil {
		return "", nil, err
	}
	query, err := object.ArgString(s, name, args, 0)
	if err != nil {
		return "", nil, err
	}
	params := make([]any, len(args.List)-1)
	for i, a := range args.List[1:] {
		params[i] = toNative(a)
	}
	return query, params, nil
}

func (d *ObjDatabase) query(s *object.Scope, args *object.Arguments) (object.Obj, error) {
	q, params, err := statement(s, "query", args)
	if err != nil {
		return nil, err
	}
	conn, err := d.conn(s)
	if err != nil {
		return nil, err
	}
	ctx := s.Context()
	var res *object.ObjList
	err = s.Machine().Suspend(ctx, func() error {
		rows, err := conn.QueryContext(ctx, q, params...)
		if err != nil {
			return err
		}
		defer rows.Close()
		res, err = renderRows(rows)
		return err
	})
	if err != nil {
		return nil, object.WrapHostError(s, fmt.Errorf("query failed: %w", err))
	}
	return res, nil
}

func (d *ObjDatabase) exec(s *object.Scope, args *object.Arguments) (object.Obj, error) {
	q, params, err := statement(s, "exec", args)
	if err != nil {
		return nil, err
	}
	conn, err := d.conn(s)
	if err != nil {
		return nil, err
	}
	ctx := s.Context()
	var result sql.Result
	err = s.Machine().Suspend(ctx, func() error {
		var err error
		result, err = conn.ExecContext(ctx, q, params...)
		return err
	})
	if err != nil {
		return nil, object.WrapHostError(s, fmt.Errorf("exec failed: %w", err))
	}
	affected, _ := result.RowsAffected()
	lastID, _ := result.LastInsertId()
	res := object.NewMap()
	res.Put(object.NewString("rowsAffected"), object.NewInt(affected))
	res.Put(object.NewString("lastInsertId"), object.NewInt(lastID))
	return res, nil
}

// transaction runs block with a database bound to a new transaction. The
// transaction commits when the block returns and rolls back when it throws.
func (d *ObjDatabase) transaction(s *object.Scope, args *object.Arguments) (object.Obj, error) {
	if err := expectArgs(s, "transaction", args, 1, 1); err != nil {
		return nil, err
	}
	if d.closed {
		return nil, s.Raise(object.IllegalStateExceptionClass, "database is closed")
	}
	if d.tx != nil {
		return nil, s.Raise(object.IllegalStateExceptionClass, "transactions can't be nested")
	}
	tx, err := d.db.BeginTx(s.Context(), nil)
	if err != nil {
		return nil, object.WrapHostError(s, fmt.Errorf("failed to begin transaction: %w", err))
	}
	txdb := &ObjDatabase{Driver: d.Driver, db: d.db, tx: tx}
	res, err := object.Call(s, args.List[0], object.Args(txdb))
	txdb.closed = true
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, object.WrapHostError(s, fmt.Errorf("failed to commit transaction: %w", err))
	}
	return res, nil
}

func (d *ObjDatabase) close() error {
	if d.closed || d.tx != nil {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

func init() {
	DatabaseClass.Instantiable = false
	object.DefStatic(DatabaseClass, "open", func(s *object.Scope, _ object.Obj, args *object.Arguments) (object.Obj, error) {
		if err := expectArgs(s, "open", args, 2, 2); err != nil {
			return nil, err
		}
		driver, err := object.ArgString(s, "open", args, 0)
		if err != nil {
			return nil, err
		}
		dsn, err := object.ArgString(s, "open", args, 1)
		if err != nil {
			return nil, err
		}
		db, err := OpenDatabase(s.Context(), driver, dsn)
		if err != nil {
			return nil, s.Raise(object.IllegalArgumentExceptionClass, "%s", err.Error())
		}
		return db, nil
	})
	object.DefMethod(DatabaseClass, "query", func(s *object.Scope, recv object.Obj, args *object.Arguments) (object.Obj, error) {
		return recv.(*ObjDatabase).query(s, args)
	})
	object.DefMethod(DatabaseClass, "exec", func(s *object.Scope, recv object.Obj, args *object.Arguments) (object.Obj, error) {
		return recv.(*ObjDatabase).exec(s, args)
	})
	object.DefMethod(DatabaseClass, "transaction", func(s *object.Scope, recv object.Obj, args *object.Arguments) (object.Obj, error) {
		return recv.(*ObjDatabase).transaction(s, args)
	})
	object.DefMethod(DatabaseClass, "close", func(s *object.Scope, recv object.Obj, args *object.Arguments) (object.Obj, error) {
		if err := recv.(*ObjDatabase).close(); err != nil {
			return nil, object.WrapHostError(s, fmt.Errorf("close failed: %w", err))
		}
		return object.VOID, nil
	})
	object.DefProperty(DatabaseClass, "driver", func(s *object.Scope, recv object.Obj) (object.Obj, error) {
		return object.NewString(recv.(*ObjDatabase).Driver), nil
	})
	object.DefProperty(DatabaseClass, "isClosed", func(s *object.Scope, recv object.Obj) (object.Obj, error) {
		return object.NewBool(recv.(*ObjDatabase).closed), nil
	})
}

func dbModule() *modules.HostModule {
	return &modules.HostModule{Name: "lyng.db", Install: func(s *object.Scope) error {
		s.Bind("Database", DatabaseClass)
		return nil
	}}
}
