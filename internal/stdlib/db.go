package stdlib

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ember/internal/value"
	"ember/internal/vm"
)

// dbConn is one open connection, tracked under the generated id handed
// back to the script that opened it.
type dbConn struct {
	db *sql.DB
}

// connPool is the process-wide table of open connections std.db.connect
// hands out handles into. A mutex guards it because ember embeds may
// share one process-wide std.db package across VMs even though a
// single VM's own interpreter loop never runs two goroutines at once.
type connPool struct {
	mu    sync.RWMutex
	conns map[string]*dbConn
}

func newConnPool() *connPool {
	return &connPool{conns: make(map[string]*dbConn)}
}

var dbPool = newConnPool()

func driverFor(dbType string) (string, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "mssql", "sqlserver":
		return "mssql", nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", dbType)
	}
}

func (p *connPool) connect(id, dbType, dsn string) error {
	driver, err := driverFor(dbType)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.conns[id]; exists {
		db.Close()
		return fmt.Errorf("connection %q already exists", id)
	}
	p.conns[id] = &dbConn{db: db}
	return nil
}

func (p *connPool) get(id string) (*dbConn, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[id]
	if !ok {
		return nil, fmt.Errorf("connection %q not found", id)
	}
	return c, nil
}

func (p *connPool) execute(id, query string, args ...interface{}) (int64, error) {
	c, err := p.get(id)
	if err != nil {
		return 0, err
	}
	result, err := c.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("execution failed: %w", err)
	}
	return result.RowsAffected()
}

func (p *connPool) query(id, query string, args ...interface{}) ([]map[string]interface{}, error) {
	c, err := p.get(id)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]interface{}
	scanned := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range scanned {
		ptrs[i] = &scanned[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := scanned[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = scanned[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (p *connPool) close(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[id]
	if !ok {
		return fmt.Errorf("connection %q not found", id)
	}
	delete(p.conns, id)
	return c.db.Close()
}

// DB is the std.db native package: connect(type, dsn) opens a pooled
// sql.DB and returns a Map of bound natives (execute/query/query_one/
// close) closing over the generated connection id.
func DB(v *vm.VM) (value.Value, error) {
	exports := value.NewMap()
	exports.Set(value.NewStr("connect"), nativeFn("connect", 2, dbConnect))
	return exports, nil
}

func dbConnect(ctx *vm.Context, args []value.Value) (value.Value, error) {
	dbType, ok := strArg(args, 0)
	if !ok {
		return nil, ctx.Throw("db.connect: expected (type, dsn) strings")
	}
	dsn, ok := strArg(args, 1)
	if !ok {
		return nil, ctx.Throw("db.connect: expected (type, dsn) strings")
	}

	id := uuid.New().String()
	if err := dbPool.connect(id, dbType, dsn); err != nil {
		return nil, ctx.Throwf("db.connect: %v", err)
	}

	handle := value.NewMap()
	handle.Set(value.NewStr("execute"), variadicFn("execute", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		return dbExecute(ctx, id, args)
	}))
	handle.Set(value.NewStr("query"), variadicFn("query", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		return dbQuery(ctx, id, args)
	}))
	handle.Set(value.NewStr("query_one"), variadicFn("query_one", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		rows, err := dbQuery(ctx, id, args)
		if err != nil {
			return nil, err
		}
		list := rows.(*value.List)
		if len(list.Elems) == 0 {
			return value.NullValue, nil
		}
		return list.Elems[0], nil
	}))
	handle.Set(value.NewStr("close"), nativeFn("close", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		if err := dbPool.close(id); err != nil {
			return nil, ctx.Throwf("db.close: %v", err)
		}
		return value.NullValue, nil
	}))
	return handle, nil
}

func dbExecute(ctx *vm.Context, connID string, args []value.Value) (value.Value, error) {
	query, ok := strArg(args, 0)
	if !ok {
		return nil, ctx.Throw("db.execute: expected a query string")
	}
	params, err := toDriverArgs(args[1:])
	if err != nil {
		return nil, ctx.Throwf("db.execute: %v", err)
	}
	affected, err := dbPool.execute(connID, query, params...)
	if err != nil {
		return nil, ctx.Throwf("db.execute: %v", err)
	}
	return value.Int{V: affected}, nil
}

func dbQuery(ctx *vm.Context, connID string, args []value.Value) (value.Value, error) {
	query, ok := strArg(args, 0)
	if !ok {
		return nil, ctx.Throw("db.query: expected a query string")
	}
	params, err := toDriverArgs(args[1:])
	if err != nil {
		return nil, ctx.Throwf("db.query: %v", err)
	}
	rows, err := dbPool.query(connID, query, params...)
	if err != nil {
		return nil, ctx.Throwf("db.query: %v", err)
	}

	out := &value.List{Elems: make([]value.Value, len(rows))}
	for i, row := range rows {
		m := value.NewMap()
		for col, val := range row {
			m.Set(value.NewStr(col), fromDriverValue(val))
		}
		out.Elems[i] = m
	}
	return out, nil
}

func toDriverArgs(args []value.Value) ([]interface{}, error) {
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch x := a.(type) {
		case value.Int:
			out[i] = x.V
		case value.Num:
			out[i] = x.V
		case value.Bool:
			out[i] = x.B
		case *value.Str:
			out[i] = string(x.B)
		case value.Null:
			out[i] = nil
		default:
			return nil, fmt.Errorf("unsupported query argument type %s", value.TypeName(a))
		}
	}
	return out, nil
}

func fromDriverValue(v interface{}) value.Value {
	switch x := v.(type) {
	case nil:
		return value.NullValue
	case []byte:
		return value.NewStr(string(x))
	case string:
		return value.NewStr(x)
	case int64:
		return value.Int{V: x}
	case int:
		return value.Int{V: int64(x)}
	case float64:
		return value.Num{V: x}
	case bool:
		return value.BoolOf(x)
	case time.Time:
		return value.NewStr(x.Format(time.RFC3339))
	default:
		return value.NewStr(fmt.Sprintf("%v", x))
	}
}
